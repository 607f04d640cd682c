// Package peerstore 维护已知节点及其信誉
//
// 信誉是 int32，加减时饱和；每个 DecayInterval 向零衰减 rep/InverseDecrement（至少 1）。
// 信誉低于 BanThreshold 的节点视为封禁：不作为出站候选者，入站被拒绝。
// 负向调整后仍处于封禁状态时，通过已注册的 ProtocolHandle 通知所有协议断开该节点。
// 信誉为零且 ForgetAfter 内没有更新的节点被遗忘。
package peerstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-peerset/internal/core/storage"
	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/lib/log"
	"github.com/dep2p/go-peerset/pkg/types"
)

var logger = log.Logger("core/peerstore")

// 确保实现了接口
var _ interfaces.Peerstore = (*Peerstore)(nil)

type peerInfo struct {
	reputation  int32
	lastUpdated time.Time
}

// Peerstore 已知节点与信誉
type Peerstore struct {
	mu sync.RWMutex

	cfg     Config
	clock   clock.Clock
	peers   map[types.PeerID]*peerInfo
	handles []interfaces.ProtocolHandle

	// store 持久化存储，nil 表示纯内存
	store *storage.Store
	dirty types.PeerIDSet

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
}

// Option Peerstore 选项
type Option func(*Peerstore)

// WithClock 设置时钟，测试使用 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(ps *Peerstore) {
		if c != nil {
			ps.clock = c
		}
	}
}

// WithStore 使用持久化存储，创建时加载已保存的信誉
func WithStore(s *storage.Store) Option {
	return func(ps *Peerstore) {
		ps.store = s
	}
}

// New 创建 Peerstore
func New(cfg Config, opts ...Option) (*Peerstore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ps := &Peerstore{
		cfg:   cfg,
		clock: clock.New(),
		peers: make(map[types.PeerID]*peerInfo),
		dirty: make(types.PeerIDSet),
	}
	for _, opt := range opts {
		opt(ps)
	}

	if ps.store != nil {
		if err := ps.load(); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

// Start 启动信誉衰减循环，重复调用无效
func (ps *Peerstore) Start() {
	ps.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		ps.cancel = cancel
		ps.done = make(chan struct{})
		go ps.decayLoop(ctx, ps.clock.Ticker(ps.cfg.DecayInterval))
	})
}

func (ps *Peerstore) decayLoop(ctx context.Context, ticker *clock.Ticker) {
	defer close(ps.done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ps.decay()
			if err := ps.flush(false); err != nil {
				logger.Warn("保存节点信誉失败", "error", err)
			}
		}
	}
}

// ============================================================================
//                              节点与信誉
// ============================================================================

// AddPeer 添加已知节点，已存在时只刷新更新时间
func (ps *Peerstore) AddPeer(peer types.PeerID) {
	if peer.IsEmpty() {
		return
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return
	}
	info, ok := ps.peers[peer]
	if !ok {
		info = &peerInfo{}
		ps.peers[peer] = info
		logger.Debug("添加已知节点", "peer", peer.ShortString())
	}
	info.lastUpdated = ps.clock.Now()
	ps.dirty[peer] = struct{}{}
}

// ReportPeer 调整节点信誉
func (ps *Peerstore) ReportPeer(peer types.PeerID, change types.ReputationChange) {
	if peer.IsEmpty() {
		return
	}

	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return
	}
	info, ok := ps.peers[peer]
	if !ok {
		info = &peerInfo{}
		ps.peers[peer] = info
	}
	before := info.reputation
	info.reputation = saturatingAdd(before, change.Value)
	info.lastUpdated = ps.clock.Now()
	ps.dirty[peer] = struct{}{}
	after := info.reputation

	var handles []interfaces.ProtocolHandle
	if change.Value < 0 && after < ps.cfg.BanThreshold {
		handles = append(handles, ps.handles...)
	}
	ps.mu.Unlock()

	logger.Debug("调整节点信誉",
		"peer", peer.ShortString(),
		"change", change.Value,
		"reason", change.Reason,
		"before", before,
		"after", after)

	if handles == nil {
		return
	}
	if before >= ps.cfg.BanThreshold {
		logger.Info("节点被封禁", "peer", peer.ShortString(), "reputation", after, "reason", change.Reason)
	}
	for _, h := range handles {
		if err := h.DisconnectPeer(peer); err != nil {
			logger.Debug("通知协议断开节点失败", "peer", peer.ShortString(), "error", err)
		}
	}
}

// PeerReputation 返回节点当前信誉，未知节点为 0
func (ps *Peerstore) PeerReputation(peer types.PeerID) int32 {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if info, ok := ps.peers[peer]; ok {
		return info.reputation
	}
	return 0
}

// IsBanned 检查节点是否被封禁
func (ps *Peerstore) IsBanned(peer types.PeerID) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	info, ok := ps.peers[peer]
	return ok && info.reputation < ps.cfg.BanThreshold
}

// OutgoingCandidates 返回最多 count 个出站候选节点
//
// 按信誉从高到低排序（相同信誉按 ID 排序），跳过 ignore 中的节点与已封禁节点。
func (ps *Peerstore) OutgoingCandidates(count int, ignore types.PeerIDSet) []types.PeerID {
	if count <= 0 {
		return nil
	}

	ps.mu.RLock()
	type candidate struct {
		id  types.PeerID
		rep int32
	}
	candidates := make([]candidate, 0, len(ps.peers))
	for id, info := range ps.peers {
		if ignore.Has(id) || info.reputation < ps.cfg.BanThreshold {
			continue
		}
		candidates = append(candidates, candidate{id: id, rep: info.reputation})
	}
	ps.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rep != candidates[j].rep {
			return candidates[i].rep > candidates[j].rep
		}
		return candidates[i].id < candidates[j].id
	})

	if len(candidates) > count {
		candidates = candidates[:count]
	}
	out := make([]types.PeerID, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}

// Peers 返回所有已知节点（排序）
func (ps *Peerstore) Peers() []types.PeerID {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	out := make([]types.PeerID, 0, len(ps.peers))
	for id := range ps.peers {
		out = append(out, id)
	}
	return types.SortPeerIDs(out)
}

// Len 返回已知节点数
func (ps *Peerstore) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.peers)
}

// BannedCount 返回被封禁的节点数
func (ps *Peerstore) BannedCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	n := 0
	for _, info := range ps.peers {
		if info.reputation < ps.cfg.BanThreshold {
			n++
		}
	}
	return n
}

// RegisterProtocol 注册协议句柄
func (ps *Peerstore) RegisterProtocol(handle interfaces.ProtocolHandle) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.handles = append(ps.handles, handle)
}

// Close 停止衰减循环并保存全部信誉
func (ps *Peerstore) Close() error {
	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return nil
	}
	ps.closed = true
	ps.mu.Unlock()

	// 阻止之后的 Start 启动循环
	ps.startOnce.Do(func() {})
	if ps.cancel != nil {
		ps.cancel()
		<-ps.done
	}
	return ps.flush(true)
}

// ============================================================================
//                              衰减
// ============================================================================

// decay 执行一次衰减并遗忘过期节点
func (ps *Peerstore) decay() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := ps.clock.Now()
	for id, info := range ps.peers {
		info.reputation = decayed(info.reputation, ps.cfg.InverseDecrement)
		if info.reputation == 0 && ps.cfg.ForgetAfter > 0 && now.Sub(info.lastUpdated) >= ps.cfg.ForgetAfter {
			delete(ps.peers, id)
			ps.dirty[id] = struct{}{}
			logger.Debug("遗忘节点", "peer", id.ShortString())
		}
	}
}

// decayed 向零移动 rep/inverse，至少 1
func decayed(rep, inverse int32) int32 {
	diff := rep / inverse
	switch {
	case rep > 0:
		if diff < 1 {
			diff = 1
		}
	case rep < 0:
		if diff > -1 {
			diff = -1
		}
	default:
		return 0
	}
	return rep - diff
}

// saturatingAdd 限定在 int32 范围内的加法
func saturatingAdd(a, b int32) int32 {
	sum := int64(a) + int64(b)
	if sum > math.MaxInt32 {
		return math.MaxInt32
	}
	if sum < math.MinInt32 {
		return math.MinInt32
	}
	return int32(sum)
}
