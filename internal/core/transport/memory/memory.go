// Package memory 实现内存中的模拟通知传输
//
// Transport 模拟一组远端节点，供 CLI 与集成测试驱动 peerset：
//   - OpenSubstream 在 Latency 之后回报打开成功或失败（按 OpenFailureRate）
//   - CloseSubstream 在 Latency 之后回报关闭；仍在打开中的子流在打开完成后关闭
//   - 每个 InboundInterval 随机一个远端节点主动打开子流
//   - 每个 ChurnInterval 随机关闭一个已打开的子流
//
// 所有定时器由 clock.Clock 驱动，测试可使用 clock.NewMock()。
package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-peerset/config"
	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/lib/log"
	"github.com/dep2p/go-peerset/pkg/types"
)

var logger = log.Logger("core/transport/memory")

// 模拟传输错误
var (
	// ErrUnknownPeer 节点不在模拟网络中
	ErrUnknownPeer = errors.New("memory: unknown peer")

	// ErrOpenFailed 模拟的打开失败
	ErrOpenFailed = errors.New("memory: simulated open failure")

	// ErrNoReporter 尚未设置回报对象
	ErrNoReporter = errors.New("memory: no reporter")

	// ErrClosed 传输已关闭
	ErrClosed = errors.New("memory: closed")
)

// 确保实现了接口
var _ interfaces.Transport = (*Transport)(nil)

// Config 模拟传输配置
type Config struct {
	RemotePeers     int
	Latency         time.Duration
	OpenFailureRate float64
	InboundInterval time.Duration
	ChurnInterval   time.Duration
	Seed            int64

	// Protocols 远端节点支持的协议，入站子流从中随机选择
	Protocols []types.ProtocolID
}

// ConfigFromUnified 从统一配置创建模拟传输配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	tc := cfg.Transport
	out := Config{
		RemotePeers:     tc.RemotePeers,
		Latency:         tc.Latency.Duration(),
		OpenFailureRate: tc.OpenFailureRate,
		InboundInterval: tc.InboundInterval.Duration(),
		ChurnInterval:   tc.ChurnInterval.Duration(),
		Seed:            tc.Seed,
	}
	for _, pc := range cfg.Protocols {
		out.Protocols = append(out.Protocols, types.ProtocolID(pc.Protocol))
	}
	if len(out.Protocols) == 0 {
		out.Protocols = []types.ProtocolID{config.DefaultProtocol}
	}
	return out
}

// substreamKey 子流键
type substreamKey struct {
	protocol types.ProtocolID
	peer     types.PeerID
}

// Transport 模拟通知传输
type Transport struct {
	cfg   Config
	clock clock.Clock

	mu       sync.Mutex
	rng      *rand.Rand
	reporter interfaces.SubstreamReporter
	remotes  []types.PeerID
	remote   types.PeerIDSet
	open     map[substreamKey]types.Direction
	closed   bool

	// pending 打开中的子流，值为是否已请求关闭
	pending map[substreamKey]bool

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Option 模拟传输选项
type Option func(*Transport)

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(t *Transport) {
		if c != nil {
			t.clock = c
		}
	}
}

// New 创建模拟传输，远端节点为 remote-000 ... remote-NNN
func New(cfg Config, opts ...Option) *Transport {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	t := &Transport{
		cfg:     cfg,
		clock:   clock.New(),
		rng:     rand.New(rand.NewSource(seed)),
		remote:  make(types.PeerIDSet, cfg.RemotePeers),
		open:    make(map[substreamKey]types.Direction),
		pending: make(map[substreamKey]bool),
	}
	for _, opt := range opts {
		opt(t)
	}

	for i := 0; i < cfg.RemotePeers; i++ {
		id := types.PeerID(fmt.Sprintf("remote-%03d", i))
		t.remotes = append(t.remotes, id)
		t.remote[id] = struct{}{}
	}
	return t
}

// SetReporter 设置结果回报对象
func (t *Transport) SetReporter(r interfaces.SubstreamReporter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reporter = r
}

// Peers 返回模拟网络中的远端节点
func (t *Transport) Peers() []types.PeerID {
	return append([]types.PeerID(nil), t.remotes...)
}

// OpenSubstreams 返回协议下已打开的子流节点（排序）
func (t *Transport) OpenSubstreams(proto types.ProtocolID) []types.PeerID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []types.PeerID
	for k := range t.open {
		if k.protocol == proto {
			out = append(out, k.peer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ============================================================================
//                              Transport 接口
// ============================================================================

// OpenSubstream 为每个节点在 Latency 之后回报打开结果
//
// 不在模拟网络中的节点立即以 *interfaces.PeerError 返回。
func (t *Transport) OpenSubstream(_ context.Context, proto types.ProtocolID, peers []types.PeerID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.reporter == nil {
		return ErrNoReporter
	}

	var errs error
	for _, peer := range peers {
		peer := peer
		if !t.remote.Has(peer) {
			errs = multierr.Append(errs, &interfaces.PeerError{Peer: peer, Err: ErrUnknownPeer})
			continue
		}
		fail := t.rng.Float64() < t.cfg.OpenFailureRate
		t.pending[substreamKey{protocol: proto, peer: peer}] = false
		t.after(func() { t.completeOpen(proto, peer, types.DirOutbound, fail) })
	}
	return errs
}

// PendingSubstreams 返回协议下仍在打开中的子流节点（排序）
func (t *Transport) PendingSubstreams(proto types.ProtocolID) []types.PeerID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []types.PeerID
	for k := range t.pending {
		if k.protocol == proto {
			out = append(out, k.peer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CloseSubstream 为每个已打开的子流在 Latency 之后回报关闭
//
// 仍在打开中的子流只做标记，由 completeOpen 在打开完成后关闭。
func (t *Transport) CloseSubstream(_ context.Context, proto types.ProtocolID, peers []types.PeerID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	var errs error
	for _, peer := range peers {
		peer := peer
		key := substreamKey{protocol: proto, peer: peer}
		if _, ok := t.pending[key]; ok {
			t.pending[key] = true
			continue
		}
		if _, ok := t.open[key]; !ok {
			errs = multierr.Append(errs, &interfaces.PeerError{Peer: peer, Err: fmt.Errorf("no open substream for %s", proto)})
			continue
		}
		delete(t.open, key)
		t.after(func() { t.report(func(r interfaces.SubstreamReporter) { r.ReportSubstreamClosed(proto, peer) }) })
	}
	return errs
}

// after 在 Latency 之后执行 fn，调用方持有 t.mu
func (t *Transport) after(fn func()) {
	if t.cfg.Latency <= 0 {
		go fn()
		return
	}
	t.clock.AfterFunc(t.cfg.Latency, fn)
}

// completeOpen 回报打开结果并记录已打开的子流
//
// 回报对象不保留的子流，或打开期间已请求关闭的子流，在 Latency 之后关闭并回报。
func (t *Transport) completeOpen(proto types.ProtocolID, peer types.PeerID, dir types.Direction, fail bool) {
	key := substreamKey{protocol: proto, peer: peer}

	t.mu.Lock()
	closeRequested := t.pending[key]
	delete(t.pending, key)
	t.mu.Unlock()

	if fail {
		t.report(func(r interfaces.SubstreamReporter) { r.ReportSubstreamOpenFailure(proto, peer, ErrOpenFailed) })
		return
	}

	var keep bool
	t.report(func(r interfaces.SubstreamReporter) { keep = r.ReportSubstreamOpened(proto, peer, dir) })

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if !keep || closeRequested {
		logger.Debug("子流打开后直接关闭", "protocol", proto, "peer", peer, "keep", keep, "closeRequested", closeRequested)
		t.after(func() { t.report(func(r interfaces.SubstreamReporter) { r.ReportSubstreamClosed(proto, peer) }) })
		return
	}
	t.open[key] = dir
}

// report 在锁外调用回报对象
func (t *Transport) report(fn func(interfaces.SubstreamReporter)) {
	t.mu.Lock()
	r, closed := t.reporter, t.closed
	t.mu.Unlock()

	if r == nil || closed {
		return
	}
	fn(r)
}

// ============================================================================
//                              远端行为
// ============================================================================

// Start 启动远端入站与断开循环
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	t.cancel, t.group = cancel, g

	if t.cfg.InboundInterval > 0 && len(t.remotes) > 0 {
		ticker := t.clock.Ticker(t.cfg.InboundInterval)
		g.Go(func() error { return t.loop(gctx, ticker, t.Inbound) })
	}
	if t.cfg.ChurnInterval > 0 {
		ticker := t.clock.Ticker(t.cfg.ChurnInterval)
		g.Go(func() error { return t.loop(gctx, ticker, t.Churn) })
	}

	logger.Info("模拟传输已启动", "remotePeers", len(t.remotes), "protocols", len(t.cfg.Protocols))
	return nil
}

// Stop 停止循环，之后的回报全部丢弃
func (t *Transport) Stop() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	cancel, g := t.cancel, t.group
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return g.Wait()
}

func (t *Transport) loop(ctx context.Context, ticker *clock.Ticker, step func()) error {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			step()
		}
	}
}

// Inbound 随机一个远端节点在随机协议上主动打开子流
func (t *Transport) Inbound() {
	t.mu.Lock()
	if len(t.remotes) == 0 || len(t.cfg.Protocols) == 0 {
		t.mu.Unlock()
		return
	}
	peer := t.remotes[t.rng.Intn(len(t.remotes))]
	proto := t.cfg.Protocols[t.rng.Intn(len(t.cfg.Protocols))]
	key := substreamKey{protocol: proto, peer: peer}
	_, busy := t.open[key]
	if _, ok := t.pending[key]; ok {
		busy = true
	}
	fail := t.rng.Float64() < t.cfg.OpenFailureRate
	t.mu.Unlock()

	if busy {
		return
	}
	t.InboundFrom(proto, peer, fail)
}

// InboundFrom 指定远端节点在协议上主动打开子流，接受后在 Latency 之后回报结果
//
// 节点已有打开中的子流时只回报入站，打开结果沿用进行中的那一次。
func (t *Transport) InboundFrom(proto types.ProtocolID, peer types.PeerID, fail bool) types.ValidationResult {
	result := types.ValidationReject
	t.report(func(r interfaces.SubstreamReporter) { result = r.ReportInboundSubstream(proto, peer) })
	if result != types.ValidationAccept {
		return result
	}

	// 双向同时打开时合并到已在进行的出站打开
	t.mu.Lock()
	key := substreamKey{protocol: proto, peer: peer}
	if _, merged := t.pending[key]; !t.closed && !merged {
		t.pending[key] = false
		t.after(func() { t.completeOpen(proto, peer, types.DirInbound, fail) })
	}
	t.mu.Unlock()
	return result
}

// Churn 随机关闭一个已打开的子流（远端断开）
func (t *Transport) Churn() {
	t.mu.Lock()
	if len(t.open) == 0 {
		t.mu.Unlock()
		return
	}
	keys := make([]substreamKey, 0, len(t.open))
	for k := range t.open {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].protocol != keys[j].protocol {
			return keys[i].protocol < keys[j].protocol
		}
		return keys[i].peer < keys[j].peer
	})
	key := keys[t.rng.Intn(len(keys))]
	delete(t.open, key)
	t.mu.Unlock()

	logger.Debug("远端断开子流", "protocol", key.protocol, "peer", key.peer)
	t.report(func(r interfaces.SubstreamReporter) { r.ReportSubstreamClosed(key.protocol, key.peer) })
}
