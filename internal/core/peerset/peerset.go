package peerset

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/lib/log"
	"github.com/dep2p/go-peerset/pkg/types"
)

var logger = log.Logger("core/peerset")

// Peerset 单个通知协议的节点连接槽位管理器
//
// 非并发安全：见包文档的并发模型。
type Peerset struct {
	protocol     types.ProtocolID
	maxIn        int
	maxOut       int
	reservedOnly bool
	strict       bool

	reserved types.PeerIDSet
	peers    map[types.PeerID]PeerState

	numIn  int
	numOut int

	// connected 已连接节点计数器，可在多个协议间共享。
	// 本实例只在 transition 中写入。
	connected *atomic.Int64

	source  interfaces.PeerSource
	queue   *commandQueue
	pending []Action
	tracer  Tracer
}

// New 创建 Peerset 和它的命令句柄
//
// 初始拨号集合为未被封禁的保留节点，非 ReservedOnly 时再从 source 取
// 最多 MaxOut 减去已拨保留节点数个候选者，全部进入 Opening(Outbound)，
// 合并为一个 OpenSubstream 批次排队。
//
// connected 为 nil 时使用私有计数器；source 为 nil 时没有候选者也没有封禁。
func New(cfg Config, connected *atomic.Int64, source interfaces.PeerSource, opts ...Option) (*Peerset, *Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if connected == nil {
		connected = new(atomic.Int64)
	}
	if source == nil {
		source = emptySource{}
	}

	p := &Peerset{
		protocol:     cfg.Protocol,
		maxIn:        cfg.MaxIn,
		maxOut:       cfg.MaxOut,
		reservedOnly: cfg.ReservedOnly,
		strict:       cfg.StrictInvariants,
		reserved:     types.NewPeerIDSet(cfg.ReservedPeers...),
		peers:        make(map[types.PeerID]PeerState),
		connected:    connected,
		source:       source,
		queue:        newCommandQueue(),
		tracer:       nopTracer{},
	}
	for _, opt := range opts {
		opt(p)
	}

	// 与 AllocateSlots 一致，跳过已封禁的保留节点
	open := make([]types.PeerID, 0, len(p.reserved))
	for _, peer := range p.reserved.Slice() {
		if p.source.IsBanned(peer) {
			logger.Debug("保留节点已封禁，暂不拨号", "protocol", p.protocol, "peer", peer)
			continue
		}
		p.transition(peer, Opening(Outbound(ReservedYes)))
		open = append(open, peer)
	}

	if !p.reservedOnly && p.maxOut > len(open) {
		for _, peer := range p.source.OutgoingCandidates(p.maxOut-len(open), p.reserved) {
			if _, ok := p.peers[peer]; ok {
				continue
			}
			p.transition(peer, Opening(Outbound(ReservedNo)))
			open = append(open, peer)
		}
	}

	if len(open) > 0 {
		p.enqueue(Action{Kind: ActionOpenSubstream, Peers: types.SortPeerIDs(open)})
	}

	logger.Debug("创建 peerset",
		"protocol", p.protocol,
		"maxIn", p.maxIn,
		"maxOut", p.maxOut,
		"reservedOnly", p.reservedOnly,
		"reserved", len(p.reserved),
		"initialDials", len(open))

	return p, &Handle{protocol: p.protocol, queue: p.queue}, nil
}

// ============================================================================
//                              访问器
// ============================================================================

// Protocol 返回协议
func (p *Peerset) Protocol() types.ProtocolID { return p.protocol }

// NumIn 返回占用的入站槽位数
func (p *Peerset) NumIn() int { return p.numIn }

// NumOut 返回占用的出站槽位数
func (p *Peerset) NumOut() int { return p.numOut }

// MaxIn 返回入站槽位上限
func (p *Peerset) MaxIn() int { return p.maxIn }

// MaxOut 返回出站槽位上限
func (p *Peerset) MaxOut() int { return p.maxOut }

// ReservedOnly 是否为仅保留节点模式
func (p *Peerset) ReservedOnly() bool { return p.reservedOnly }

// ConnectedPeers 读取（可能共享的）已连接节点计数器
func (p *Peerset) ConnectedPeers() int64 { return p.connected.Load() }

// Peers 返回状态表副本
func (p *Peerset) Peers() map[types.PeerID]PeerState {
	out := make(map[types.PeerID]PeerState, len(p.peers))
	for peer, state := range p.peers {
		out[peer] = state
	}
	return out
}

// State 返回节点状态，无条目时 ok 为 false
func (p *Peerset) State(peer types.PeerID) (state PeerState, ok bool) {
	state, ok = p.peers[peer]
	return state, ok
}

// ReservedPeers 返回排序后的保留节点
func (p *Peerset) ReservedPeers() []types.PeerID {
	return p.reserved.Slice()
}

// IsReserved 检查节点是否为保留节点
func (p *Peerset) IsReserved(peer types.PeerID) bool {
	return p.reserved.Has(peer)
}

// PendingCommands 返回尚未处理的命令数
func (p *Peerset) PendingCommands() int {
	return p.queue.len()
}

// ============================================================================
//                              动作源
// ============================================================================

// Ready 有新命令或新动作排队时收到信号
//
// 所有者在 Poll 返回 false 后等待该通道，再重新 Poll。
func (p *Peerset) Ready() <-chan struct{} {
	return p.queue.ready
}

// Done Peerset 关闭后关闭的通道
func (p *Peerset) Done() <-chan struct{} {
	return p.queue.done
}

// Poll 取出下一个动作，不阻塞
//
// 优先返回已排队的动作；否则逐条处理待处理命令，
// 直到某条命令产生动作或命令队列为空。
func (p *Peerset) Poll() (Action, bool) {
	for {
		if len(p.pending) > 0 {
			action := p.pending[0]
			p.pending[0] = Action{}
			p.pending = p.pending[1:]
			p.tracer.ActionEmitted(p.protocol, action)
			return action, true
		}

		cmd, ok := p.queue.pop()
		if !ok {
			return Action{}, false
		}
		p.processCommand(cmd)
	}
}

// Next 阻塞直到下一个动作可用
//
// 只适用于没有其他并发修改者的所有者；需要与 Report* 并发时，
// 在外部锁内调用 Poll 并在锁外等待 Ready。
func (p *Peerset) Next(ctx context.Context) (Action, error) {
	for {
		if action, ok := p.Poll(); ok {
			return action, nil
		}

		select {
		case <-p.queue.ready:
		case <-p.queue.done:
			return Action{}, ErrClosed
		case <-ctx.Done():
			return Action{}, ctx.Err()
		}
	}
}

// Close 关闭命令队列
//
// 之后 Handle 的方法返回 ErrClosed，Next 返回 ErrClosed。
func (p *Peerset) Close() {
	p.queue.close()
}

// enqueue 排队一个动作并唤醒所有者
func (p *Peerset) enqueue(action Action) {
	p.pending = append(p.pending, action)
	p.queue.signal()
}

// ============================================================================
//                              状态转换
// ============================================================================

// transition 把节点移到 to（StateAbsent 表示删除条目）
//
// 槽位计数与已连接计数器只在这里修改：离开占用状态释放旧方向的槽位，
// 进入占用状态占用新方向的槽位；离开/进入 Connected 调整已连接计数器。
func (p *Peerset) transition(peer types.PeerID, to PeerState) {
	from := p.peers[peer]

	if from.occupiesSlot() {
		p.releaseSlot(peer, from.Direction)
	}
	if to.occupiesSlot() {
		if to.Direction.IsInbound() {
			p.numIn++
		} else {
			p.numOut++
		}
	}

	if from.Kind == StateConnected && to.Kind != StateConnected {
		p.connected.Add(-1)
	} else if from.Kind != StateConnected && to.Kind == StateConnected {
		p.connected.Add(1)
	}

	if to.Kind == StateAbsent {
		delete(p.peers, peer)
	} else {
		p.peers[peer] = to
	}

	p.tracer.StateChanged(p.protocol, peer, from, to)
	if from.occupiesSlot() || to.occupiesSlot() {
		p.tracer.SlotsChanged(p.protocol, p.numIn, p.numOut)
	}
}

func (p *Peerset) releaseSlot(peer types.PeerID, d Direction) {
	counter := &p.numOut
	if d.IsInbound() {
		counter = &p.numIn
	}
	if *counter == 0 {
		p.invariant("槽位计数下溢", "peer", peer, "direction", d)
		return
	}
	*counter--
}

// invariant 报告不变量被破坏
//
// 严格模式下 panic；否则记录 Warn 并由调用方忽略该事件。
func (p *Peerset) invariant(msg string, args ...any) {
	logger.Warn(msg, append([]any{"protocol", p.protocol}, args...)...)
	if p.strict {
		panic(fmt.Errorf("%w: %s: %s %v", ErrInvariant, p.protocol, msg, args))
	}
}

// emptySource 没有候选者也没有封禁
type emptySource struct{}

func (emptySource) OutgoingCandidates(int, types.PeerIDSet) []types.PeerID { return nil }
func (emptySource) IsBanned(types.PeerID) bool                             { return false }
