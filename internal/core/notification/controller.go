// Package notification 驱动每个通知协议的 peerset
//
// Controller 为每个协议持有一个核心 Peerset 及其命令句柄，负责：
//   - 动作循环：取出 OpenSubstream/CloseSubstream 批次交给 Transport 执行
//   - 槽位分配：按 SlotAllocationInterval 周期性调用 AllocateSlots
//   - 重拨退避：节点进入 Backoff 时安排到期定时器，到期后重新成为候选者，
//     并向 Peerstore 回报信誉（关闭 -256，打开失败 -1024）
//   - 作为 SubstreamReporter 接收传输层回报
//
// 每个 Peerset 的全部修改都在该协议的互斥锁内进行。
package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-peerset/internal/core/backoff"
	"github.com/dep2p/go-peerset/internal/core/peerset"
	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/lib/log"
	"github.com/dep2p/go-peerset/pkg/types"
)

var logger = log.Logger("core/notification")

// 退避到期时回报给 Peerstore 的信誉变化
var (
	// DisconnectedChange 子流关闭
	DisconnectedChange = types.NewReputationChange(-256, "Peer disconnected")

	// OpenFailureChange 子流打开失败
	OpenFailureChange = types.NewReputationChange(-1024, "Open failure")
)

// 确保实现了接口
var _ interfaces.SubstreamReporter = (*Controller)(nil)

// protocolSet 单个协议的 peerset 及其锁
type protocolSet struct {
	mu       sync.Mutex
	set      *peerset.Peerset
	handle   *peerset.Handle
	interval time.Duration

	// inflight 已提交打开、尚无打开结果的节点
	inflight types.PeerIDSet
}

// Controller 通知协议控制器
type Controller struct {
	transport interfaces.Transport
	book      interfaces.Peerstore
	clock     clock.Clock
	tracer    peerset.Tracer

	// connected 所有协议共享的已连接计数
	connected atomic.Int64

	protocols []types.ProtocolID
	sets      map[types.ProtocolID]*protocolSet
	scheduler *backoff.Scheduler

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
	stopped bool
}

// Option Controller 选项
type Option func(*Controller)

// WithClock 设置时钟，测试使用 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		if c != nil {
			ctrl.clock = c
		}
	}
}

// WithTracer 设置 peerset 事件观察者
func WithTracer(t peerset.Tracer) Option {
	return func(ctrl *Controller) {
		ctrl.tracer = t
	}
}

// New 创建 Controller
//
// 为每个协议创建 Peerset，向 Peerstore 注册命令句柄，并把自己设为 Transport 的回报对象。
func New(cfg Config, transport interfaces.Transport, book interfaces.Peerstore, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil || book == nil {
		return nil, ErrInvalidConfig
	}

	c := &Controller{
		transport: transport,
		book:      book,
		clock:     clock.New(),
		sets:      make(map[types.ProtocolID]*protocolSet, len(cfg.Protocols)),
	}
	for _, opt := range opts {
		opt(c)
	}

	bcfg := cfg.Backoff
	if bcfg.Clock == nil {
		bcfg.Clock = c.clock
	}
	sched, err := backoff.NewScheduler(bcfg, c.onBackoffExpired)
	if err != nil {
		return nil, err
	}
	c.scheduler = sched

	var popts []peerset.Option
	if c.tracer != nil {
		popts = append(popts, peerset.WithTracer(c.tracer))
	}

	for _, pc := range cfg.Protocols {
		set, handle, err := peerset.New(pc.Peerset, &c.connected, book, popts...)
		if err != nil {
			c.closeSets()
			sched.Close()
			return nil, err
		}
		proto := pc.Peerset.Protocol
		c.protocols = append(c.protocols, proto)
		c.sets[proto] = &protocolSet{
			set:      set,
			handle:   handle,
			interval: pc.SlotAllocationInterval,
			inflight: make(types.PeerIDSet),
		}
		book.RegisterProtocol(handle)
	}

	transport.SetReporter(c)
	return c, nil
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 为每个协议分配初始槽位，并启动动作循环与槽位分配循环
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return peerset.ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	c.cancel = cancel
	c.group = g

	for _, proto := range c.protocols {
		proto := proto
		ps := c.sets[proto]

		// 启动时立即分配一次，之后按间隔补齐
		ps.mu.Lock()
		n := ps.set.AllocateSlots()
		ps.mu.Unlock()
		logger.Debug("初始槽位分配", "protocol", proto, "peers", n)

		g.Go(func() error { return c.actionLoop(gctx, proto, ps) })
		if ps.interval > 0 {
			ticker := c.clock.Ticker(ps.interval)
			g.Go(func() error { return c.allocationLoop(gctx, proto, ps, ticker) })
		}
	}

	logger.Info("通知控制器已启动", "protocols", len(c.protocols))
	return nil
}

// Stop 停止所有循环与退避定时器，之后命令句柄返回 peerset.ErrClosed
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	cancel, g := c.cancel, c.group
	c.mu.Unlock()

	c.scheduler.Close()
	c.closeSets()

	var err error
	if cancel != nil {
		cancel()
		err = g.Wait()
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("通知控制器已停止", "connected", c.connected.Load())
	return err
}

func (c *Controller) closeSets() {
	for _, ps := range c.sets {
		ps.set.Close()
	}
}

// ============================================================================
//                              循环
// ============================================================================

// actionLoop 取出动作并交给传输层
//
// Poll 在锁内执行，等待在锁外进行，传输层回报因此可以并发进入。
func (c *Controller) actionLoop(ctx context.Context, proto types.ProtocolID, ps *protocolSet) error {
	for {
		ps.mu.Lock()
		action, ok := ps.set.Poll()
		ps.mu.Unlock()

		if ok {
			c.execute(ctx, proto, ps, action)
			continue
		}

		select {
		case <-ps.set.Ready():
		case <-ps.set.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// allocationLoop 周期性补齐槽位
func (c *Controller) allocationLoop(ctx context.Context, proto types.ProtocolID, ps *protocolSet, ticker *clock.Ticker) error {
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ps.mu.Lock()
			n := ps.set.AllocateSlots()
			ps.mu.Unlock()
			if n > 0 {
				logger.Debug("周期性分配槽位", "protocol", proto, "peers", n)
			}
		}
	}
}

// onBackoffExpired 退避到期：节点重新成为候选者，并回报信誉
func (c *Controller) onBackoffExpired(key backoff.Key, reason backoff.Reason) {
	ps, ok := c.sets[key.Protocol]
	if !ok {
		return
	}

	ps.mu.Lock()
	ps.set.ReportBackoffExpired(key.Peer)
	ps.mu.Unlock()

	change := DisconnectedChange
	if reason == backoff.ReasonOpenFailure {
		change = OpenFailureChange
	}
	logger.Debug("退避到期", "protocol", key.Protocol, "peer", key.Peer.ShortString(), "reason", reason)
	c.book.ReportPeer(key.Peer, change)
}

// ============================================================================
//                              访问器
// ============================================================================

// Protocols 返回按配置顺序排列的协议
func (c *Controller) Protocols() []types.ProtocolID {
	return append([]types.ProtocolID(nil), c.protocols...)
}

// Handle 返回协议的命令句柄
func (c *Controller) Handle(proto types.ProtocolID) (*peerset.Handle, bool) {
	ps, ok := c.sets[proto]
	if !ok {
		return nil, false
	}
	return ps.handle, true
}

// Connected 返回所有协议共享的已连接计数器（只读使用）
func (c *Controller) Connected() *atomic.Int64 {
	return &c.connected
}

// ConnectedPeers 返回已连接的子流数
func (c *Controller) ConnectedPeers() int64 {
	return c.connected.Load()
}

// AllocateSlots 立即为协议补齐槽位，返回新拨号的节点数
func (c *Controller) AllocateSlots(proto types.ProtocolID) (int, error) {
	ps, ok := c.sets[proto]
	if !ok {
		return 0, ErrUnknownProtocol
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.set.AllocateSlots(), nil
}

// BackoffDeadline 返回节点在协议下的退避到期时间
func (c *Controller) BackoffDeadline(proto types.ProtocolID, peer types.PeerID) (time.Time, bool) {
	return c.scheduler.Deadline(backoff.Key{Protocol: proto, Peer: peer})
}

// Status 协议状态
type Status struct {
	Protocol     types.ProtocolID
	NumIn        int
	NumOut       int
	MaxIn        int
	MaxOut       int
	ReservedOnly bool
	Reserved     []types.PeerID
	Peers        map[types.PeerID]peerset.PeerState
}

// Status 返回协议状态快照
func (c *Controller) Status(proto types.ProtocolID) (Status, bool) {
	ps, ok := c.sets[proto]
	if !ok {
		return Status{}, false
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	return Status{
		Protocol:     proto,
		NumIn:        ps.set.NumIn(),
		NumOut:       ps.set.NumOut(),
		MaxIn:        ps.set.MaxIn(),
		MaxOut:       ps.set.MaxOut(),
		ReservedOnly: ps.set.ReservedOnly(),
		Reserved:     ps.set.ReservedPeers(),
		Peers:        ps.set.Peers(),
	}, true
}
