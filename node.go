package peerset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-peerset/config"
	"github.com/dep2p/go-peerset/internal/core/metrics"
	"github.com/dep2p/go-peerset/internal/core/notification"
	corepeerset "github.com/dep2p/go-peerset/internal/core/peerset"
	"github.com/dep2p/go-peerset/internal/core/peerstore"
	"github.com/dep2p/go-peerset/internal/core/transport/memory"
	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/lib/log"
	"github.com/dep2p/go-peerset/pkg/types"
)

var logger = log.Logger("peerset")

// 生命周期常量
const (
	// startTimeout Fx App 启动超时
	startTimeout = 15 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 10 * time.Second
)

// 类型别名，调用方无需导入 internal 包
type (
	// Handle 协议命令句柄
	Handle = corepeerset.Handle

	// PeerState 节点状态
	PeerState = corepeerset.PeerState

	// Status 协议状态
	Status = notification.Status

	// NodeSnapshot 节点状态快照
	NodeSnapshot = metrics.NodeSnapshot
)

// Node peerset 节点
//
// 组装 Peerstore、各协议的 peerset 控制器、模拟传输与可选的指标、存储模块。
type Node struct {
	mu sync.Mutex

	config *config.Config
	app    *fx.App

	controller *notification.Controller
	peerstore  interfaces.Peerstore
	book       *peerstore.Peerstore
	transport  interfaces.Transport
	memory     *memory.Transport
	registry   *prometheus.Registry
	tracer     *metrics.Tracer
	snapshot   *metrics.SnapshotLogger

	started bool
	closed  bool
}

// New 创建节点（不启动）
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	if err := o.apply(opts...); err != nil {
		return nil, fmt.Errorf("apply options: %w", err)
	}

	cfg, err := o.unified()
	if err != nil {
		return nil, err
	}

	node := &Node{config: cfg}
	app, err := buildFxApp(cfg, o, node)
	if err != nil {
		return nil, err
	}
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	node.app = app
	return node, nil
}

// Start 创建并启动节点
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, err
	}
	return node, nil
}

// Start 启动节点
//
// 依次启动 Peerstore（写入已知节点）、模拟传输（写入远端节点）与各协议控制器。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		logger.Error("节点启动失败", "error", err)
		return fmt.Errorf("start failed: %w", err)
	}
	n.started = true

	logger.Info("节点已启动",
		"protocols", len(n.config.Protocols),
		"knownPeers", len(n.peerstore.Peers()))
	return nil
}

// Close 停止节点，重复调用无效
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	if !n.started {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := n.app.Stop(stopCtx); err != nil {
		logger.Warn("节点停止时出错", "error", err)
		return err
	}
	logger.Info("节点已停止")
	return nil
}

// Done 返回 Fx 应用的关闭信号通道
func (n *Node) Done() <-chan fx.ShutdownSignal {
	return n.app.Wait()
}

// ════════════════════════════════════════════════════════════════════════════
//                              访问器
// ════════════════════════════════════════════════════════════════════════════

// Config 返回节点使用的配置（只读）
func (n *Node) Config() *config.Config {
	return n.config
}

// Protocols 返回配置的协议
func (n *Node) Protocols() []types.ProtocolID {
	return n.controller.Protocols()
}

// Handle 返回协议的命令句柄
func (n *Node) Handle(proto types.ProtocolID) (*Handle, error) {
	h, ok := n.controller.Handle(proto)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, proto)
	}
	return h, nil
}

// Status 返回协议的槽位与节点状态
func (n *Node) Status(proto types.ProtocolID) (Status, error) {
	st, ok := n.controller.Status(proto)
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownProtocol, proto)
	}
	return st, nil
}

// ConnectedPeers 返回所有协议的已连接子流数
func (n *Node) ConnectedPeers() int64 {
	return n.controller.ConnectedPeers()
}

// AllocateSlots 立即为协议补齐出站槽位
func (n *Node) AllocateSlots(proto types.ProtocolID) (int, error) {
	return n.controller.AllocateSlots(proto)
}

// Peerstore 返回节点信誉存储
func (n *Node) Peerstore() interfaces.Peerstore {
	return n.peerstore
}

// ReportPeer 调整节点信誉
func (n *Node) ReportPeer(peer types.PeerID, change types.ReputationChange) {
	n.peerstore.ReportPeer(peer, change)
}

// BannedPeers 返回被封禁的节点数
func (n *Node) BannedPeers() int {
	return n.book.BannedCount()
}

// Transport 返回通知传输层
func (n *Node) Transport() interfaces.Transport {
	return n.transport
}

// SimulatedTransport 返回内存模拟传输，未使用时为 nil
func (n *Node) SimulatedTransport() *memory.Transport {
	return n.memory
}

// Registry 返回 Prometheus 注册器，未开启指标时为 nil
func (n *Node) Registry() *prometheus.Registry {
	return n.registry
}

// Snapshot 收集当前节点快照，未开启指标时返回 nil
func (n *Node) Snapshot() *NodeSnapshot {
	if n.tracer == nil {
		return nil
	}
	if n.snapshot != nil {
		return n.snapshot.Collect()
	}
	s := metrics.NewSnapshotLogger(n.tracer, 0)
	s.SetConnected(n.controller.Connected())
	s.SetPeerBook(n.book)
	return s.Collect()
}
