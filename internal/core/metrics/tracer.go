package metrics

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-peerset/internal/core/peerset"
	"github.com/dep2p/go-peerset/pkg/lib/log"
	"github.com/dep2p/go-peerset/pkg/types"
)

var logger = log.Logger("core/metrics")

const metricNamespace = "peerset"

// 确保实现了接口
var _ peerset.Tracer = (*Tracer)(nil)

// PeerBook Peerstore 的统计视图
type PeerBook interface {
	Len() int
	BannedCount() int
}

// Tracer 基于 Prometheus 的 peerset.Tracer
//
// 同时在内存中维护每个协议的计数，供 Snapshot 使用。
type Tracer struct {
	reg prometheus.Registerer

	transitions *prometheus.CounterVec
	peers       *prometheus.GaugeVec
	slots       *prometheus.GaugeVec
	inbound     *prometheus.CounterVec
	actions     *prometheus.CounterVec
	batchSize   *prometheus.HistogramVec
	commands    *prometheus.CounterVec

	mu        sync.Mutex
	protocols map[types.ProtocolID]*protocolStats
}

// protocolStats 单个协议的内存计数
type protocolStats struct {
	numIn, numOut int
	states        map[peerset.StateKind]int
	accepted      uint64
	rejected      uint64
	opens         uint64
	closes        uint64
	commands      uint64
}

// tracerSetting Tracer 配置
type tracerSetting struct {
	reg prometheus.Registerer
}

// Option Tracer 选项
type Option func(*tracerSetting)

// WithRegisterer 设置 Prometheus 注册器，默认 prometheus.DefaultRegisterer
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *tracerSetting) {
		if reg != nil {
			s.reg = reg
		}
	}
}

// NewTracer 创建 Tracer 并注册收集器
//
// 同一注册器上重复创建时复用已注册的收集器。
func NewTracer(opts ...Option) *Tracer {
	setting := &tracerSetting{reg: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(setting)
	}

	t := &Tracer{
		reg: setting.reg,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "state_transitions_total",
				Help:      "节点状态转换次数",
			},
			[]string{"protocol", "from", "to"},
		),
		peers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "peers",
				Help:      "各状态的节点数",
			},
			[]string{"protocol", "state"},
		),
		slots: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "slots",
				Help:      "已占用的槽位数",
			},
			[]string{"protocol", "direction"},
		),
		inbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "inbound_total",
				Help:      "入站子流校验结果",
			},
			[]string{"protocol", "result"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "actions_total",
				Help:      "交给传输层的动作批次数",
			},
			[]string{"protocol", "kind"},
		),
		batchSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      "action_batch_size",
				Help:      "动作批次中的节点数",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"protocol", "kind"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "commands_total",
				Help:      "处理的命令数",
			},
			[]string{"protocol", "command"},
		),
		protocols: make(map[types.ProtocolID]*protocolStats),
	}

	t.transitions = registerOrExisting(t.reg, t.transitions)
	t.peers = registerOrExisting(t.reg, t.peers)
	t.slots = registerOrExisting(t.reg, t.slots)
	t.inbound = registerOrExisting(t.reg, t.inbound)
	t.actions = registerOrExisting(t.reg, t.actions)
	t.batchSize = registerOrExisting(t.reg, t.batchSize)
	t.commands = registerOrExisting(t.reg, t.commands)
	return t
}

// RegisterConnected 暴露所有协议共享的已连接计数
func (t *Tracer) RegisterConnected(counter *atomic.Int64) {
	RegisterCollectors(t.reg, prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "connected_peers",
			Help:      "所有协议共享的已连接节点计数",
		},
		func() float64 { return float64(counter.Load()) },
	))
}

// RegisterPeerBook 暴露 Peerstore 的已知节点数与封禁节点数
func (t *Tracer) RegisterPeerBook(book PeerBook) {
	RegisterCollectors(t.reg,
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "known_peers",
				Help:      "Peerstore 中的已知节点数",
			},
			func() float64 { return float64(book.Len()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "banned_peers",
				Help:      "信誉低于封禁阈值的节点数",
			},
			func() float64 { return float64(book.BannedCount()) },
		),
	)
}

// ============================================================================
//                              peerset.Tracer
// ============================================================================

// StateChanged 记录状态转换
func (t *Tracer) StateChanged(protocol types.ProtocolID, _ types.PeerID, from, to peerset.PeerState) {
	proto := string(protocol)
	t.transitions.WithLabelValues(proto, from.Kind.String(), to.Kind.String()).Inc()
	if from.Kind != peerset.StateAbsent {
		t.peers.WithLabelValues(proto, from.Kind.String()).Dec()
	}
	if to.Kind != peerset.StateAbsent {
		t.peers.WithLabelValues(proto, to.Kind.String()).Inc()
	}

	t.mu.Lock()
	s := t.stats(protocol)
	if from.Kind != peerset.StateAbsent {
		s.states[from.Kind]--
		if s.states[from.Kind] <= 0 {
			delete(s.states, from.Kind)
		}
	}
	if to.Kind != peerset.StateAbsent {
		s.states[to.Kind]++
	}
	t.mu.Unlock()
}

// SlotsChanged 记录槽位占用
func (t *Tracer) SlotsChanged(protocol types.ProtocolID, numIn, numOut int) {
	proto := string(protocol)
	t.slots.WithLabelValues(proto, types.DirInbound.String()).Set(float64(numIn))
	t.slots.WithLabelValues(proto, types.DirOutbound.String()).Set(float64(numOut))

	t.mu.Lock()
	s := t.stats(protocol)
	s.numIn, s.numOut = numIn, numOut
	t.mu.Unlock()
}

// InboundValidated 记录入站校验结果
func (t *Tracer) InboundValidated(protocol types.ProtocolID, result types.ValidationResult) {
	t.inbound.WithLabelValues(string(protocol), result.String()).Inc()

	t.mu.Lock()
	s := t.stats(protocol)
	if result == types.ValidationAccept {
		s.accepted++
	} else {
		s.rejected++
	}
	t.mu.Unlock()
}

// ActionEmitted 记录动作批次
func (t *Tracer) ActionEmitted(protocol types.ProtocolID, action peerset.Action) {
	proto, kind := string(protocol), action.Kind.String()
	t.actions.WithLabelValues(proto, kind).Inc()
	t.batchSize.WithLabelValues(proto, kind).Observe(float64(len(action.Peers)))

	t.mu.Lock()
	s := t.stats(protocol)
	if action.Kind == peerset.ActionOpenSubstream {
		s.opens++
	} else {
		s.closes++
	}
	t.mu.Unlock()
}

// CommandProcessed 记录命令
func (t *Tracer) CommandProcessed(protocol types.ProtocolID, command string) {
	t.commands.WithLabelValues(string(protocol), command).Inc()

	t.mu.Lock()
	t.stats(protocol).commands++
	t.mu.Unlock()
}

// stats 返回协议计数，调用方持有 t.mu
func (t *Tracer) stats(protocol types.ProtocolID) *protocolStats {
	s, ok := t.protocols[protocol]
	if !ok {
		s = &protocolStats{states: make(map[peerset.StateKind]int)}
		t.protocols[protocol] = s
	}
	return s
}

// ============================================================================
//                              快照
// ============================================================================

// ProtocolSnapshot 单个协议的计数快照
type ProtocolSnapshot struct {
	Protocol types.ProtocolID `json:"protocol"`
	NumIn    int              `json:"numIn"`
	NumOut   int              `json:"numOut"`
	States   map[string]int   `json:"states"`
	Accepted uint64           `json:"accepted"`
	Rejected uint64           `json:"rejected"`
	Opens    uint64           `json:"opens"`
	Closes   uint64           `json:"closes"`
	Commands uint64           `json:"commands"`
}

// Snapshot 返回按协议排序的计数快照
func (t *Tracer) Snapshot() []ProtocolSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ProtocolSnapshot, 0, len(t.protocols))
	for proto, s := range t.protocols {
		states := make(map[string]int, len(s.states))
		for k, n := range s.states {
			states[k.String()] = n
		}
		out = append(out, ProtocolSnapshot{
			Protocol: proto,
			NumIn:    s.numIn,
			NumOut:   s.numOut,
			States:   states,
			Accepted: s.accepted,
			Rejected: s.rejected,
			Opens:    s.opens,
			Closes:   s.closes,
			Commands: s.commands,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Protocol < out[j].Protocol })
	return out
}

// ============================================================================
//                              注册
// ============================================================================

// RegisterCollectors 注册收集器，忽略重复注册错误，其他错误触发 panic
func RegisterCollectors(reg prometheus.Registerer, collectors ...prometheus.Collector) {
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if ok := errors.As(err, &prometheus.AlreadyRegisteredError{}); !ok {
				panic(err)
			}
			logger.Debug("收集器已注册，跳过", "error", err)
		}
	}
}

// registerOrExisting 注册收集器；已注册时返回已存在的同类收集器
func registerOrExisting[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}
