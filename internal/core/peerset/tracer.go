package peerset

import "github.com/dep2p/go-peerset/pkg/types"

// Tracer 观察 Peerset 事件
//
// 所有方法在所有者的调用上下文中同步执行，实现不得回调 Peerset。
// internal/core/metrics 提供 prometheus 实现。
type Tracer interface {
	// StateChanged 节点状态转换；from/to 为 StateAbsent 表示无条目
	StateChanged(protocol types.ProtocolID, peer types.PeerID, from, to PeerState)

	// SlotsChanged 槽位计数变化
	SlotsChanged(protocol types.ProtocolID, numIn, numOut int)

	// InboundValidated 入站子流校验结果
	InboundValidated(protocol types.ProtocolID, result types.ValidationResult)

	// ActionEmitted 动作被交给所有者
	ActionEmitted(protocol types.ProtocolID, action Action)

	// CommandProcessed 命令处理完成
	CommandProcessed(protocol types.ProtocolID, command string)
}

type nopTracer struct{}

func (nopTracer) StateChanged(types.ProtocolID, types.PeerID, PeerState, PeerState) {}
func (nopTracer) SlotsChanged(types.ProtocolID, int, int)                          {}
func (nopTracer) InboundValidated(types.ProtocolID, types.ValidationResult)        {}
func (nopTracer) ActionEmitted(types.ProtocolID, Action)                           {}
func (nopTracer) CommandProcessed(types.ProtocolID, string)                        {}

// Option Peerset 选项
type Option func(*Peerset)

// WithTracer 设置事件观察者
func WithTracer(t Tracer) Option {
	return func(p *Peerset) {
		if t != nil {
			p.tracer = t
		}
	}
}
