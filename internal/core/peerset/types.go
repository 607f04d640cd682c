package peerset

import (
	"fmt"

	"github.com/dep2p/go-peerset/pkg/types"
)

// ============================================================================
//                              Reserved
// ============================================================================

// Reserved 记录节点进入当前状态时是否为保留节点
//
// 该标记保存在状态内部而不是实时查询，
// 因此保留集合变化后，进行中的动作依然自描述。
type Reserved bool

const (
	// ReservedNo 普通节点
	ReservedNo Reserved = false
	// ReservedYes 保留节点
	ReservedYes Reserved = true
)

// String 返回字符串表示
func (r Reserved) String() string {
	if r {
		return "reserved"
	}
	return "regular"
}

// ============================================================================
//                              Direction
// ============================================================================

// Direction 子流方向及发起时的保留标记
type Direction struct {
	Kind     types.Direction
	Reserved Reserved
}

// Inbound 入站方向
func Inbound(r Reserved) Direction {
	return Direction{Kind: types.DirInbound, Reserved: r}
}

// Outbound 出站方向
func Outbound(r Reserved) Direction {
	return Direction{Kind: types.DirOutbound, Reserved: r}
}

// IsInbound 是否为入站
func (d Direction) IsInbound() bool {
	return d.Kind == types.DirInbound
}

// String 返回字符串表示，如 outbound(reserved)
func (d Direction) String() string {
	return fmt.Sprintf("%s(%s)", d.Kind, d.Reserved)
}

// ============================================================================
//                              PeerState
// ============================================================================

// StateKind 节点状态类别
type StateKind int

const (
	// StateAbsent 无条目，节点是候选者（不会出现在状态表中）
	StateAbsent StateKind = iota
	// StateBackoff 退避中，暂时不是拨号候选者
	StateBackoff
	// StateOpening 子流正在打开
	StateOpening
	// StateConnected 子流已打开
	StateConnected
	// StateClosing 已请求关闭，等待确认
	StateClosing
	// StateCanceled 打开中的子流被取消，等待传输层结果
	StateCanceled
)

// String 返回字符串表示
func (k StateKind) String() string {
	switch k {
	case StateBackoff:
		return "backoff"
	case StateOpening:
		return "opening"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateCanceled:
		return "canceled"
	default:
		return "absent"
	}
}

// PeerState 节点状态
//
// Backoff 与 Absent 不携带方向。
type PeerState struct {
	Kind      StateKind
	Direction Direction
}

// Backoff 退避状态
func Backoff() PeerState { return PeerState{Kind: StateBackoff} }

// Opening 打开中状态
func Opening(d Direction) PeerState { return PeerState{Kind: StateOpening, Direction: d} }

// Connected 已连接状态
func Connected(d Direction) PeerState { return PeerState{Kind: StateConnected, Direction: d} }

// Closing 关闭中状态
func Closing(d Direction) PeerState { return PeerState{Kind: StateClosing, Direction: d} }

// Canceled 已取消状态
func Canceled(d Direction) PeerState { return PeerState{Kind: StateCanceled, Direction: d} }

// occupiesSlot 状态是否占用槽位
func (s PeerState) occupiesSlot() bool {
	switch s.Kind {
	case StateOpening, StateConnected, StateClosing, StateCanceled:
		return true
	default:
		return false
	}
}

// String 返回字符串表示，如 opening(outbound(regular))
func (s PeerState) String() string {
	if !s.occupiesSlot() {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.Direction)
}

// ============================================================================
//                              Action
// ============================================================================

// ActionKind 动作类别
type ActionKind int

const (
	// ActionOpenSubstream 打开子流
	ActionOpenSubstream ActionKind = iota
	// ActionCloseSubstream 关闭子流
	ActionCloseSubstream
)

// String 返回字符串表示
func (k ActionKind) String() string {
	if k == ActionOpenSubstream {
		return "open"
	}
	return "close"
}

// Action 交给传输层的批量动作
//
// 一个命令或事件影响的全部节点放在同一个批次中，Peers 按字典序排列。
type Action struct {
	Kind  ActionKind
	Peers []types.PeerID
}

// String 返回字符串表示
func (a Action) String() string {
	return fmt.Sprintf("%s%v", a.Kind, a.Peers)
}
