package peerset

import (
	"github.com/dep2p/go-peerset/pkg/types"
)

// ============================================================================
//                              传输层同步回报
// ============================================================================

// ReportInboundSubstream 远端打开了入站子流，决定是否接受
//
// 封禁节点、Canceled 节点直接拒绝。若节点处于 Opening(Outbound(r))（双向同时拨号），
// 总是接受；在保留节点或有空闲入站槽位时把条目改标为 Opening(Inbound(r))，
// 否则保留出站标记与出站槽位。其余节点在保留节点或有空闲入站槽位时
// 进入 Opening(Inbound)，仅保留节点模式下拒绝普通节点。
func (p *Peerset) ReportInboundSubstream(peer types.PeerID) types.ValidationResult {
	result := p.validateInbound(peer)
	p.tracer.InboundValidated(p.protocol, result)
	return result
}

func (p *Peerset) validateInbound(peer types.PeerID) types.ValidationResult {
	if p.source.IsBanned(peer) {
		logger.Debug("拒绝已封禁节点", "protocol", p.protocol, "peer", peer)
		return types.ValidationReject
	}

	if state, ok := p.peers[peer]; ok {
		switch state.Kind {
		case StateBackoff:
			// 退避中的节点也按槽位规则接受，退避到期时忽略
		case StateOpening:
			if state.Direction.IsInbound() {
				p.invariant("重复的入站子流", "peer", peer, "state", state)
				return types.ValidationReject
			}
			r := state.Direction.Reserved
			// 入站槽位已满时保留出站标记，否则普通节点的改标会让 numIn 超过 maxIn
			if r == ReservedYes || p.numIn < p.maxIn {
				p.transition(peer, Opening(Inbound(r)))
			}
			logger.Debug("出站打开中收到入站子流", "protocol", p.protocol, "peer", peer, "reserved", r)
			return types.ValidationAccept
		case StateCanceled:
			logger.Debug("节点已取消，拒绝入站子流", "protocol", p.protocol, "peer", peer)
			return types.ValidationReject
		default:
			p.invariant("入站子流状态无效", "peer", peer, "state", state)
			return types.ValidationReject
		}
	}

	if p.reserved.Has(peer) {
		p.transition(peer, Opening(Inbound(ReservedYes)))
		return types.ValidationAccept
	}

	if p.reservedOnly {
		logger.Debug("仅保留节点模式，拒绝入站子流", "protocol", p.protocol, "peer", peer)
		return types.ValidationReject
	}

	if p.numIn < p.maxIn {
		p.transition(peer, Opening(Inbound(ReservedNo)))
		return types.ValidationAccept
	}

	logger.Debug("入站槽位已满，拒绝", "protocol", p.protocol, "peer", peer, "numIn", p.numIn)
	return types.ValidationReject
}

// ReportSubstreamOpened 子流已打开
//
// Opening(d) → Connected(d)，返回 true。Canceled(d) → Closing(d)，返回 false，
// 调用方必须直接关闭刚打开的子流（不会产生 CloseSubstream 动作）。
// 已在 Closing 的节点返回 false 并保持 Closing。
//
// dir 是传输层看到的方向；双向同时拨号时它可能与 Peerset 记录的方向不同，
// 以 Peerset 记录的为准。
func (p *Peerset) ReportSubstreamOpened(peer types.PeerID, dir types.Direction) bool {
	state, ok := p.peers[peer]
	if !ok {
		p.invariant("未知节点的子流打开", "peer", peer, "direction", dir)
		return false
	}

	switch state.Kind {
	case StateOpening:
		if state.Direction.Kind != dir {
			logger.Debug("子流方向与记录不一致", "protocol", p.protocol, "peer", peer,
				"reported", dir, "recorded", state.Direction)
		}
		p.transition(peer, Connected(state.Direction))
		return true
	case StateCanceled:
		logger.Debug("子流已取消，需要关闭", "protocol", p.protocol, "peer", peer)
		p.transition(peer, Closing(state.Direction))
		return false
	case StateClosing:
		logger.Debug("子流在关闭中打开", "protocol", p.protocol, "peer", peer)
		return false
	default:
		p.invariant("子流打开状态无效", "peer", peer, "state", state)
		return false
	}
}

// ReportSubstreamOpenFailure 子流打开失败
//
// Opening/Canceled/Closing → Backoff 并释放槽位，不产生动作。
// 退避时长由调用方决定。其他状态忽略。
func (p *Peerset) ReportSubstreamOpenFailure(peer types.PeerID, err error) {
	state := p.peers[peer]

	switch state.Kind {
	case StateOpening, StateCanceled, StateClosing:
		logger.Debug("子流打开失败", "protocol", p.protocol, "peer", peer, "state", state, "err", err)
		p.transition(peer, Backoff())
	default:
		logger.Debug("未知状态的子流打开失败", "protocol", p.protocol, "peer", peer, "state", state, "err", err)
	}
}

// ReportSubstreamClosed 子流已关闭
//
// Connected/Closing → Backoff 并释放槽位。
func (p *Peerset) ReportSubstreamClosed(peer types.PeerID) {
	state, ok := p.peers[peer]
	if !ok {
		p.invariant("未知节点的子流关闭", "peer", peer)
		return
	}

	switch state.Kind {
	case StateConnected, StateClosing:
		logger.Debug("子流已关闭", "protocol", p.protocol, "peer", peer, "state", state)
		p.transition(peer, Backoff())
	default:
		p.invariant("子流关闭状态无效", "peer", peer, "state", state)
	}
}

// ReportSubstreamRejected 上层协议拒绝了已接受的子流
//
// Opening → 删除条目（重新成为候选者）并释放槽位。其他状态不变。
func (p *Peerset) ReportSubstreamRejected(peer types.PeerID) {
	state, ok := p.peers[peer]
	if !ok {
		return
	}

	switch state.Kind {
	case StateOpening:
		if state.Direction.Reserved == ReservedYes {
			logger.Warn("保留节点被协议拒绝", "protocol", p.protocol, "peer", peer)
		}
		p.transition(peer, PeerState{})
	default:
		logger.Debug("协议拒绝了非打开中的节点", "protocol", p.protocol, "peer", peer, "state", state)
	}
}

// ReportBackoffExpired 退避到期
//
// Backoff → 删除条目，节点重新成为候选者。其他状态（例如退避期间被接受的入站节点）忽略。
func (p *Peerset) ReportBackoffExpired(peer types.PeerID) {
	if state, ok := p.peers[peer]; ok && state.Kind == StateBackoff {
		p.transition(peer, PeerState{})
	}
}
