package peerset

import (
	"github.com/dep2p/go-peerset/pkg/types"
)

// processCommand 完整处理一条命令，产生零个或多个排队动作
func (p *Peerset) processCommand(cmd command) {
	logger.Debug("处理命令", "protocol", p.protocol, "command", cmd.kind, "peers", len(cmd.peers))

	switch cmd.kind {
	case cmdSetReservedPeers:
		p.setReservedPeers(types.NewPeerIDSet(cmd.peers...))
	case cmdAddReservedPeers:
		p.enqueue(p.addReservedPeers(cmd.peers))
	case cmdRemoveReservedPeers:
		p.enqueue(p.removeReservedPeers(cmd.peers))
	case cmdSetReservedOnly:
		p.setReservedOnly(cmd.reservedOnly)
	case cmdDisconnectPeer:
		p.disconnectPeer(cmd.peer)
	case cmdGetReservedPeers:
		cmd.reply <- p.reserved.Slice()
	}

	p.tracer.CommandProcessed(p.protocol, cmd.kind.String())
}

// addReservedPeers 并入保留集合，对无条目的节点发起出站打开
//
// 已有条目的节点（Opening/Connected/Closing/Canceled/Backoff）保持不变。
// 返回的批次可能为空。
func (p *Peerset) addReservedPeers(peers []types.PeerID) Action {
	open := make([]types.PeerID, 0, len(peers))
	for _, peer := range types.NewPeerIDSet(peers...).Slice() {
		p.reserved[peer] = struct{}{}

		if _, ok := p.peers[peer]; ok {
			continue
		}
		p.transition(peer, Opening(Outbound(ReservedYes)))
		open = append(open, peer)
	}

	return Action{Kind: ActionOpenSubstream, Peers: open}
}

// removeReservedPeers 从保留集合移除，关闭其中 Opening/Connected 的节点
//
// 不在保留集合中的节点被忽略。返回的批次可能为空。
func (p *Peerset) removeReservedPeers(peers []types.PeerID) Action {
	closing := make([]types.PeerID, 0, len(peers))
	for _, peer := range types.NewPeerIDSet(peers...).Slice() {
		if !p.reserved.Has(peer) {
			continue
		}
		delete(p.reserved, peer)

		state := p.peers[peer]
		switch state.Kind {
		case StateOpening, StateConnected:
			p.transition(peer, Closing(state.Direction))
			closing = append(closing, peer)
		}
	}

	return Action{Kind: ActionCloseSubstream, Peers: closing}
}

// setReservedPeers 替换保留集合
//
// 先排队移除部分的关闭批次，再排队新增部分的打开批次；交集不受影响。
func (p *Peerset) setReservedPeers(next types.PeerIDSet) {
	var removed, added []types.PeerID
	for peer := range p.reserved {
		if !next.Has(peer) {
			removed = append(removed, peer)
		}
	}
	for peer := range next {
		if !p.reserved.Has(peer) {
			added = append(added, peer)
		}
	}

	p.enqueue(p.removeReservedPeers(removed))
	p.enqueue(p.addReservedPeers(added))
}

// setReservedOnly 切换仅保留节点模式
//
// 打开时：非保留的 Connected → Closing 并放入一个关闭批次，
// 非保留的 Opening → Canceled。关闭时不产生动作。
func (p *Peerset) setReservedOnly(on bool) {
	p.reservedOnly = on
	if !on {
		return
	}

	closing := make([]types.PeerID, 0)
	for peer, state := range p.peers {
		if p.reserved.Has(peer) {
			continue
		}
		switch state.Kind {
		case StateConnected:
			p.transition(peer, Closing(state.Direction))
			closing = append(closing, peer)
		case StateOpening:
			p.transition(peer, Canceled(state.Direction))
		}
	}

	p.enqueue(Action{Kind: ActionCloseSubstream, Peers: types.SortPeerIDs(closing)})
}

// disconnectPeer 断开节点
//
// Opening → Canceled（不产生动作，等待传输层结果）；
// Connected → Closing 并产生单节点关闭批次；其他状态忽略。
func (p *Peerset) disconnectPeer(peer types.PeerID) {
	state, ok := p.peers[peer]
	if !ok {
		return
	}

	switch state.Kind {
	case StateOpening:
		p.transition(peer, Canceled(state.Direction))
	case StateConnected:
		p.transition(peer, Closing(state.Direction))
		p.enqueue(Action{Kind: ActionCloseSubstream, Peers: []types.PeerID{peer}})
	default:
		logger.Debug("断开请求被忽略", "protocol", p.protocol, "peer", peer, "state", state)
	}
}
