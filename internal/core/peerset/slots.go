package peerset

import (
	"github.com/dep2p/go-peerset/pkg/types"
)

// AllocateSlots 补齐保留节点与空闲出站槽位
//
// 所有者周期性调用。无条目且未被封禁的保留节点进入 Opening(Outbound(Yes))；
// 非仅保留节点模式且 numOut < maxOut 时，再从 PeerSource 取最多 maxOut-numOut 个
// 候选者（跳过所有已有条目的节点）进入 Opening(Outbound(No))。
// 有节点被选中时排队一个 OpenSubstream 批次，并返回该批次的节点数。
func (p *Peerset) AllocateSlots() int {
	open := make([]types.PeerID, 0)
	for _, peer := range p.reserved.Slice() {
		if _, ok := p.peers[peer]; ok {
			continue
		}
		if p.source.IsBanned(peer) {
			continue
		}
		p.transition(peer, Opening(Outbound(ReservedYes)))
		open = append(open, peer)
	}

	if !p.reservedOnly && p.numOut < p.maxOut {
		ignore := make(types.PeerIDSet, len(p.peers))
		for peer := range p.peers {
			ignore[peer] = struct{}{}
		}

		for _, peer := range p.source.OutgoingCandidates(p.maxOut-p.numOut, ignore) {
			if ignore.Has(peer) || p.numOut >= p.maxOut {
				continue
			}
			ignore[peer] = struct{}{}
			p.transition(peer, Opening(Outbound(ReservedNo)))
			open = append(open, peer)
		}
	}

	if len(open) == 0 {
		return 0
	}

	logger.Debug("分配槽位", "protocol", p.protocol, "peers", len(open), "numOut", p.numOut)
	p.enqueue(Action{Kind: ActionOpenSubstream, Peers: types.SortPeerIDs(open)})
	return len(open)
}
