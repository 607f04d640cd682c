package notification

import (
	"context"
	"errors"

	"go.uber.org/multierr"

	"github.com/dep2p/go-peerset/internal/core/backoff"
	"github.com/dep2p/go-peerset/internal/core/peerset"
	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/types"
)

// ============================================================================
//                              执行动作
// ============================================================================

// execute 把动作交给传输层
//
// 提交失败的节点按失败回报：打开失败进入 Backoff；关闭失败视为已关闭，
// 但打开结果未出的节点除外，它们等待传输层回报。
func (c *Controller) execute(ctx context.Context, proto types.ProtocolID, ps *protocolSet, action peerset.Action) {
	switch action.Kind {
	case peerset.ActionOpenSubstream:
		// 提交前登记，传输层可能在返回前就回报结果
		ps.mu.Lock()
		for _, peer := range action.Peers {
			ps.inflight[peer] = struct{}{}
		}
		ps.mu.Unlock()

		err := c.transport.OpenSubstream(ctx, proto, action.Peers)
		if err == nil {
			return
		}
		failed := failedPeers(err, action.Peers)
		logger.Warn("提交打开子流失败", "protocol", proto, "peers", len(failed), "error", err)
		for _, peer := range action.Peers {
			if perr, ok := failed[peer]; ok {
				c.ReportSubstreamOpenFailure(proto, peer, perr)
			}
		}

	case peerset.ActionCloseSubstream:
		err := c.transport.CloseSubstream(ctx, proto, action.Peers)
		if err == nil {
			return
		}
		failed := failedPeers(err, action.Peers)
		logger.Warn("提交关闭子流失败", "protocol", proto, "peers", len(failed), "error", err)
		for _, peer := range action.Peers {
			if _, ok := failed[peer]; ok {
				c.closeFailed(proto, ps, peer)
			}
		}
	}
}

// closeFailed 关闭提交失败且仍在 Closing 的节点视为已关闭
//
// 打开结果未出的节点保持 Closing，由传输层的打开结果推进。
func (c *Controller) closeFailed(proto types.ProtocolID, ps *protocolSet, peer types.PeerID) {
	ps.mu.Lock()
	state, ok := ps.set.State(peer)
	if !ok || state.Kind != peerset.StateClosing {
		ps.mu.Unlock()
		return
	}
	if ps.inflight.Has(peer) {
		ps.mu.Unlock()
		logger.Debug("节点仍在打开中，等待打开结果", "protocol", proto, "peer", peer.ShortString())
		return
	}
	ps.set.ReportSubstreamClosed(peer)
	ps.mu.Unlock()

	c.scheduler.Schedule(backoff.Key{Protocol: proto, Peer: peer}, backoff.ReasonDisconnected)
}

// failedPeers 拆分批次错误
//
// multierr 中的 *interfaces.PeerError 只涉及对应节点；其他错误涉及整个批次。
func failedPeers(err error, peers []types.PeerID) map[types.PeerID]error {
	batch := types.NewPeerIDSet(peers...)
	failed := make(map[types.PeerID]error)

	var batchErr error
	for _, e := range multierr.Errors(err) {
		var pe *interfaces.PeerError
		if errors.As(e, &pe) {
			if batch.Has(pe.Peer) {
				failed[pe.Peer] = multierr.Append(failed[pe.Peer], pe.Err)
			}
			continue
		}
		batchErr = multierr.Append(batchErr, e)
	}

	if batchErr != nil {
		for _, peer := range peers {
			if _, ok := failed[peer]; !ok {
				failed[peer] = batchErr
			}
		}
	}
	return failed
}

// ============================================================================
//                              SubstreamReporter
// ============================================================================

// ReportInboundSubstream 远端打开了入站子流
//
// 接受的节点加入 Peerstore。
func (c *Controller) ReportInboundSubstream(proto types.ProtocolID, peer types.PeerID) types.ValidationResult {
	ps, ok := c.sets[proto]
	if !ok {
		logger.Debug("未知协议的入站子流", "protocol", proto, "peer", peer.ShortString())
		return types.ValidationReject
	}

	ps.mu.Lock()
	result := ps.set.ReportInboundSubstream(peer)
	if result == types.ValidationAccept {
		ps.inflight[peer] = struct{}{}
	}
	ps.mu.Unlock()

	if result == types.ValidationAccept {
		c.book.AddPeer(peer)
	}
	return result
}

// ReportSubstreamOpened 子流已打开
//
// 节点连接成功后清除其退避状态并取消待到期定时器。
func (c *Controller) ReportSubstreamOpened(proto types.ProtocolID, peer types.PeerID, dir types.Direction) bool {
	ps, ok := c.sets[proto]
	if !ok {
		return false
	}

	ps.mu.Lock()
	delete(ps.inflight, peer)
	keep := ps.set.ReportSubstreamOpened(peer, dir)
	ps.mu.Unlock()

	if keep {
		key := backoff.Key{Protocol: proto, Peer: peer}
		c.scheduler.Cancel(key)
		c.scheduler.Reset(key)
		c.book.AddPeer(peer)
	}
	return keep
}

// ReportSubstreamOpenFailure 子流打开失败，节点进入 Backoff 时安排到期
func (c *Controller) ReportSubstreamOpenFailure(proto types.ProtocolID, peer types.PeerID, err error) {
	c.reportIntoBackoff(proto, peer, backoff.ReasonOpenFailure, func(ps *protocolSet) {
		delete(ps.inflight, peer)
		ps.set.ReportSubstreamOpenFailure(peer, err)
	})
}

// ReportSubstreamClosed 子流已关闭，节点进入 Backoff 时安排到期
func (c *Controller) ReportSubstreamClosed(proto types.ProtocolID, peer types.PeerID) {
	c.reportIntoBackoff(proto, peer, backoff.ReasonDisconnected, func(ps *protocolSet) {
		ps.set.ReportSubstreamClosed(peer)
	})
}

// ReportSubstreamRejected 上层协议拒绝了已接受的子流
func (c *Controller) ReportSubstreamRejected(proto types.ProtocolID, peer types.PeerID) {
	ps, ok := c.sets[proto]
	if !ok {
		return
	}

	ps.mu.Lock()
	delete(ps.inflight, peer)
	ps.set.ReportSubstreamRejected(peer)
	ps.mu.Unlock()
}

// reportIntoBackoff 在锁内执行回报，节点刚进入 Backoff 时安排退避
func (c *Controller) reportIntoBackoff(proto types.ProtocolID, peer types.PeerID, reason backoff.Reason, report func(*protocolSet)) {
	ps, ok := c.sets[proto]
	if !ok {
		return
	}

	ps.mu.Lock()
	before, _ := ps.set.State(peer)
	report(ps)
	after, _ := ps.set.State(peer)
	ps.mu.Unlock()

	if after.Kind == peerset.StateBackoff && before.Kind != peerset.StateBackoff {
		d := c.scheduler.Schedule(backoff.Key{Protocol: proto, Peer: peer}, reason)
		logger.Debug("节点进入退避", "protocol", proto, "peer", peer.ShortString(), "reason", reason, "delay", d)
	}
}
