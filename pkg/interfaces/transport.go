package interfaces

import (
	"context"
	"fmt"

	"github.com/dep2p/go-peerset/pkg/types"
)

// Transport 定义通知传输层接口
//
// Transport 拥有物理连接，按批次执行 peerset 产生的动作，
// 并通过 SubstreamReporter 异步回报每个节点的结果。
type Transport interface {
	// OpenSubstream 为 peers 中的每个节点打开 protocol 子流
	//
	// 返回的错误表示批次未能完整提交：由 *PeerError 组成的 multierr 只涉及其中的节点，
	// 其他错误涉及整个批次。已提交节点的失败通过
	// SubstreamReporter.ReportSubstreamOpenFailure 回报。
	OpenSubstream(ctx context.Context, protocol types.ProtocolID, peers []types.PeerID) error

	// CloseSubstream 关闭 peers 中每个节点的 protocol 子流
	//
	// 打开尚未完成的子流在打开结果出来后关闭，结果仍经由 SubstreamReporter 回报。
	// 返回的错误按 OpenSubstream 的规则拆分；仍在打开中的节点不会因错误被视为已关闭。
	CloseSubstream(ctx context.Context, protocol types.ProtocolID, peers []types.PeerID) error

	// SetReporter 设置结果回报对象
	SetReporter(r SubstreamReporter)
}

// SubstreamReporter 接收传输层的子流生命周期回报
//
// 所有方法都是同步的：返回之前回报已经生效。
type SubstreamReporter interface {
	// ReportInboundSubstream 远端打开了入站子流，返回是否接受
	ReportInboundSubstream(protocol types.ProtocolID, peer types.PeerID) types.ValidationResult

	// ReportSubstreamOpened 子流已打开，返回 false 时调用方必须关闭该子流
	ReportSubstreamOpened(protocol types.ProtocolID, peer types.PeerID, dir types.Direction) bool

	// ReportSubstreamOpenFailure 子流打开失败
	ReportSubstreamOpenFailure(protocol types.ProtocolID, peer types.PeerID, err error)

	// ReportSubstreamClosed 子流已关闭
	ReportSubstreamClosed(protocol types.ProtocolID, peer types.PeerID)

	// ReportSubstreamRejected 上层协议拒绝了已接受的子流
	ReportSubstreamRejected(protocol types.ProtocolID, peer types.PeerID)
}

// PeerError 单个节点的提交失败
type PeerError struct {
	Peer types.PeerID
	Err  error
}

// Error 实现 error 接口
func (e *PeerError) Error() string {
	return fmt.Sprintf("peer %s: %v", e.Peer.ShortString(), e.Err)
}

// Unwrap 返回底层错误
func (e *PeerError) Unwrap() error {
	return e.Err
}
