package interfaces

import (
	"github.com/dep2p/go-peerset/pkg/types"
)

// PeerSource 是 peerset 核心对 Peerstore 的只读视图
type PeerSource interface {
	// OutgoingCandidates 返回最多 count 个出站候选节点
	//
	// 按信誉从高到低排序，跳过 ignore 中的节点与已封禁节点。
	OutgoingCandidates(count int, ignore types.PeerIDSet) []types.PeerID

	// IsBanned 检查节点是否被封禁
	IsBanned(peer types.PeerID) bool
}

// Peerstore 定义节点信息存储接口
//
// 持有已知节点及其信誉；信誉低于封禁阈值的节点被视为封禁，
// 并通过已注册的 ProtocolHandle 通知各协议断开该节点。
type Peerstore interface {
	PeerSource

	// AddPeer 添加已知节点（已存在则忽略）
	AddPeer(peer types.PeerID)

	// ReportPeer 调整节点信誉
	ReportPeer(peer types.PeerID, change types.ReputationChange)

	// PeerReputation 返回节点当前信誉
	PeerReputation(peer types.PeerID) int32

	// Peers 返回所有已知节点
	Peers() []types.PeerID

	// RegisterProtocol 注册协议句柄，节点被封禁时收到断开请求
	RegisterProtocol(handle ProtocolHandle)

	// Close 关闭存储
	Close() error
}

// ProtocolHandle 协议句柄
type ProtocolHandle interface {
	// DisconnectPeer 请求协议断开节点
	DisconnectPeer(peer types.PeerID) error
}
