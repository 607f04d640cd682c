package types

import "sort"

// ============================================================================
//                              PeerID - 节点标识
// ============================================================================

// PeerID 远端节点标识符
//
// 对 peerset 而言是不透明的：可比较、可哈希、全序，
// 内部结构不被解释。
type PeerID string

// EmptyPeerID 空节点 ID
const EmptyPeerID PeerID = ""

// String 返回 PeerID 字符串
func (id PeerID) String() string {
	return string(id)
}

// ShortString 返回 PeerID 的短字符串表示（日志用）
func (id PeerID) ShortString() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// IsEmpty 检查 PeerID 是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// SortPeerIDs 原地排序并返回切片
//
// 批量动作中的节点顺序按字典序，便于日志与测试比对。
func SortPeerIDs(peers []PeerID) []PeerID {
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

// PeerIDSet 节点集合
type PeerIDSet map[PeerID]struct{}

// NewPeerIDSet 从切片创建集合
func NewPeerIDSet(peers ...PeerID) PeerIDSet {
	s := make(PeerIDSet, len(peers))
	for _, p := range peers {
		s[p] = struct{}{}
	}
	return s
}

// Has 检查集合是否包含 peer
func (s PeerIDSet) Has(peer PeerID) bool {
	_, ok := s[peer]
	return ok
}

// Slice 返回排序后的切片
func (s PeerIDSet) Slice() []PeerID {
	out := make([]PeerID, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return SortPeerIDs(out)
}

// ============================================================================
//                              ProtocolID - 协议标识
// ============================================================================

// ProtocolID 通知协议标识符
// 格式: /name/version，如 /block-announces/1
type ProtocolID string

// String 返回协议ID字符串
func (p ProtocolID) String() string {
	return string(p)
}
