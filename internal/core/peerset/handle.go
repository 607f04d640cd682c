package peerset

import (
	"context"
	"sync"

	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/types"
)

// ============================================================================
//                              命令
// ============================================================================

// commandKind 命令类别
type commandKind int

const (
	cmdSetReservedPeers commandKind = iota
	cmdAddReservedPeers
	cmdRemoveReservedPeers
	cmdSetReservedOnly
	cmdDisconnectPeer
	cmdGetReservedPeers
)

// String 返回字符串表示（日志与指标标签）
func (k commandKind) String() string {
	switch k {
	case cmdSetReservedPeers:
		return "set_reserved_peers"
	case cmdAddReservedPeers:
		return "add_reserved_peers"
	case cmdRemoveReservedPeers:
		return "remove_reserved_peers"
	case cmdSetReservedOnly:
		return "set_reserved_only"
	case cmdDisconnectPeer:
		return "disconnect_peer"
	default:
		return "get_reserved_peers"
	}
}

// command 操作命令
type command struct {
	kind         commandKind
	peers        []types.PeerID
	peer         types.PeerID
	reservedOnly bool
	reply        chan []types.PeerID
}

// ============================================================================
//                              命令队列
// ============================================================================

// commandQueue 无界 FIFO 命令队列
//
// 发送方从不阻塞；ready 容量为 1，用于唤醒所有者。
type commandQueue struct {
	mu     sync.Mutex
	items  []command
	closed bool

	ready chan struct{}
	done  chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (q *commandQueue) push(cmd command) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	q.signal()
	return nil
}

func (q *commandQueue) pop() (command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return command{}, false
	}
	cmd := q.items[0]
	q.items[0] = command{}
	q.items = q.items[1:]
	return cmd, true
}

func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *commandQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *commandQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	close(q.done)
}

// ============================================================================
//                              Handle
// ============================================================================

// Handle 命令发送端
//
// 可以在任意 goroutine 中使用；所有方法都不阻塞（GetReservedPeers 除外）。
type Handle struct {
	protocol types.ProtocolID
	queue    *commandQueue
}

var _ interfaces.ProtocolHandle = (*Handle)(nil)

// Protocol 返回句柄所属协议
func (h *Handle) Protocol() types.ProtocolID {
	return h.protocol
}

// SetReservedPeers 替换保留节点集合
func (h *Handle) SetReservedPeers(peers []types.PeerID) error {
	return h.queue.push(command{kind: cmdSetReservedPeers, peers: clonePeers(peers)})
}

// AddReservedPeers 添加保留节点
func (h *Handle) AddReservedPeers(peers []types.PeerID) error {
	return h.queue.push(command{kind: cmdAddReservedPeers, peers: clonePeers(peers)})
}

// RemoveReservedPeers 移除保留节点
func (h *Handle) RemoveReservedPeers(peers []types.PeerID) error {
	return h.queue.push(command{kind: cmdRemoveReservedPeers, peers: clonePeers(peers)})
}

// SetReservedOnly 切换仅保留节点模式
func (h *Handle) SetReservedOnly(on bool) error {
	return h.queue.push(command{kind: cmdSetReservedOnly, reservedOnly: on})
}

// DisconnectPeer 断开节点
//
// 同时实现 interfaces.ProtocolHandle，Peerstore 在节点被封禁时调用。
func (h *Handle) DisconnectPeer(peer types.PeerID) error {
	return h.queue.push(command{kind: cmdDisconnectPeer, peer: peer})
}

// GetReservedPeers 查询当前保留节点
//
// 在所有者下一次 Poll 时应答，因此所有者必须在运行。
func (h *Handle) GetReservedPeers(ctx context.Context) ([]types.PeerID, error) {
	reply := make(chan []types.PeerID, 1)
	if err := h.queue.push(command{kind: cmdGetReservedPeers, reply: reply}); err != nil {
		return nil, err
	}

	select {
	case peers := <-reply:
		return peers, nil
	case <-h.queue.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func clonePeers(peers []types.PeerID) []types.PeerID {
	if len(peers) == 0 {
		return nil
	}
	out := make([]types.PeerID, len(peers))
	copy(out, peers)
	return out
}
