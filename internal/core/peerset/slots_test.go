package peerset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-peerset/pkg/types"
)

func TestAllocateSlots(t *testing.T) {
	src := &fakeSource{candidates: []types.PeerID{"a", "b", "c", "d"}}
	ps, _ := newTestPeerset(t, Config{MaxOut: 2}, src)
	assert.Equal(t, []types.PeerID{"a", "b"}, mustPoll(t, ps).Peers)

	// 槽位已满
	assert.Equal(t, 0, ps.AllocateSlots())
	requireNoAction(t, ps)

	ps.ReportSubstreamOpenFailure("a", errDial)
	assert.Equal(t, 1, ps.AllocateSlots())
	assert.Equal(t, Action{Kind: ActionOpenSubstream, Peers: []types.PeerID{"c"}}, mustPoll(t, ps))
	requireState(t, ps, "a", Backoff())
	assert.Equal(t, 2, ps.NumOut())
	requireSlotConservation(t, ps)
}

func TestAllocateSlots_ReservedAndBanned(t *testing.T) {
	src := &fakeSource{
		candidates: []types.PeerID{"x", "y"},
		banned:     types.NewPeerIDSet("r2"),
	}
	ps, h := newTestPeerset(t, Config{MaxOut: 3}, src)
	assert.Equal(t, []types.PeerID{"x", "y"}, mustPoll(t, ps).Peers)

	// r2 被封禁；AddReservedPeers 依然打开它，这里让它失败并到期
	require.NoError(t, h.AddReservedPeers([]types.PeerID{"r1", "r2"}))
	assert.Equal(t, []types.PeerID{"r1", "r2"}, mustPoll(t, ps).Peers)
	ps.ReportSubstreamOpenFailure("r1", errDial)
	ps.ReportSubstreamOpenFailure("r2", errDial)
	ps.ReportBackoffExpired("r1")
	ps.ReportBackoffExpired("r2")

	assert.Equal(t, 1, ps.AllocateSlots())
	assert.Equal(t, []types.PeerID{"r1"}, mustPoll(t, ps).Peers)
	requireAbsent(t, ps, "r2")
	requireState(t, ps, "r1", Opening(Outbound(ReservedYes)))
}

func TestAllocateSlots_ReservedOnly(t *testing.T) {
	src := &fakeSource{candidates: []types.PeerID{"x"}}
	ps, h := newTestPeerset(t, Config{MaxOut: 3, ReservedOnly: true}, src)
	requireNoAction(t, ps)

	assert.Equal(t, 0, ps.AllocateSlots())

	require.NoError(t, h.SetReservedOnly(false))
	requireNoAction(t, ps)
	assert.Equal(t, 1, ps.AllocateSlots())
	assert.Equal(t, []types.PeerID{"x"}, mustPoll(t, ps).Peers)
}

func TestAllocateSlots_SkipsPeersWithEntries(t *testing.T) {
	src := &fakeSource{candidates: []types.PeerID{"in", "z"}}
	ps, _ := newTestPeerset(t, Config{MaxIn: 1, MaxOut: 0}, src)
	require.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("in"))

	ps.maxOut = 2
	assert.Equal(t, 1, ps.AllocateSlots())
	assert.Equal(t, []types.PeerID{"z"}, mustPoll(t, ps).Peers)
	requireState(t, ps, "in", Opening(Inbound(ReservedNo)))
}

// ============================================================================
//                              随机操作序列
// ============================================================================

// TestPeerset_RandomOperations 随机交错命令与回报，每一步检查不变量
//
// 保留节点不受槽位上限约束但同样计入计数器，因此上限只约束非保留标记的占用条目。
func TestPeerset_RandomOperations(t *testing.T) {
	const (
		maxIn  = 4
		maxOut = 3
		steps  = 5000
	)

	peers := make([]types.PeerID, 12)
	for i := range peers {
		peers[i] = types.PeerID(string(rune('a' + i)))
	}
	// 保留候选：部分同时是出站候选者，部分只会经由保留集合或入站出现
	pool := []types.PeerID{"a", "b", "c", "r0", "r1"}
	all := append(append([]types.PeerID(nil), peers...), "r0", "r1")

	src := &fakeSource{candidates: peers}
	ps, h := newTestPeerset(t, Config{MaxIn: maxIn, MaxOut: maxOut}, src)
	rng := rand.New(rand.NewSource(42))

	subset := func() []types.PeerID {
		var out []types.PeerID
		for _, p := range pool {
			if rng.Intn(2) == 0 {
				out = append(out, p)
			}
		}
		return out
	}
	reserved := types.NewPeerIDSet()

	for step := 0; step < steps; step++ {
		peer := all[rng.Intn(len(all))]
		state, _ := ps.State(peer)

		switch rng.Intn(12) {
		case 0:
			// 重复入站与已连接节点的入站属于集成错误，不在此生成
			if state.Kind != StateConnected && state.Kind != StateClosing &&
				!(state.Kind == StateOpening && state.Direction.IsInbound()) {
				ps.ReportInboundSubstream(peer)
			}
		case 1:
			switch state.Kind {
			case StateOpening, StateCanceled, StateClosing:
				ps.ReportSubstreamOpened(peer, state.Direction.Kind)
			}
		case 2:
			switch state.Kind {
			case StateOpening, StateCanceled, StateClosing:
				ps.ReportSubstreamOpenFailure(peer, errDial)
			}
		case 3:
			if state.Kind == StateConnected || state.Kind == StateClosing {
				ps.ReportSubstreamClosed(peer)
			}
		case 4:
			require.NoError(t, h.DisconnectPeer(peer))
		case 5:
			ps.ReportBackoffExpired(peer)
		case 6:
			ps.AllocateSlots()
		case 7:
			ps.ReportSubstreamRejected(peer)
		case 8:
			add := subset()
			require.NoError(t, h.AddReservedPeers(add))
			for _, p := range add {
				reserved[p] = struct{}{}
			}
		case 9:
			remove := subset()
			require.NoError(t, h.RemoveReservedPeers(remove))
			for _, p := range remove {
				delete(reserved, p)
			}
		case 10:
			next := subset()
			require.NoError(t, h.SetReservedPeers(next))
			reserved = types.NewPeerIDSet(next...)
		case 11:
			require.NoError(t, h.SetReservedOnly(rng.Intn(3) == 0))
		}

		for {
			if _, ok := ps.Poll(); !ok {
				break
			}
		}

		requireSlotConservation(t, ps)
		require.Equal(t, reserved.Slice(), ps.ReservedPeers(), "step %d", step)

		var connected int64
		var regularIn, regularOut int
		for _, s := range ps.Peers() {
			if s.Kind == StateConnected {
				connected++
			}
			if !s.occupiesSlot() || s.Direction.Reserved == ReservedYes {
				continue
			}
			if s.Direction.IsInbound() {
				regularIn++
			} else {
				regularOut++
			}
		}
		require.Equal(t, connected, ps.ConnectedPeers(), "step %d", step)
		require.LessOrEqual(t, regularIn, maxIn, "step %d", step)
		require.LessOrEqual(t, regularOut, maxOut, "step %d", step)
	}
}
