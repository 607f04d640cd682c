package peerset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-peerset/pkg/types"
)

var errDial = errors.New("dial failed")

// ============================================================================
//                              入站子流
// ============================================================================

func TestReportInboundSubstream_SlotLimit(t *testing.T) {
	ps, _ := newTestPeerset(t, Config{MaxIn: 2, MaxOut: 0}, nil)

	assert.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("a"))
	assert.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("b"))
	assert.Equal(t, types.ValidationReject, ps.ReportInboundSubstream("c"))

	requireState(t, ps, "a", Opening(Inbound(ReservedNo)))
	requireAbsent(t, ps, "c")
	assert.Equal(t, 2, ps.NumIn())
	requireSlotConservation(t, ps)
	requireNoAction(t, ps)
}

func TestReportInboundSubstream_ReservedBypassesLimit(t *testing.T) {
	ps, _ := newTestPeerset(t, Config{MaxIn: 0, ReservedPeers: []types.PeerID{"r"}}, nil)
	_ = mustPoll(t, ps)
	ps.ReportSubstreamOpenFailure("r", errDial)
	requireState(t, ps, "r", Backoff())

	assert.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("r"))
	requireState(t, ps, "r", Opening(Inbound(ReservedYes)))
	assert.Equal(t, types.ValidationReject, ps.ReportInboundSubstream("n"))
	requireSlotConservation(t, ps)
}

func TestReportInboundSubstream_Banned(t *testing.T) {
	src := &fakeSource{banned: types.NewPeerIDSet("bad")}
	ps, _ := newTestPeerset(t, Config{MaxIn: 5}, src)

	assert.Equal(t, types.ValidationReject, ps.ReportInboundSubstream("bad"))
	requireAbsent(t, ps, "bad")
}

func TestReportInboundSubstream_ReservedOnly(t *testing.T) {
	ps, _ := newTestPeerset(t, Config{MaxIn: 5, ReservedOnly: true}, nil)

	assert.Equal(t, types.ValidationReject, ps.ReportInboundSubstream("a"))
	assert.Equal(t, 0, ps.NumIn())
}

func TestReportInboundSubstream_FromBackoff(t *testing.T) {
	ps, _ := newTestPeerset(t, Config{MaxIn: 1}, nil)

	require.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("a"))
	connectAll(t, ps, "a")
	ps.ReportSubstreamClosed("a")
	requireState(t, ps, "a", Backoff())

	assert.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("a"))
	requireState(t, ps, "a", Opening(Inbound(ReservedNo)))

	// 退避到期时节点已不在 Backoff，忽略
	ps.ReportBackoffExpired("a")
	requireState(t, ps, "a", Opening(Inbound(ReservedNo)))
}

func TestReportInboundSubstream_BackoffSlotsFull(t *testing.T) {
	ps, _ := newTestPeerset(t, Config{MaxIn: 1}, nil)

	require.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("a"))
	connectAll(t, ps, "a")
	ps.ReportSubstreamClosed("a")
	require.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("b"))

	assert.Equal(t, types.ValidationReject, ps.ReportInboundSubstream("a"))
	requireState(t, ps, "a", Backoff())
}

func TestReportInboundSubstream_Canceled(t *testing.T) {
	ps, h := newTestPeerset(t, Config{MaxOut: 1, MaxIn: 1, ReservedPeers: []types.PeerID{"a"}}, nil)
	_ = mustPoll(t, ps)

	require.NoError(t, h.DisconnectPeer("a"))
	requireNoAction(t, ps)
	requireState(t, ps, "a", Canceled(Outbound(ReservedYes)))

	assert.Equal(t, types.ValidationReject, ps.ReportInboundSubstream("a"))
	requireState(t, ps, "a", Canceled(Outbound(ReservedYes)))
}

func TestReportInboundSubstream_DuplicateInboundPanics(t *testing.T) {
	ps, _ := newTestPeerset(t, Config{MaxIn: 2}, nil)
	require.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("a"))

	assert.PanicsWithError(t, "peerset: invariant violated: /block-announces/1: 重复的入站子流 [peer a state opening(inbound(regular))]", func() {
		ps.ReportInboundSubstream("a")
	})
}

// ============================================================================
//                              双向同时拨号
// ============================================================================

func TestReportInboundSubstream_Collision(t *testing.T) {
	src := &fakeSource{candidates: []types.PeerID{"a"}}
	ps, _ := newTestPeerset(t, Config{MaxIn: 1, MaxOut: 1}, src)
	_ = mustPoll(t, ps)
	requireState(t, ps, "a", Opening(Outbound(ReservedNo)))
	in, out := ps.NumIn(), ps.NumOut()

	assert.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("a"))
	requireState(t, ps, "a", Opening(Inbound(ReservedNo)))
	assert.Equal(t, in+1, ps.NumIn())
	assert.Equal(t, out-1, ps.NumOut())
	assert.Len(t, ps.Peers(), 1)
	requireSlotConservation(t, ps)

	// 传输层以出站方向回报打开，以记录的方向为准
	assert.True(t, ps.ReportSubstreamOpened("a", types.DirOutbound))
	requireState(t, ps, "a", Connected(Inbound(ReservedNo)))

	t.Log("✅ 同时拨号改标为入站")
}

func TestReportInboundSubstream_CollisionReserved(t *testing.T) {
	ps, _ := newTestPeerset(t, Config{MaxIn: 0, MaxOut: 1, ReservedPeers: []types.PeerID{"r"}}, nil)
	_ = mustPoll(t, ps)

	assert.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("r"))
	requireState(t, ps, "r", Opening(Inbound(ReservedYes)))
	assert.Equal(t, 1, ps.NumIn())
	assert.Equal(t, 0, ps.NumOut())
}

func TestReportInboundSubstream_CollisionInboundFull(t *testing.T) {
	src := &fakeSource{candidates: []types.PeerID{"a"}}
	ps, _ := newTestPeerset(t, Config{MaxIn: 1, MaxOut: 1}, src)
	_ = mustPoll(t, ps)
	require.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("b"))

	assert.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("a"))
	requireState(t, ps, "a", Opening(Outbound(ReservedNo)))
	assert.Equal(t, 1, ps.NumIn())
	assert.Equal(t, 1, ps.NumOut())
	requireSlotConservation(t, ps)
}

// ============================================================================
//                              打开/失败/关闭
// ============================================================================

func TestReportSubstreamOpened(t *testing.T) {
	src := &fakeSource{candidates: []types.PeerID{"a"}}
	ps, _ := newTestPeerset(t, Config{MaxOut: 1}, src)
	_ = mustPoll(t, ps)

	assert.True(t, ps.ReportSubstreamOpened("a", types.DirOutbound))
	requireState(t, ps, "a", Connected(Outbound(ReservedNo)))
	assert.Equal(t, int64(1), ps.ConnectedPeers())
	assert.Equal(t, 1, ps.NumOut())
	requireNoAction(t, ps)
}

func TestReportSubstreamOpened_UnknownPeerPanics(t *testing.T) {
	ps, _ := newTestPeerset(t, Config{MaxOut: 1}, nil)
	assert.Panics(t, func() { ps.ReportSubstreamOpened("ghost", types.DirOutbound) })
}

func TestReportSubstreamOpened_UnknownPeerLenient(t *testing.T) {
	ps, _, err := New(Config{Protocol: testProtocol, MaxOut: 1}, nil, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.False(t, ps.ReportSubstreamOpened("ghost", types.DirOutbound))
		ps.ReportSubstreamClosed("ghost")
	})
	assert.Empty(t, ps.Peers())
}

func TestCancelThenSucceed(t *testing.T) {
	src := &fakeSource{candidates: []types.PeerID{"a"}}
	ps, h := newTestPeerset(t, Config{MaxOut: 1}, src)
	_ = mustPoll(t, ps)

	require.NoError(t, h.DisconnectPeer("a"))
	requireNoAction(t, ps)
	requireState(t, ps, "a", Canceled(Outbound(ReservedNo)))
	assert.Equal(t, 1, ps.NumOut())

	assert.False(t, ps.ReportSubstreamOpened("a", types.DirOutbound))
	requireState(t, ps, "a", Closing(Outbound(ReservedNo)))
	assert.Equal(t, int64(0), ps.ConnectedPeers())
	requireNoAction(t, ps)

	ps.ReportSubstreamClosed("a")
	requireState(t, ps, "a", Backoff())
	assert.Equal(t, 0, ps.NumOut())
	assert.Equal(t, int64(0), ps.ConnectedPeers())
	requireSlotConservation(t, ps)

	t.Log("✅ 取消后打开成功 → Closing → Backoff")
}

func TestCancelThenFail(t *testing.T) {
	src := &fakeSource{candidates: []types.PeerID{"a"}}
	ps, h := newTestPeerset(t, Config{MaxOut: 1}, src)
	_ = mustPoll(t, ps)

	require.NoError(t, h.DisconnectPeer("a"))
	requireNoAction(t, ps)

	ps.ReportSubstreamOpenFailure("a", errDial)
	requireState(t, ps, "a", Backoff())
	assert.Equal(t, 0, ps.NumOut())
	requireNoAction(t, ps)
}

func TestOpenFailure_NoGhostEvents(t *testing.T) {
	src := &fakeSource{candidates: []types.PeerID{"a", "b"}}
	ps, _ := newTestPeerset(t, Config{MaxOut: 2}, src)
	_ = mustPoll(t, ps)

	ps.ReportSubstreamOpenFailure("a", errDial)
	requireState(t, ps, "a", Backoff())
	requireState(t, ps, "b", Opening(Outbound(ReservedNo)))
	assert.Equal(t, 1, ps.NumOut())
	requireNoAction(t, ps)

	// 未知节点的失败被忽略
	ps.ReportSubstreamOpenFailure("ghost", errDial)
	requireAbsent(t, ps, "ghost")
	requireNoAction(t, ps)
}

func TestReportSubstreamClosed(t *testing.T) {
	ps, _ := newTestPeerset(t, Config{MaxIn: 1}, nil)
	require.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("a"))
	connectAll(t, ps, "a")
	assert.Equal(t, int64(1), ps.ConnectedPeers())

	ps.ReportSubstreamClosed("a")
	requireState(t, ps, "a", Backoff())
	assert.Equal(t, 0, ps.NumIn())
	assert.Equal(t, int64(0), ps.ConnectedPeers())

	assert.Panics(t, func() { ps.ReportSubstreamClosed("a") })
}

func TestReportSubstreamClosed_AfterDisconnect(t *testing.T) {
	ps, h := newTestPeerset(t, Config{MaxIn: 1}, nil)
	require.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("a"))
	connectAll(t, ps, "a")

	require.NoError(t, h.DisconnectPeer("a"))
	action := mustPoll(t, ps)
	assert.Equal(t, Action{Kind: ActionCloseSubstream, Peers: []types.PeerID{"a"}}, action)
	requireState(t, ps, "a", Closing(Inbound(ReservedNo)))
	assert.Equal(t, int64(0), ps.ConnectedPeers())
	assert.Equal(t, 1, ps.NumIn())

	ps.ReportSubstreamClosed("a")
	requireState(t, ps, "a", Backoff())
	assert.Equal(t, int64(0), ps.ConnectedPeers())
	assert.Equal(t, 0, ps.NumIn())
}

func TestReportSubstreamRejected(t *testing.T) {
	ps, _ := newTestPeerset(t, Config{MaxIn: 1}, nil)
	require.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("a"))

	ps.ReportSubstreamRejected("a")
	requireAbsent(t, ps, "a")
	assert.Equal(t, 0, ps.NumIn())

	// 槽位已释放
	assert.Equal(t, types.ValidationAccept, ps.ReportInboundSubstream("b"))

	connectAll(t, ps, "b")
	ps.ReportSubstreamRejected("b")
	requireState(t, ps, "b", Connected(Inbound(ReservedNo)))

	ps.ReportSubstreamRejected("ghost")
	requireAbsent(t, ps, "ghost")
}

func TestReportBackoffExpired(t *testing.T) {
	src := &fakeSource{candidates: []types.PeerID{"a"}}
	ps, _ := newTestPeerset(t, Config{MaxOut: 1}, src)
	_ = mustPoll(t, ps)

	ps.ReportBackoffExpired("a")
	requireState(t, ps, "a", Opening(Outbound(ReservedNo)))

	ps.ReportSubstreamOpenFailure("a", errDial)
	ps.ReportBackoffExpired("a")
	requireAbsent(t, ps, "a")
	requireSlotConservation(t, ps)
}
