package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/multierr"

	"github.com/dep2p/go-peerset/config"
	"github.com/dep2p/go-peerset/internal/core/peerset"
	"github.com/dep2p/go-peerset/internal/core/peerstore"
	"github.com/dep2p/go-peerset/internal/core/transport/memory"
	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/types"
	"github.com/dep2p/go-peerset/tests/mocks"
)

const testProto = types.ProtocolID("/block-announces/1")

const waitFor = time.Second

// ============================================================================
//                              测试辅助
// ============================================================================

// testConfig 单协议、固定 5s 退避、关闭周期性分配
func testConfig(in, out int, reserved ...string) Config {
	u := config.NewConfig()
	pc := config.DefaultPeersetConfig(string(testProto)).WithSlots(in, out).WithReservedPeers(reserved...)
	pc.StrictInvariants = true
	u.Protocols = []config.PeersetConfig{pc}
	u.Backoff = u.Backoff.WithFixed(5 * time.Second)

	cfg := ConfigFromUnified(u)
	cfg.Protocols[0].SlotAllocationInterval = 0
	return cfg
}

func newBook(t *testing.T, mock *clock.Mock, peers ...types.PeerID) *peerstore.Peerstore {
	t.Helper()
	book, err := peerstore.New(peerstore.DefaultConfig(), peerstore.WithClock(mock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = book.Close() })
	for _, p := range peers {
		book.AddPeer(p)
	}
	return book
}

func newTransport(t *testing.T) *mocks.MockTransport {
	t.Helper()
	tr := mocks.NewMockTransport(gomock.NewController(t))
	tr.EXPECT().SetReporter(gomock.Any())
	return tr
}

func newController(t *testing.T, cfg Config, tr interfaces.Transport, book interfaces.Peerstore, mock *clock.Mock, start bool) *Controller {
	t.Helper()
	c, err := New(cfg, tr, book, WithClock(mock))
	require.NoError(t, err)
	if start {
		require.NoError(t, c.Start(context.Background()))
	}
	t.Cleanup(func() { _ = c.Stop() })
	return c
}

// recordBatches 把传输层收到的批次转发到通道
func recordBatches(ch chan []types.PeerID, err error) func(context.Context, types.ProtocolID, []types.PeerID) error {
	return func(_ context.Context, _ types.ProtocolID, peers []types.PeerID) error {
		ch <- peers
		return err
	}
}

func receive(t *testing.T, ch chan []types.PeerID) []types.PeerID {
	t.Helper()
	select {
	case peers := <-ch:
		return peers
	case <-time.After(waitFor):
		t.Fatal("等待传输层批次超时")
		return nil
	}
}

// newMemory 单远端节点、10ms 延迟的模拟传输，不启动远端循环
func newMemory(t *testing.T, mock *clock.Mock) *memory.Transport {
	t.Helper()
	tr := memory.New(memory.Config{
		RemotePeers: 1,
		Latency:     10 * time.Millisecond,
		Seed:        1,
		Protocols:   []types.ProtocolID{testProto},
	}, memory.WithClock(mock))
	t.Cleanup(func() { _ = tr.Stop() })
	return tr
}

// advanceUntil 反复推进模拟时钟直到 cond 成立
func advanceUntil(t *testing.T, mock *clock.Mock, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		mock.Add(10 * time.Millisecond)
		return cond()
	}, waitFor, 5*time.Millisecond)
}

func stateOf(c *Controller, peer types.PeerID) (peerset.PeerState, bool) {
	st, _ := c.Status(testProto)
	s, ok := st.Peers[peer]
	return s, ok
}

// ============================================================================
//                              创建与生命周期
// ============================================================================

func TestNew_Invalid(t *testing.T) {
	mock := clock.NewMock()
	book := newBook(t, mock)

	_, err := New(Config{}, mocks.NewMockTransport(gomock.NewController(t)), book)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(testConfig(1, 1), nil, book)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := testConfig(1, 1)
	cfg.Protocols = append(cfg.Protocols, cfg.Protocols[0])
	_, err = New(cfg, mocks.NewMockTransport(gomock.NewController(t)), book)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigFromUnified_DefaultProtocol(t *testing.T) {
	cfg := ConfigFromUnified(nil)
	require.Len(t, cfg.Protocols, 1)
	assert.Equal(t, types.ProtocolID(config.DefaultProtocol), cfg.Protocols[0].Peerset.Protocol)
	assert.Equal(t, time.Second, cfg.Protocols[0].SlotAllocationInterval)
	require.NoError(t, cfg.Validate())
}

func TestController_StartStop(t *testing.T) {
	mock := clock.NewMock()
	c := newController(t, testConfig(1, 1), newTransport(t), newBook(t, mock), mock, true)

	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, c.Stop())
	require.NoError(t, c.Stop())
	assert.ErrorIs(t, c.Start(context.Background()), peerset.ErrClosed)

	h, ok := c.Handle(testProto)
	require.True(t, ok)
	assert.ErrorIs(t, h.SetReservedOnly(true), peerset.ErrClosed)

	_, ok = c.Handle("/unknown")
	assert.False(t, ok)
	assert.Equal(t, []types.ProtocolID{testProto}, c.Protocols())
}

// ============================================================================
//                              动作循环
// ============================================================================

func TestController_InitialDials(t *testing.T) {
	mock := clock.NewMock()
	book := newBook(t, mock, "a", "b", "c")
	tr := newTransport(t)

	opened := make(chan []types.PeerID, 1)
	tr.EXPECT().OpenSubstream(gomock.Any(), testProto, gomock.Any()).DoAndReturn(recordBatches(opened, nil))

	c := newController(t, testConfig(1, 2), tr, book, mock, true)
	assert.Equal(t, []types.PeerID{"a", "b"}, receive(t, opened))

	st, ok := c.Status(testProto)
	require.True(t, ok)
	assert.Equal(t, 2, st.NumOut)
	assert.Equal(t, 2, st.MaxOut)

	assert.True(t, c.ReportSubstreamOpened(testProto, "a", types.DirOutbound))
	assert.Equal(t, int64(1), c.ConnectedPeers())
	assert.Equal(t, int64(1), c.Connected().Load())
}

// TestController_OpenFailureBackoff 批次提交失败：进入退避，到期后回报 -1024
func TestController_OpenFailureBackoff(t *testing.T) {
	mock := clock.NewMock()
	book := newBook(t, mock, "a")
	tr := newTransport(t)
	tr.EXPECT().OpenSubstream(gomock.Any(), testProto, []types.PeerID{"a"}).Return(errors.New("dial failed"))

	c := newController(t, testConfig(1, 1), tr, book, mock, true)

	require.Eventually(t, func() bool {
		s, ok := stateOf(c, "a")
		return ok && s.Kind == peerset.StateBackoff
	}, waitFor, time.Millisecond)

	deadline, ok := c.BackoffDeadline(testProto, "a")
	require.True(t, ok)
	assert.Equal(t, mock.Now().Add(5*time.Second), deadline)

	mock.Add(5 * time.Second)
	require.Eventually(t, func() bool {
		return book.PeerReputation("a") == OpenFailureChange.Value
	}, waitFor, time.Millisecond)

	_, ok = stateOf(c, "a")
	assert.False(t, ok)
}

// TestController_PeerErrors 只有 PeerError 中的节点失败
func TestController_PeerErrors(t *testing.T) {
	mock := clock.NewMock()
	book := newBook(t, mock, "a", "b")
	tr := newTransport(t)
	tr.EXPECT().OpenSubstream(gomock.Any(), testProto, []types.PeerID{"a", "b"}).
		Return(multierr.Combine(&interfaces.PeerError{Peer: "b", Err: errors.New("unreachable")}))

	c := newController(t, testConfig(0, 2), tr, book, mock, true)

	require.Eventually(t, func() bool {
		s, ok := stateOf(c, "b")
		return ok && s.Kind == peerset.StateBackoff
	}, waitFor, time.Millisecond)

	s, ok := stateOf(c, "a")
	require.True(t, ok)
	assert.Equal(t, peerset.StateOpening, s.Kind)
}

func TestFailedPeers(t *testing.T) {
	errX := errors.New("x")
	errBatch := errors.New("batch")
	peers := []types.PeerID{"a", "b", "c"}

	failed := failedPeers(multierr.Combine(
		&interfaces.PeerError{Peer: "a", Err: errX},
		&interfaces.PeerError{Peer: "zz", Err: errX},
	), peers)
	assert.Len(t, failed, 1)
	assert.ErrorIs(t, failed["a"], errX)

	failed = failedPeers(multierr.Combine(
		&interfaces.PeerError{Peer: "a", Err: errX},
		errBatch,
	), peers)
	assert.Len(t, failed, 3)
	assert.ErrorIs(t, failed["a"], errX)
	assert.ErrorIs(t, failed["b"], errBatch)
}

// TestController_CloseFailure 关闭提交失败视为已关闭
func TestController_CloseFailure(t *testing.T) {
	mock := clock.NewMock()
	book := newBook(t, mock, "a")
	tr := newTransport(t)

	opened := make(chan []types.PeerID, 1)
	closed := make(chan []types.PeerID, 1)
	tr.EXPECT().OpenSubstream(gomock.Any(), testProto, gomock.Any()).DoAndReturn(recordBatches(opened, nil))
	tr.EXPECT().CloseSubstream(gomock.Any(), testProto, []types.PeerID{"a"}).DoAndReturn(recordBatches(closed, errors.New("gone")))

	c := newController(t, testConfig(0, 1), tr, book, mock, true)
	receive(t, opened)
	require.True(t, c.ReportSubstreamOpened(testProto, "a", types.DirOutbound))

	h, _ := c.Handle(testProto)
	require.NoError(t, h.DisconnectPeer("a"))
	receive(t, closed)

	require.Eventually(t, func() bool {
		s, ok := stateOf(c, "a")
		return ok && s.Kind == peerset.StateBackoff
	}, waitFor, time.Millisecond)
	assert.Zero(t, c.ConnectedPeers())
}

// TestController_CloseFailureWhileOpening 打开结果未出的节点关闭提交失败后保持 Closing
func TestController_CloseFailureWhileOpening(t *testing.T) {
	mock := clock.NewMock()
	tr := newTransport(t)

	opened := make(chan []types.PeerID, 1)
	closed := make(chan []types.PeerID, 1)
	tr.EXPECT().OpenSubstream(gomock.Any(), testProto, []types.PeerID{"r"}).DoAndReturn(recordBatches(opened, nil))
	tr.EXPECT().CloseSubstream(gomock.Any(), testProto, []types.PeerID{"r"}).DoAndReturn(recordBatches(closed, errors.New("not open yet")))

	c := newController(t, testConfig(0, 1, "r"), tr, newBook(t, mock), mock, true)
	receive(t, opened)

	h, _ := c.Handle(testProto)
	require.NoError(t, h.RemoveReservedPeers([]types.PeerID{"r"}))
	receive(t, closed)

	assert.Never(t, func() bool {
		s, _ := stateOf(c, "r")
		return s.Kind != peerset.StateClosing
	}, 50*time.Millisecond, 5*time.Millisecond)

	require.False(t, c.ReportSubstreamOpened(testProto, "r", types.DirOutbound))
	c.ReportSubstreamClosed(testProto, "r")

	s, _ := stateOf(c, "r")
	assert.Equal(t, peerset.StateBackoff, s.Kind)
	st, _ := c.Status(testProto)
	assert.Zero(t, st.NumOut)
}

// TestController_DisconnectWhileOpening 打开中断开：打开完成后传输层关闭子流，节点进入 Backoff
func TestController_DisconnectWhileOpening(t *testing.T) {
	mock := clock.NewMock()
	book := newBook(t, mock, "remote-000")
	tr := newMemory(t, mock)

	c := newController(t, testConfig(0, 1), tr, book, mock, true)
	require.Eventually(t, func() bool {
		return len(tr.PendingSubstreams(testProto)) == 1
	}, waitFor, time.Millisecond)

	h, _ := c.Handle(testProto)
	require.NoError(t, h.DisconnectPeer("remote-000"))
	require.Eventually(t, func() bool {
		s, _ := stateOf(c, "remote-000")
		return s.Kind == peerset.StateCanceled
	}, waitFor, time.Millisecond)

	advanceUntil(t, mock, func() bool {
		s, _ := stateOf(c, "remote-000")
		return s.Kind == peerset.StateBackoff
	})

	st, _ := c.Status(testProto)
	assert.Zero(t, st.NumOut)
	assert.Zero(t, c.ConnectedPeers())
	assert.Empty(t, tr.OpenSubstreams(testProto))
	assert.Empty(t, tr.PendingSubstreams(testProto))
}

// TestController_RemoveReservedWhileOpening 打开中移除保留节点：不触发状态不变式，节点进入 Backoff
func TestController_RemoveReservedWhileOpening(t *testing.T) {
	mock := clock.NewMock()
	tr := newMemory(t, mock)

	c := newController(t, testConfig(0, 1, "remote-000"), tr, newBook(t, mock), mock, true)
	require.Eventually(t, func() bool {
		return len(tr.PendingSubstreams(testProto)) == 1
	}, waitFor, time.Millisecond)

	h, _ := c.Handle(testProto)
	require.NoError(t, h.RemoveReservedPeers([]types.PeerID{"remote-000"}))
	require.Eventually(t, func() bool {
		s, _ := stateOf(c, "remote-000")
		return s.Kind == peerset.StateClosing
	}, waitFor, time.Millisecond)

	advanceUntil(t, mock, func() bool {
		s, _ := stateOf(c, "remote-000")
		return s.Kind == peerset.StateBackoff
	})

	st, _ := c.Status(testProto)
	assert.Zero(t, st.NumOut)
	assert.Empty(t, st.Reserved)
	assert.Zero(t, c.ConnectedPeers())
	assert.Empty(t, tr.OpenSubstreams(testProto))
	assert.Empty(t, tr.PendingSubstreams(testProto))
}

// TestController_BanClosesSubstream 封禁经由 Peerstore 句柄关闭子流
func TestController_BanClosesSubstream(t *testing.T) {
	mock := clock.NewMock()
	book := newBook(t, mock, "a")
	tr := newTransport(t)

	opened := make(chan []types.PeerID, 1)
	closed := make(chan []types.PeerID, 1)
	tr.EXPECT().OpenSubstream(gomock.Any(), testProto, gomock.Any()).DoAndReturn(recordBatches(opened, nil))
	tr.EXPECT().CloseSubstream(gomock.Any(), testProto, gomock.Any()).DoAndReturn(recordBatches(closed, nil))

	c := newController(t, testConfig(0, 1), tr, book, mock, true)
	receive(t, opened)
	require.True(t, c.ReportSubstreamOpened(testProto, "a", types.DirOutbound))

	book.ReportPeer("a", types.NewFatalReputationChange("misbehaviour"))
	assert.Equal(t, []types.PeerID{"a"}, receive(t, closed))

	c.ReportSubstreamClosed(testProto, "a")
	assert.Equal(t, types.ValidationReject, c.ReportInboundSubstream(testProto, "a"))
}

func TestController_AllocationLoop(t *testing.T) {
	mock := clock.NewMock()
	book := newBook(t, mock)
	tr := newTransport(t)

	opened := make(chan []types.PeerID, 1)
	tr.EXPECT().OpenSubstream(gomock.Any(), testProto, []types.PeerID{"x"}).DoAndReturn(recordBatches(opened, nil))

	cfg := testConfig(0, 1)
	cfg.Protocols[0].SlotAllocationInterval = time.Second
	newController(t, cfg, tr, book, mock, true)

	book.AddPeer("x")
	mock.Add(time.Second)
	assert.Equal(t, []types.PeerID{"x"}, receive(t, opened))
}

func TestController_GetReservedPeers(t *testing.T) {
	mock := clock.NewMock()
	tr := newTransport(t)
	opened := make(chan []types.PeerID, 1)
	tr.EXPECT().OpenSubstream(gomock.Any(), testProto, []types.PeerID{"r"}).DoAndReturn(recordBatches(opened, nil))

	c := newController(t, testConfig(1, 1, "r"), tr, newBook(t, mock), mock, true)
	receive(t, opened)

	h, _ := c.Handle(testProto)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	peers, err := h.GetReservedPeers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.PeerID{"r"}, peers)
}

// ============================================================================
//                              传输层回报
// ============================================================================

// TestController_ReportFlow 入站、打开、关闭、退避到期回报 -256
func TestController_ReportFlow(t *testing.T) {
	mock := clock.NewMock()
	book := newBook(t, mock)
	c := newController(t, testConfig(1, 1), newTransport(t), book, mock, false)

	assert.Equal(t, types.ValidationAccept, c.ReportInboundSubstream(testProto, "x"))
	assert.Contains(t, book.Peers(), types.PeerID("x"))

	assert.True(t, c.ReportSubstreamOpened(testProto, "x", types.DirInbound))
	assert.Equal(t, int64(1), c.ConnectedPeers())

	c.ReportSubstreamClosed(testProto, "x")
	assert.Zero(t, c.ConnectedPeers())
	_, ok := c.BackoffDeadline(testProto, "x")
	require.True(t, ok)

	mock.Add(5 * time.Second)
	require.Eventually(t, func() bool {
		return book.PeerReputation("x") == DisconnectedChange.Value
	}, waitFor, time.Millisecond)
}

// TestController_OpenedCancelsBackoff 退避期间接受的入站连接成功后取消定时器
func TestController_OpenedCancelsBackoff(t *testing.T) {
	mock := clock.NewMock()
	book := newBook(t, mock)
	c := newController(t, testConfig(1, 1), newTransport(t), book, mock, false)

	require.Equal(t, types.ValidationAccept, c.ReportInboundSubstream(testProto, "y"))
	c.ReportSubstreamOpenFailure(testProto, "y", errors.New("handshake"))
	_, ok := c.BackoffDeadline(testProto, "y")
	require.True(t, ok)

	require.Equal(t, types.ValidationAccept, c.ReportInboundSubstream(testProto, "y"))
	require.True(t, c.ReportSubstreamOpened(testProto, "y", types.DirInbound))
	_, ok = c.BackoffDeadline(testProto, "y")
	assert.False(t, ok)

	mock.Add(5 * time.Second)
	assert.Zero(t, book.PeerReputation("y"))
}

func TestController_Rejected(t *testing.T) {
	mock := clock.NewMock()
	c := newController(t, testConfig(1, 1), newTransport(t), newBook(t, mock), mock, false)

	require.Equal(t, types.ValidationAccept, c.ReportInboundSubstream(testProto, "z"))
	c.ReportSubstreamRejected(testProto, "z")
	_, ok := stateOf(c, "z")
	assert.False(t, ok)
}

func TestController_UnknownProtocol(t *testing.T) {
	mock := clock.NewMock()
	c := newController(t, testConfig(1, 1), newTransport(t), newBook(t, mock), mock, false)

	assert.Equal(t, types.ValidationReject, c.ReportInboundSubstream("/nope", "a"))
	assert.False(t, c.ReportSubstreamOpened("/nope", "a", types.DirInbound))
	c.ReportSubstreamClosed("/nope", "a")
	c.ReportSubstreamOpenFailure("/nope", "a", nil)
	c.ReportSubstreamRejected("/nope", "a")

	_, err := c.AllocateSlots("/nope")
	assert.ErrorIs(t, err, ErrUnknownProtocol)
	_, ok := c.Status("/nope")
	assert.False(t, ok)
}

// TestController_ReputationViaMock 使用 MockPeerstore 校验信誉回报
func TestController_ReputationViaMock(t *testing.T) {
	mock := clock.NewMock()
	ctrl := gomock.NewController(t)
	book := mocks.NewMockPeerstore(ctrl)
	book.EXPECT().OutgoingCandidates(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	book.EXPECT().IsBanned(gomock.Any()).Return(false).AnyTimes()
	book.EXPECT().RegisterProtocol(gomock.Any())
	book.EXPECT().AddPeer(types.PeerID("p")).Times(3)

	reported := make(chan types.ReputationChange, 1)
	book.EXPECT().ReportPeer(types.PeerID("p"), OpenFailureChange).Do(func(_ types.PeerID, ch types.ReputationChange) {
		reported <- ch
	})

	c := newController(t, testConfig(1, 1), newTransport(t), book, mock, false)
	require.Equal(t, types.ValidationAccept, c.ReportInboundSubstream(testProto, "p"))
	require.True(t, c.ReportSubstreamOpened(testProto, "p", types.DirInbound))

	c.ReportSubstreamClosed(testProto, "p")
	// 关闭后立即重新拨号失败，退避原因以最近一次为准
	require.Equal(t, types.ValidationAccept, c.ReportInboundSubstream(testProto, "p"))
	c.ReportSubstreamOpenFailure(testProto, "p", errors.New("refused"))

	mock.Add(5 * time.Second)
	select {
	case ch := <-reported:
		assert.Equal(t, "Open failure", ch.Reason)
	case <-time.After(waitFor):
		t.Fatal("未收到信誉回报")
	}
}
