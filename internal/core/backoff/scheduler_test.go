package backoff

import (
	"math/rand"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expiry struct {
	key    Key
	reason Reason
}

func newTestScheduler(t *testing.T) (*Scheduler, *clock.Mock, chan expiry) {
	t.Helper()

	mock := clock.NewMock()
	fired := make(chan expiry, 16)
	s, err := NewScheduler(Config{
		Disconnect:  NewFixedBackoff(5 * time.Second),
		OpenFailure: NewExponentialBackoff(5*time.Second, 60*time.Second, 2, NoJitter, rand.NewSource(1)),
		CacheSize:   8,
		Clock:       mock,
	}, func(key Key, reason Reason) {
		fired <- expiry{key: key, reason: reason}
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, mock, fired
}

func waitExpiry(t *testing.T, fired chan expiry) expiry {
	t.Helper()
	select {
	case e := <-fired:
		return e
	case <-time.After(time.Second):
		t.Fatal("backoff did not expire")
		return expiry{}
	}
}

func requireNoExpiry(t *testing.T, fired chan expiry) {
	t.Helper()
	select {
	case e := <-fired:
		t.Fatalf("unexpected expiry %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestNewScheduler_InvalidConfig(t *testing.T) {
	_, err := NewScheduler(Config{}, func(Key, Reason) {})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewScheduler(Config{
		Disconnect:  NewFixedBackoff(time.Second),
		OpenFailure: NewFixedBackoff(time.Second),
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScheduler_Expires(t *testing.T) {
	s, mock, fired := newTestScheduler(t)
	key := Key{Protocol: "/p/1", Peer: "a"}

	d := s.Schedule(key, ReasonDisconnected)
	assert.Equal(t, 5*time.Second, d)
	assert.Equal(t, 1, s.Pending())

	deadline, ok := s.Deadline(key)
	require.True(t, ok)
	assert.Equal(t, mock.Now().Add(5*time.Second), deadline)

	mock.Add(4 * time.Second)
	requireNoExpiry(t, fired)

	mock.Add(time.Second)
	e := waitExpiry(t, fired)
	assert.Equal(t, key, e.key)
	assert.Equal(t, ReasonDisconnected, e.reason)
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestScheduler_GrowsUntilReset(t *testing.T) {
	s, mock, fired := newTestScheduler(t)
	key := Key{Protocol: "/p/1", Peer: "a"}

	assert.Equal(t, 5*time.Second, s.Schedule(key, ReasonOpenFailure))
	mock.Add(5 * time.Second)
	waitExpiry(t, fired)

	assert.Equal(t, 10*time.Second, s.Schedule(key, ReasonOpenFailure))
	mock.Add(10 * time.Second)
	waitExpiry(t, fired)

	s.Reset(key)
	assert.Equal(t, 5*time.Second, s.Schedule(key, ReasonOpenFailure))
}

func TestScheduler_ReplaceAndCancel(t *testing.T) {
	s, mock, fired := newTestScheduler(t)
	a := Key{Protocol: "/p/1", Peer: "a"}
	b := Key{Protocol: "/p/2", Peer: "a"}

	s.Schedule(a, ReasonOpenFailure)
	s.Schedule(a, ReasonDisconnected)
	s.Schedule(b, ReasonDisconnected)
	assert.Equal(t, 2, s.Pending())

	assert.True(t, s.Cancel(b))
	assert.False(t, s.Cancel(b))

	mock.Add(5 * time.Second)
	e := waitExpiry(t, fired)
	assert.Equal(t, a, e.key)
	assert.Equal(t, ReasonDisconnected, e.reason)
	requireNoExpiry(t, fired)
}

func TestScheduler_Close(t *testing.T) {
	s, mock, fired := newTestScheduler(t)
	key := Key{Protocol: "/p/1", Peer: "a"}

	s.Schedule(key, ReasonDisconnected)
	s.Close()
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, time.Duration(0), s.Schedule(key, ReasonDisconnected))

	mock.Add(time.Minute)
	requireNoExpiry(t, fired)
}
