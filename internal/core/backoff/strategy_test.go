package backoff

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-peerset/config"
)

func TestFixedBackoff(t *testing.T) {
	b := NewFixedBackoff(5 * time.Second)()
	for i := 0; i < 3; i++ {
		assert.Equal(t, 5*time.Second, b.Delay())
	}
	b.Reset()
	assert.Equal(t, 5*time.Second, b.Delay())
}

func TestExponentialBackoff_NoJitter(t *testing.T) {
	b := NewExponentialBackoff(5*time.Second, 60*time.Second, 2, NoJitter, rand.NewSource(1))()

	want := []time.Duration{5, 10, 20, 40, 60, 60}
	for i, w := range want {
		assert.Equal(t, w*time.Second, b.Delay(), "attempt %d", i)
	}

	b.Reset()
	assert.Equal(t, 5*time.Second, b.Delay())
}

func TestExponentialBackoff_MultiplierOne(t *testing.T) {
	b := NewExponentialBackoff(5*time.Second, 60*time.Second, 1, FullJitter, rand.NewSource(1))()
	for i := 0; i < 5; i++ {
		assert.Equal(t, 5*time.Second, b.Delay())
	}
}

func TestExponentialBackoff_FullJitterBounds(t *testing.T) {
	min, max := time.Second, 30*time.Second
	b := NewExponentialBackoff(min, max, 3, FullJitter, rand.NewSource(7))()

	assert.Equal(t, min, b.Delay())
	for i := 0; i < 50; i++ {
		d := b.Delay()
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, max)
	}
}

func TestJitterByName(t *testing.T) {
	_, ok := JitterByName("full")
	assert.True(t, ok)
	_, ok = JitterByName("")
	assert.True(t, ok)

	j, ok := JitterByName("none")
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, j(7*time.Second, time.Second, 10*time.Second, nil))

	_, ok = JitterByName("decorrelated")
	assert.False(t, ok)
}

func TestBoundedDuration(t *testing.T) {
	assert.Equal(t, time.Second, boundedDuration(0, time.Second, time.Minute))
	assert.Equal(t, time.Minute, boundedDuration(time.Hour, time.Second, time.Minute))
	assert.Equal(t, 2*time.Second, boundedDuration(2*time.Second, time.Second, time.Minute))
}

func TestConfigFromUnified(t *testing.T) {
	cfg := ConfigFromUnified(nil)
	assert.Equal(t, 1024, cfg.CacheSize)
	require.NotNil(t, cfg.Disconnect)
	require.NotNil(t, cfg.OpenFailure)

	u := config.NewConfig()
	u.Backoff = u.Backoff.WithFixed(3 * time.Second)
	fixed := ConfigFromUnified(u)
	s := fixed.OpenFailure()
	assert.Equal(t, 3*time.Second, s.Delay())
	assert.Equal(t, 3*time.Second, s.Delay())
}
