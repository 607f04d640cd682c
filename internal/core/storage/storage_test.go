package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-peerset/config"
)

// testEngine 使用 t.TempDir() 创建磁盘引擎
func testEngine(t *testing.T) *Engine {
	t.Helper()

	cfg := DefaultConfig().WithPath(filepath.Join(t.TempDir(), "test.db")).WithGC(0)
	e, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, e.Close()) })
	return e
}

func TestEngine_PutGetDelete(t *testing.T) {
	e := testEngine(t)

	require.NoError(t, e.Put([]byte("k"), []byte("v")))
	got, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ok, err := e.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.Delete([]byte("k")))
	_, err = e.Get([]byte("k"))
	assert.True(t, IsNotFound(err))

	ok, err = e.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_EmptyKey(t *testing.T) {
	e := testEngine(t)

	_, err := e.Get(nil)
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.ErrorIs(t, e.Put(nil, []byte("v")), ErrEmptyKey)
	assert.ErrorIs(t, e.Delete(nil), ErrEmptyKey)
}

func TestEngine_Closed(t *testing.T) {
	e, err := Open(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Get([]byte("k"))
	assert.True(t, IsClosed(err))
	assert.ErrorIs(t, e.Put([]byte("k"), nil), ErrClosed)
	assert.ErrorIs(t, e.Start(), ErrClosed)
}

func TestEngine_InMemory(t *testing.T) {
	e, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.Start())

	require.NoError(t, e.Put([]byte("a"), []byte("1")))
	got, err := e.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}

func TestEngine_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	e, err := Open(DefaultConfig().WithPath(path))
	require.NoError(t, err)
	require.NoError(t, e.Put([]byte("persist"), []byte("yes")))
	require.NoError(t, e.Close())

	e, err = Open(DefaultConfig().WithPath(path))
	require.NoError(t, err)
	defer e.Close()
	got, err := e.Get([]byte("persist"))
	require.NoError(t, err)
	assert.Equal(t, []byte("yes"), got)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig().WithPath("")
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig().WithGC(time.Second)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Minute, cfg.GCInterval)

	cfg = InMemoryConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigFromUnified(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromUnified(nil))

	u := config.NewConfig()
	u.Storage.DataDir = "/tmp/x"
	cfg := ConfigFromUnified(u)
	assert.Equal(t, filepath.Join("/tmp/x", "peerset.db"), cfg.Path)
	assert.False(t, cfg.InMemory)

	u.Storage.InMemory = true
	cfg = ConfigFromUnified(u)
	assert.True(t, cfg.InMemory)
	assert.Empty(t, cfg.Path)
	assert.Zero(t, cfg.GCInterval)
}

// ============================================================================
//                              Store
// ============================================================================

type record struct {
	Value int32 `json:"value"`
}

func TestStore_Prefix(t *testing.T) {
	e := testEngine(t)
	a := NewStore(e, []byte("a/"))
	b := NewStore(e, []byte("b/"))

	require.NoError(t, a.Put([]byte("k"), []byte("1")))
	require.NoError(t, b.Put([]byte("k"), []byte("2")))

	got, err := a.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	raw, err := e.Get([]byte("b/k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), raw)

	sub := a.SubStore([]byte("x/"))
	assert.Equal(t, []byte("a/x/"), sub.Prefix())
}

func TestStore_JSONAndScan(t *testing.T) {
	e := testEngine(t)
	s := NewStore(e, []byte("ps/r/"))

	for i, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, s.PutJSON([]byte(id), record{Value: int32(i)}))
	}
	require.NoError(t, e.Put([]byte("other"), []byte("x")))

	var r record
	require.NoError(t, s.GetJSON([]byte("p2"), &r))
	assert.Equal(t, int32(1), r.Value)

	seen := map[string]int32{}
	require.NoError(t, s.PrefixScan(nil, func(key, value []byte) bool {
		var rec record
		require.NoError(t, json.Unmarshal(value, &rec))
		seen[string(key)] = rec.Value
		return true
	}))
	assert.Equal(t, map[string]int32{"p1": 0, "p2": 1, "p3": 2}, seen)

	n, err := s.Count(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// 提前停止
	var first int
	require.NoError(t, s.PrefixScan(nil, func(_, _ []byte) bool {
		first++
		return false
	}))
	assert.Equal(t, 1, first)

	require.NoError(t, s.Put([]byte("bad"), []byte("{")))
	assert.ErrorIs(t, s.GetJSON([]byte("bad"), &r), ErrCorrupted)
}

func TestStore_Batch(t *testing.T) {
	e := testEngine(t)
	s := NewStore(e, []byte("b/"))
	require.NoError(t, s.Put([]byte("gone"), []byte("x")))

	batch := s.NewBatch()
	batch.Put([]byte("k1"), []byte("1"))
	require.NoError(t, batch.PutJSON([]byte("k2"), record{Value: 2}))
	batch.Delete([]byte("gone"))
	assert.Equal(t, 3, batch.Size())
	require.NoError(t, batch.Write())

	ok, err := s.Has([]byte("k1"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Has([]byte("gone"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Clear(t *testing.T) {
	e := testEngine(t)
	a := NewStore(e, []byte("a/"))
	b := NewStore(e, []byte("b/"))
	require.NoError(t, a.Put([]byte("1"), []byte("x")))
	require.NoError(t, a.Put([]byte("2"), []byte("x")))
	require.NoError(t, b.Put([]byte("1"), []byte("x")))

	require.NoError(t, a.Clear())

	n, err := a.Count(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = b.Count(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestModule_Lifecycle(t *testing.T) {
	u := config.NewConfig()
	u.Storage.InMemory = true

	var eng *Engine
	app := fxtest.New(t,
		fx.Supply(u),
		Module(),
		fx.Populate(&eng),
	)
	app.RequireStart()
	require.NotNil(t, eng)
	require.NoError(t, eng.Put([]byte("k"), []byte("v")))
	app.RequireStop()

	_, err := eng.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrClosed)
}
