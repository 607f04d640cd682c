// Package storage 提供基于 BadgerDB 的键值存储
//
// Engine 封装 badger.DB，Store 在其上提供前缀隔离的命名空间：
//
//	eng, _ := storage.Open(storage.DefaultConfig())
//	reputations := storage.NewStore(eng, []byte("ps/r/"))
//	_ = reputations.PutJSON([]byte(peerID), record)
//
// 键空间约定：
//   - ps/r/ - Peerstore 节点信誉
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-peerset/pkg/lib/log"
)

var logger = log.Logger("core/storage")

// Engine BadgerDB 存储引擎
type Engine struct {
	db     *badger.DB
	config Config
	closed atomic.Bool

	gcCtx    context.Context
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
}

// Open 创建并打开存储引擎
func Open(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := badger.Open(buildBadgerOptions(cfg))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger.Debug("存储引擎已打开", "path", cfg.Path, "inMemory", cfg.InMemory)
	return &Engine{
		db:       db,
		config:   cfg,
		gcCtx:    ctx,
		gcCancel: cancel,
	}, nil
}

// buildBadgerOptions 根据配置构建 BadgerDB 选项
func buildBadgerOptions(cfg Config) badger.Options {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	return opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithBlockCacheSize(cfg.BlockCacheSize).
		WithLogger(&badgerLogger{})
}

// badgerLogger 把 badger 日志转到组件日志，Info 及以下降为 Debug
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Error("badger", "msg", sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warn("badger", "msg", sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debug("badger", "msg", sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Debug("badger", "msg", sprintf(format, args...))
}

func sprintf(format string, args ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}

// Start 启动后台垃圾回收
func (e *Engine) Start() error {
	if e.closed.Load() {
		return ErrClosed
	}
	if e.config.GCInterval > 0 && !e.config.InMemory {
		e.gcWg.Add(1)
		go e.gcLoop()
	}
	return nil
}

func (e *Engine) gcLoop() {
	defer e.gcWg.Done()

	ticker := time.NewTicker(e.config.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.gcCtx.Done():
			return
		case <-ticker.C:
			// 运行直到没有可回收的空间
			for e.db.RunValueLogGC(e.config.GCDiscardRatio) == nil {
			}
		}
	}
}

// Get 获取指定键的值
func (e *Engine) Get(key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, convertError(err)
	}
	return value, nil
}

// Put 设置键值对
func (e *Engine) Put(key, value []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return convertError(e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}))
}

// Delete 删除指定键
func (e *Engine) Delete(key []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return convertError(e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	}))
}

// Has 检查键是否存在
func (e *Engine) Has(key []byte) (bool, error) {
	_, err := e.Get(key)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// Scan 按前缀遍历键值对，回调返回 false 时停止
//
// 回调中的 key 与 value 是副本，可以保留。
func (e *Engine) Scan(prefix []byte, fn func(key, value []byte) bool) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				return nil
			}
		}
		return nil
	})
}

// DropPrefix 删除指定前缀的所有键
func (e *Engine) DropPrefix(prefix []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.db.DropPrefix(prefix)
}

// NewWriteBatch 创建批量写入
func (e *Engine) NewWriteBatch() *badger.WriteBatch {
	return e.db.NewWriteBatch()
}

// Close 关闭存储引擎
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.gcCancel()
	e.gcWg.Wait()
	logger.Debug("存储引擎已关闭")
	return e.db.Close()
}

// convertError 转换 BadgerDB 错误
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case errors.Is(err, badger.ErrEmptyKey):
		return ErrEmptyKey
	case errors.Is(err, badger.ErrDBClosed):
		return ErrClosed
	default:
		return err
	}
}
