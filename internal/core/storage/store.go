package storage

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
)

// Store 带前缀隔离的 KV 存储
//
// 所有键自动添加前缀，回调与返回值中的键已去除前缀。
type Store struct {
	engine *Engine
	prefix []byte
}

// NewStore 创建带前缀的 Store
func NewStore(eng *Engine, prefix []byte) *Store {
	return &Store{
		engine: eng,
		prefix: append([]byte(nil), prefix...),
	}
}

// prefixKey 为键添加前缀
func (s *Store) prefixKey(key []byte) []byte {
	prefixed := make([]byte, len(s.prefix)+len(key))
	copy(prefixed, s.prefix)
	copy(prefixed[len(s.prefix):], key)
	return prefixed
}

// Get 获取指定键的值
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.engine.Get(s.prefixKey(key))
}

// Put 设置键值对
func (s *Store) Put(key, value []byte) error {
	return s.engine.Put(s.prefixKey(key), value)
}

// Delete 删除指定键
func (s *Store) Delete(key []byte) error {
	return s.engine.Delete(s.prefixKey(key))
}

// Has 检查键是否存在
func (s *Store) Has(key []byte) (bool, error) {
	return s.engine.Has(s.prefixKey(key))
}

// GetJSON 获取并反序列化 JSON 值
func (s *Store) GetJSON(key []byte, v interface{}) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ErrCorrupted
	}
	return nil
}

// PutJSON 序列化并存储 JSON 值
func (s *Store) PutJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, data)
}

// PrefixScan 扫描指定子前缀的所有键值对，回调返回 false 时停止
func (s *Store) PrefixScan(subPrefix []byte, fn func(key, value []byte) bool) error {
	return s.engine.Scan(s.prefixKey(subPrefix), func(key, value []byte) bool {
		return fn(key[len(s.prefix):], value)
	})
}

// Count 统计指定子前缀的键数量
func (s *Store) Count(subPrefix []byte) (int, error) {
	var n int
	err := s.PrefixScan(subPrefix, func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

// Clear 删除本 Store 下的所有键
func (s *Store) Clear() error {
	return s.engine.DropPrefix(s.prefix)
}

// SubStore 在当前前缀基础上添加子前缀
func (s *Store) SubStore(subPrefix []byte) *Store {
	return NewStore(s.engine, s.prefixKey(subPrefix))
}

// Prefix 返回当前前缀
func (s *Store) Prefix() []byte {
	return s.prefix
}

// ============================================================================
//                              批量写入
// ============================================================================

// Batch 带前缀的批量写入
type Batch struct {
	store *Store
	wb    *badger.WriteBatch
	size  int
	err   error
}

// NewBatch 创建批量写入
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s, wb: s.engine.NewWriteBatch()}
}

// Put 添加写入操作
func (b *Batch) Put(key, value []byte) {
	if b.err != nil {
		return
	}
	b.err = b.wb.Set(b.store.prefixKey(key), value)
	b.size++
}

// PutJSON 添加 JSON 写入操作
func (b *Batch) PutJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.Put(key, data)
	return nil
}

// Delete 添加删除操作
func (b *Batch) Delete(key []byte) {
	if b.err != nil {
		return
	}
	b.err = b.wb.Delete(b.store.prefixKey(key))
	b.size++
}

// Size 返回操作数量
func (b *Batch) Size() int {
	return b.size
}

// Write 提交批量写入，之后 Batch 不可再用
func (b *Batch) Write() error {
	if b.err != nil {
		b.wb.Cancel()
		return b.err
	}
	return convertError(b.wb.Flush())
}

// Cancel 放弃批量写入
func (b *Batch) Cancel() {
	b.wb.Cancel()
}
