package storage

import (
	"time"

	"github.com/dep2p/go-peerset/config"
)

// Config Storage 模块配置
type Config struct {
	// Path BadgerDB 数据库目录，InMemory 时忽略
	Path string

	// InMemory 使用内存模式，数据不落盘
	InMemory bool

	// SyncWrites 是否同步写入
	SyncWrites bool

	// GCInterval value log 垃圾回收间隔，0 表示禁用
	GCInterval time.Duration

	// GCDiscardRatio 垃圾回收丢弃比例
	GCDiscardRatio float64

	// BlockCacheSize 块缓存大小（字节）
	BlockCacheSize int64
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Path:           "./data/peerset.db",
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
		BlockCacheSize: 64 << 20, // 64MB
	}
}

// InMemoryConfig 返回内存模式配置（测试使用）
func InMemoryConfig() Config {
	cfg := DefaultConfig()
	cfg.Path = ""
	cfg.InMemory = true
	cfg.GCInterval = 0
	return cfg
}

// ConfigFromUnified 从统一配置创建 Storage 配置
func ConfigFromUnified(cfg *config.Config) Config {
	storageCfg := DefaultConfig()
	if cfg == nil {
		return storageCfg
	}

	storageCfg.InMemory = cfg.Storage.InMemory
	storageCfg.SyncWrites = cfg.Storage.SyncWrites
	storageCfg.GCInterval = cfg.Storage.GCInterval.Duration()
	if cfg.Storage.InMemory {
		storageCfg.Path = ""
		storageCfg.GCInterval = 0
	} else if cfg.Storage.DataDir != "" {
		storageCfg.Path = cfg.Storage.DBPath()
	}
	return storageCfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return ErrInvalidConfig
	}
	if c.GCInterval < 0 {
		return ErrInvalidConfig
	}
	if c.GCInterval > 0 && c.GCInterval < time.Minute {
		c.GCInterval = time.Minute
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio > 1 {
		c.GCDiscardRatio = 0.5
	}
	return nil
}

// WithPath 设置存储路径
func (c Config) WithPath(path string) Config {
	c.Path = path
	return c
}

// WithSyncWrites 设置同步写入
func (c Config) WithSyncWrites(sync bool) Config {
	c.SyncWrites = sync
	return c
}

// WithGC 设置垃圾回收间隔
func (c Config) WithGC(interval time.Duration) Config {
	c.GCInterval = interval
	return c
}
