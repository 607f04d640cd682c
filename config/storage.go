package config

import (
	"errors"
	"path/filepath"
	"time"
)

// StorageConfig 存储配置
//
// Peerstore 开启持久化时使用 BadgerDB 存储节点信誉：
//
//	${DataDir}/
//	└── peerset.db/         # BadgerDB 主数据库
type StorageConfig struct {
	// DataDir 数据目录路径
	DataDir string `json:"data_dir"`

	// InMemory 使用内存模式（测试、临时节点）
	InMemory bool `json:"in_memory,omitempty"`

	// SyncWrites 每次写入同步到磁盘
	SyncWrites bool `json:"sync_writes,omitempty"`

	// GCInterval value log 垃圾回收间隔，0 表示禁用
	GCInterval Duration `json:"gc_interval"`
}

// DefaultStorageConfig 返回默认的存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir:    "./data",
		GCInterval: Duration(10 * time.Minute),
	}
}

// Validate 验证存储配置的有效性
func (c StorageConfig) Validate() error {
	if c.DataDir == "" && !c.InMemory {
		return errors.New("storage: data_dir cannot be empty")
	}
	if c.GCInterval < 0 {
		return errors.New("storage: gc interval must be non-negative")
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "peerset.db")
}
