// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 支持从 JSON 加载、环境变量覆盖和预设（test/server）。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Protocols = append(cfg.Protocols, config.DefaultPeersetConfig("/block-announces/1"))
//
//	// 从文件加载
//	cfg, err := config.LoadFile("peerset.json")
package config

import (
	"errors"
	"fmt"
)

// KnownPeer 已知节点配置
//
// 启动时写入 peerstore 作为初始拨号候选者。
type KnownPeer struct {
	// PeerID 节点 ID
	PeerID string `json:"peer_id"`

	// Reputation 初始信誉值（默认 0）
	Reputation int32 `json:"reputation,omitempty"`
}

// Config 是 go-peerset 的完整配置结构
//
// 配置按照功能模块组织：
//   - Protocols: 每个通知协议一个 peerset
//   - Peerstore: 信誉与封禁
//   - Backoff: 重拨退避策略
//   - Storage: 持久化存储
//   - Metrics: Prometheus 指标
//   - Transport: 模拟传输
type Config struct {
	// Protocols 通知协议列表，每个协议独立管理槽位
	Protocols []PeersetConfig `json:"protocols"`

	// Peerstore 节点信誉配置
	Peerstore PeerstoreConfig `json:"peerstore"`

	// Backoff 重拨退避配置
	Backoff BackoffConfig `json:"backoff"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Transport 模拟传输配置
	Transport TransportConfig `json:"transport"`

	// KnownPeers 已知节点列表
	KnownPeers []KnownPeer `json:"known_peers,omitempty"`
}

// NewConfig 创建默认配置
//
// 默认不包含任何协议，使用方需要追加 PeersetConfig。
func NewConfig() *Config {
	return &Config{
		Protocols: []PeersetConfig{},
		Peerstore: DefaultPeerstoreConfig(),
		Backoff:   DefaultBackoffConfig(),
		Storage:   DefaultStorageConfig(),
		Metrics:   DefaultMetricsConfig(),
		Transport: DefaultTransportConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Protocols))
	for i := range c.Protocols {
		p := &c.Protocols[i]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("protocols[%d]: %w", i, err)
		}
		if _, dup := seen[p.Protocol]; dup {
			return fmt.Errorf("protocols[%d]: duplicate protocol %q", i, p.Protocol)
		}
		seen[p.Protocol] = struct{}{}
	}
	if err := c.Peerstore.Validate(); err != nil {
		return err
	}
	if err := c.Backoff.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	for i, kp := range c.KnownPeers {
		if kp.PeerID == "" {
			return fmt.Errorf("known_peers[%d]: %w", i, errors.New("peer_id cannot be empty"))
		}
	}
	return nil
}

// Protocol 按协议名查找配置
func (c *Config) Protocol(name string) (PeersetConfig, bool) {
	for _, p := range c.Protocols {
		if p.Protocol == name {
			return p, true
		}
	}
	return PeersetConfig{}, false
}
