package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。
//
// 示例 JSON:
//
//	{
//	  "protocols": [{"protocol": "/block-announces/1", "max_in": 25, "max_out": 15, "slot_allocation_interval": "1s"}],
//	  "peerstore": {"persist": true},
//	  "backoff": {"max_backoff": "2m"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	for i := range cfg.Protocols {
		if cfg.Protocols[i].SlotAllocationInterval == 0 {
			cfg.Protocols[i].SlotAllocationInterval = DefaultPeersetConfig("").SlotAllocationInterval
		}
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, err
	}
	return FromJSON(data)
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "test": 内存存储、严格不变量、固定短退避、关闭 HTTP 指标
//   - "server": 更大的槽位与持久化信誉
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case "test":
		return applyTestPreset(cfg)
	case "server":
		return applyServerPreset(cfg)
	case "":
		return nil
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
}

func applyTestPreset(cfg *Config) error {
	cfg.Storage.InMemory = true
	cfg.Storage.GCInterval = 0
	cfg.Metrics.ListenAddr = ""
	cfg.Metrics.SnapshotInterval = 0
	cfg.Backoff = cfg.Backoff.WithFixed(DefaultBackoffConfig().DisconnectBackoff.Duration())
	for i := range cfg.Protocols {
		cfg.Protocols[i].StrictInvariants = true
	}
	return nil
}

func applyServerPreset(cfg *Config) error {
	cfg.Peerstore.Persist = true
	for i := range cfg.Protocols {
		p := &cfg.Protocols[i]
		if p.MaxIn < 50 {
			p.MaxIn = 50
		}
		if p.MaxOut < 25 {
			p.MaxOut = 25
		}
	}
	return nil
}

// CloneConfig 深拷贝配置
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}

	cloned := *cfg
	cloned.Protocols = make([]PeersetConfig, len(cfg.Protocols))
	for i, p := range cfg.Protocols {
		p.ReservedPeers = append([]string(nil), p.ReservedPeers...)
		cloned.Protocols[i] = p
	}
	cloned.KnownPeers = append([]KnownPeer(nil), cfg.KnownPeers...)
	return &cloned
}
