package notification

import (
	"fmt"
	"time"

	"github.com/dep2p/go-peerset/config"
	"github.com/dep2p/go-peerset/internal/core/backoff"
	"github.com/dep2p/go-peerset/internal/core/peerset"
	"github.com/dep2p/go-peerset/pkg/types"
)

// ProtocolConfig 单个协议的配置
type ProtocolConfig struct {
	// Peerset 核心配置
	Peerset peerset.Config

	// SlotAllocationInterval 周期性补齐槽位的间隔，0 表示不补齐
	SlotAllocationInterval time.Duration
}

// Config Controller 配置
type Config struct {
	// Protocols 每个协议一个 peerset
	Protocols []ProtocolConfig

	// Backoff 重拨退避调度器配置
	Backoff backoff.Config
}

// DefaultConfig 返回默认配置：只有 config.DefaultProtocol
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建 Controller 配置
//
// 统一配置没有协议时使用 config.DefaultProtocol。
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	out := Config{
		Protocols: make([]ProtocolConfig, 0, len(cfg.Protocols)+1),
		Backoff:   backoff.ConfigFromUnified(cfg),
	}
	protocols := cfg.Protocols
	if len(protocols) == 0 {
		protocols = []config.PeersetConfig{config.DefaultPeersetConfig(config.DefaultProtocol)}
	}
	for _, pc := range protocols {
		out.Protocols = append(out.Protocols, ProtocolConfig{
			Peerset:                peerset.ConfigFromProtocol(pc),
			SlotAllocationInterval: pc.SlotAllocationInterval.Duration(),
		})
	}
	return out
}

// Validate 验证配置
func (c Config) Validate() error {
	if len(c.Protocols) == 0 {
		return fmt.Errorf("%w: no protocols", ErrInvalidConfig)
	}
	seen := make(map[types.ProtocolID]struct{}, len(c.Protocols))
	for _, pc := range c.Protocols {
		if err := pc.Peerset.Validate(); err != nil {
			return err
		}
		if _, ok := seen[pc.Peerset.Protocol]; ok {
			return fmt.Errorf("%w: duplicate protocol %s", ErrInvalidConfig, pc.Peerset.Protocol)
		}
		seen[pc.Peerset.Protocol] = struct{}{}
		if pc.SlotAllocationInterval < 0 {
			return fmt.Errorf("%w: negative slot allocation interval", ErrInvalidConfig)
		}
	}
	return nil
}
