package config

import (
	"errors"
	"math"
	"time"
)

// DefaultBanThreshold 默认封禁阈值：信誉低于 int32 最小值的 71% 时封禁
const DefaultBanThreshold int32 = 71 * (math.MinInt32 / 100)

// PeerstoreConfig 节点信誉配置
type PeerstoreConfig struct {
	// BanThreshold 封禁阈值，信誉低于该值的节点被封禁
	BanThreshold int32 `json:"ban_threshold"`

	// DecayInterval 信誉衰减周期
	DecayInterval Duration `json:"decay_interval"`

	// InverseDecrement 每个周期衰减 rep/InverseDecrement（至少 1）
	InverseDecrement int32 `json:"inverse_decrement"`

	// ForgetAfter 信誉归零且无连接的节点在此时间后被遗忘
	ForgetAfter Duration `json:"forget_after"`

	// Persist 是否把信誉持久化到存储引擎
	Persist bool `json:"persist,omitempty"`
}

// DefaultPeerstoreConfig 返回默认的节点信誉配置
func DefaultPeerstoreConfig() PeerstoreConfig {
	return PeerstoreConfig{
		BanThreshold:     DefaultBanThreshold,
		DecayInterval:    Duration(time.Second),
		InverseDecrement: 200,
		ForgetAfter:      Duration(time.Hour),
		Persist:          false,
	}
}

// Validate 验证节点信誉配置
func (c PeerstoreConfig) Validate() error {
	if c.BanThreshold >= 0 {
		return errors.New("peerstore: ban threshold must be negative")
	}
	if c.DecayInterval <= 0 {
		return errors.New("peerstore: decay interval must be positive")
	}
	if c.InverseDecrement <= 0 {
		return errors.New("peerstore: inverse decrement must be positive")
	}
	if c.ForgetAfter < 0 {
		return errors.New("peerstore: forget after must be non-negative")
	}
	return nil
}

// WithPersist 设置是否持久化
func (c PeerstoreConfig) WithPersist(on bool) PeerstoreConfig {
	c.Persist = on
	return c
}

// WithDecay 设置衰减参数
func (c PeerstoreConfig) WithDecay(interval time.Duration, inverseDecrement int32) PeerstoreConfig {
	c.DecayInterval = Duration(interval)
	c.InverseDecrement = inverseDecrement
	return c
}
