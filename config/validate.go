package config

import "errors"

// ValidateAll 验证整个配置的有效性
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并修复常见问题
//
// 可修复的问题：
//   - 槽位上限为负 -> 0
//   - 槽位分配周期未设置 -> 默认值
//   - 退避上限小于初始退避 -> 取初始退避
//   - 倍数小于 1 -> 1
//   - 退避缓存大小未设置 -> 默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	for i := range c.Protocols {
		p := &c.Protocols[i]
		if p.MaxIn < 0 {
			p.MaxIn = 0
		}
		if p.MaxOut < 0 {
			p.MaxOut = 0
		}
		if p.SlotAllocationInterval <= 0 {
			p.SlotAllocationInterval = DefaultPeersetConfig(p.Protocol).SlotAllocationInterval
		}
	}

	if c.Backoff.MaxBackoff < c.Backoff.DisconnectBackoff {
		c.Backoff.MaxBackoff = c.Backoff.DisconnectBackoff
	}
	if c.Backoff.MaxBackoff < c.Backoff.OpenFailureBackoff {
		c.Backoff.MaxBackoff = c.Backoff.OpenFailureBackoff
	}
	if c.Backoff.Multiplier < 1 {
		c.Backoff.Multiplier = 1
	}
	if c.Backoff.CacheSize <= 0 {
		c.Backoff.CacheSize = DefaultBackoffConfig().CacheSize
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
