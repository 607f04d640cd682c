package config

import (
	"errors"
	"time"
)

// DefaultProtocol 未配置任何协议时使用的协议
const DefaultProtocol = "/block-announces/1"

// PeersetConfig 单个通知协议的槽位配置
type PeersetConfig struct {
	// Protocol 协议名，例如 "/block-announces/1"
	Protocol string `json:"protocol"`

	// MaxIn 入站槽位上限
	MaxIn int `json:"max_in"`

	// MaxOut 出站槽位上限
	MaxOut int `json:"max_out"`

	// ReservedOnly 仅允许保留节点占用槽位
	ReservedOnly bool `json:"reserved_only,omitempty"`

	// ReservedPeers 保留节点 ID 列表
	ReservedPeers []string `json:"reserved_peers,omitempty"`

	// SlotAllocationInterval 槽位分配周期
	SlotAllocationInterval Duration `json:"slot_allocation_interval"`

	// StrictInvariants 不变量被破坏时 panic（测试与调试构建）
	StrictInvariants bool `json:"strict_invariants,omitempty"`
}

// DefaultPeersetConfig 返回默认的协议配置
func DefaultPeersetConfig(protocol string) PeersetConfig {
	return PeersetConfig{
		Protocol:               protocol,
		MaxIn:                  25,                    // 入站：25 个槽位
		MaxOut:                 15,                    // 出站：15 个槽位
		SlotAllocationInterval: Duration(time.Second), // 每秒补齐一次出站槽位
	}
}

// Validate 验证协议配置
func (c PeersetConfig) Validate() error {
	if c.Protocol == "" {
		return errors.New("peerset: protocol cannot be empty")
	}
	if c.MaxIn < 0 || c.MaxOut < 0 {
		return errors.New("peerset: slot limits must be non-negative")
	}
	if c.SlotAllocationInterval <= 0 {
		return errors.New("peerset: slot allocation interval must be positive")
	}
	for _, p := range c.ReservedPeers {
		if p == "" {
			return errors.New("peerset: reserved peer id cannot be empty")
		}
	}
	return nil
}

// WithSlots 设置槽位上限
func (c PeersetConfig) WithSlots(in, out int) PeersetConfig {
	c.MaxIn = in
	c.MaxOut = out
	return c
}

// WithReservedPeers 设置保留节点
func (c PeersetConfig) WithReservedPeers(peers ...string) PeersetConfig {
	c.ReservedPeers = peers
	return c
}

// WithReservedOnly 设置仅保留节点模式
func (c PeersetConfig) WithReservedOnly(on bool) PeersetConfig {
	c.ReservedOnly = on
	return c
}

// WithSlotAllocationInterval 设置槽位分配周期
func (c PeersetConfig) WithSlotAllocationInterval(d time.Duration) PeersetConfig {
	c.SlotAllocationInterval = Duration(d)
	return c
}
