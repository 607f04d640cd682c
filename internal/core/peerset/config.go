package peerset

import (
	"fmt"

	"github.com/dep2p/go-peerset/config"
	"github.com/dep2p/go-peerset/pkg/types"
)

// Config Peerset 配置
type Config struct {
	// Protocol 本实例管理的通知协议
	Protocol types.ProtocolID

	// MaxIn 入站槽位上限
	MaxIn int

	// MaxOut 出站槽位上限
	MaxOut int

	// ReservedOnly 为 true 时只有保留节点可以占用槽位
	ReservedOnly bool

	// ReservedPeers 初始保留节点
	ReservedPeers []types.PeerID

	// StrictInvariants 不变量被破坏时 panic（测试与调试构建）
	//
	// 关闭时只记录 Warn 日志并忽略该回报。
	StrictInvariants bool
}

// DefaultConfig 返回默认配置
func DefaultConfig(protocol types.ProtocolID) Config {
	return Config{
		Protocol: protocol,
		MaxIn:    25,
		MaxOut:   15,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.Protocol == "" {
		return fmt.Errorf("%w: empty protocol", ErrInvalidConfig)
	}
	if c.MaxIn < 0 || c.MaxOut < 0 {
		return fmt.Errorf("%w: negative slot count (in=%d, out=%d)", ErrInvalidConfig, c.MaxIn, c.MaxOut)
	}
	for _, p := range c.ReservedPeers {
		if p.IsEmpty() {
			return fmt.Errorf("%w: empty reserved peer id", ErrInvalidConfig)
		}
	}
	return nil
}

// WithReservedPeers 设置保留节点
func (c Config) WithReservedPeers(peers ...types.PeerID) Config {
	c.ReservedPeers = peers
	return c
}

// WithReservedOnly 设置仅保留节点模式
func (c Config) WithReservedOnly(on bool) Config {
	c.ReservedOnly = on
	return c
}

// WithSlots 设置入站/出站槽位
func (c Config) WithSlots(in, out int) Config {
	c.MaxIn = in
	c.MaxOut = out
	return c
}

// WithStrictInvariants 设置严格不变量模式
func (c Config) WithStrictInvariants(on bool) Config {
	c.StrictInvariants = on
	return c
}

// ConfigFromProtocol 从统一配置中的协议配置创建 Peerset 配置
func ConfigFromProtocol(pc config.PeersetConfig) Config {
	reserved := make([]types.PeerID, 0, len(pc.ReservedPeers))
	for _, id := range pc.ReservedPeers {
		reserved = append(reserved, types.PeerID(id))
	}
	return Config{
		Protocol:         types.ProtocolID(pc.Protocol),
		MaxIn:            pc.MaxIn,
		MaxOut:           pc.MaxOut,
		ReservedOnly:     pc.ReservedOnly,
		ReservedPeers:    reserved,
		StrictInvariants: pc.StrictInvariants,
	}
}
