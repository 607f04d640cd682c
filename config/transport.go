package config

import (
	"errors"
	"time"
)

// TransportConfig 模拟传输配置
//
// 内存传输模拟一组远端节点：按 Latency 延迟回报打开结果，
// 按 OpenFailureRate 随机失败，每个 InboundInterval 随机一个远端节点主动打开子流，
// 每个 ChurnInterval 随机关闭一个已打开的子流。
type TransportConfig struct {
	// RemotePeers 模拟的远端节点数量
	RemotePeers int `json:"remote_peers"`

	// Latency 打开子流的模拟延迟
	Latency Duration `json:"latency"`

	// OpenFailureRate 打开失败概率 [0, 1]
	OpenFailureRate float64 `json:"open_failure_rate"`

	// InboundInterval 远端主动打开子流的周期，0 表示禁用
	InboundInterval Duration `json:"inbound_interval"`

	// ChurnInterval 远端关闭子流的周期，0 表示禁用
	ChurnInterval Duration `json:"churn_interval"`

	// Seed 随机数种子，0 表示使用当前时间
	Seed int64 `json:"seed,omitempty"`
}

// DefaultTransportConfig 返回默认的模拟传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		RemotePeers:     64,
		Latency:         Duration(50 * time.Millisecond),
		OpenFailureRate: 0.1,
		InboundInterval: Duration(2 * time.Second),
		ChurnInterval:   Duration(5 * time.Second),
	}
}

// Validate 验证模拟传输配置
func (c TransportConfig) Validate() error {
	if c.RemotePeers < 0 {
		return errors.New("transport: remote peers must be non-negative")
	}
	if c.Latency < 0 || c.InboundInterval < 0 || c.ChurnInterval < 0 {
		return errors.New("transport: durations must be non-negative")
	}
	if c.OpenFailureRate < 0 || c.OpenFailureRate > 1 {
		return errors.New("transport: open failure rate must be within [0, 1]")
	}
	return nil
}
