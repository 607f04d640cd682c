package config

import (
	"errors"
	"time"
)

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Enabled 是否注册指标
	Enabled bool `json:"enabled"`

	// ListenAddr /metrics HTTP 监听地址，空表示不启动 HTTP 服务
	ListenAddr string `json:"listen_addr,omitempty"`

	// SnapshotInterval 周期性输出状态快照日志的间隔，0 表示不输出
	SnapshotInterval Duration `json:"snapshot_interval"`
}

// DefaultMetricsConfig 返回默认的指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:          true,
		ListenAddr:       "127.0.0.1:9615",
		SnapshotInterval: Duration(30 * time.Second),
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if !c.Enabled && c.ListenAddr != "" {
		return errors.New("metrics: listen_addr requires metrics to be enabled")
	}
	if c.SnapshotInterval < 0 {
		return errors.New("metrics: snapshot_interval must not be negative")
	}
	return nil
}
