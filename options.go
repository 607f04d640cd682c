package peerset

import (
	"errors"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-peerset/config"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// config 统一配置，nil 表示使用 config.NewConfig()
	config *config.Config

	// preset 预设名称，在其他选项之后应用
	preset string

	clock clock.Clock

	// fxLogging 输出 Fx 事件日志
	fxLogging bool

	// userFxOptions 用户扩展的 Fx 选项
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{}
}

func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// unified 返回应用预设后的配置副本
func (o *options) unified() (*config.Config, error) {
	cfg := config.CloneConfig(o.config)
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := config.ApplyPreset(cfg, o.preset); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *options) ensureConfig() *config.Config {
	if o.config == nil {
		o.config = config.NewConfig()
	}
	return o.config
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置选项
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整的统一配置
//
// 之后的 WithProtocols 等选项在其基础上修改。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.config = config.CloneConfig(cfg)
		return nil
	}
}

// WithPreset 使用预设（"test" 或 "server"）
func WithPreset(name string) Option {
	return func(o *options) error {
		o.preset = name
		return nil
	}
}

// WithProtocols 追加通知协议
func WithProtocols(protocols ...config.PeersetConfig) Option {
	return func(o *options) error {
		cfg := o.ensureConfig()
		cfg.Protocols = append(cfg.Protocols, protocols...)
		return nil
	}
}

// WithKnownPeers 追加已知节点
func WithKnownPeers(peers ...config.KnownPeer) Option {
	return func(o *options) error {
		cfg := o.ensureConfig()
		cfg.KnownPeers = append(cfg.KnownPeers, peers...)
		return nil
	}
}

// WithMetrics 开启或关闭 Prometheus 指标
func WithMetrics(enabled bool) Option {
	return func(o *options) error {
		cfg := o.ensureConfig()
		cfg.Metrics.Enabled = enabled
		if !enabled {
			cfg.Metrics.ListenAddr = ""
		}
		return nil
	}
}

// WithClock 设置全部定时器使用的时钟，测试使用 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithFxLogging 输出 Fx 依赖注入事件日志
func WithFxLogging(enabled bool) Option {
	return func(o *options) error {
		o.fxLogging = enabled
		return nil
	}
}

// WithFxOption 追加用户 Fx 选项（例如替换 Transport 或注入观察者）
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
