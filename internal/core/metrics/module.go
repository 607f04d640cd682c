package metrics

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	"github.com/dep2p/go-peerset/config"
	"github.com/dep2p/go-peerset/internal/core/peerset"
	"github.com/dep2p/go-peerset/internal/core/peerstore"
)

// Config 指标配置
type Config struct {
	// SnapshotInterval 快照日志间隔，0 表示不输出
	SnapshotInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		SnapshotInterval: config.DefaultMetricsConfig().SnapshotInterval.Duration(),
	}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		SnapshotInterval: cfg.Metrics.SnapshotInterval.Duration(),
	}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config       `optional:"true"`
	Clock      clock.Clock          `optional:"true"`
	Book       *peerstore.Peerstore `optional:"true"`
}

// Output Metrics 模块输出
type Output struct {
	fx.Out

	Registry *prometheus.Registry
	Tracer   *Tracer
	Peerset  peerset.Tracer
	Snapshot *SnapshotLogger
}

// Module 返回 Fx 模块
//
// 只在统一配置开启 Metrics.Enabled 时装配；未装配时 peerset 使用空 Tracer。
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideMetrics),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideMetrics 创建独立注册器与 Tracer
func ProvideMetrics(p Params) Output {
	cfg := ConfigFromUnified(p.UnifiedCfg)

	reg := prometheus.NewRegistry()
	RegisterCollectors(reg,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tracer := NewTracer(WithRegisterer(reg))
	if p.Book != nil {
		tracer.RegisterPeerBook(p.Book)
	}

	var snap *SnapshotLogger
	if cfg.SnapshotInterval > 0 {
		snap = NewSnapshotLogger(tracer, cfg.SnapshotInterval)
		if p.Clock != nil {
			snap.SetClock(p.Clock)
		}
		if p.Book != nil {
			snap.SetPeerBook(p.Book)
		}
	}

	return Output{Registry: reg, Tracer: tracer, Peerset: tracer, Snapshot: snap}
}

// lifecycleInput 生命周期注册输入
type lifecycleInput struct {
	fx.In

	LC       fx.Lifecycle
	Snapshot *SnapshotLogger
}

// registerLifecycle 注册快照的启动与停止
func registerLifecycle(input lifecycleInput) {
	if input.Snapshot == nil {
		return
	}
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			input.Snapshot.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			input.Snapshot.Stop()
			return nil
		},
	})
}
