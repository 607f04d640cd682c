package peerset

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-peerset/config"
	"github.com/dep2p/go-peerset/internal/core/metrics"
	"github.com/dep2p/go-peerset/internal/core/notification"
	"github.com/dep2p/go-peerset/internal/core/peerstore"
	"github.com/dep2p/go-peerset/internal/core/storage"
	"github.com/dep2p/go-peerset/internal/core/transport"
	"github.com/dep2p/go-peerset/internal/core/transport/memory"
	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/lib/log"
)

var fxLogger = log.Logger("peerset/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置与时钟
//  2. Storage（Peerstore.Persist 时）→ Peerstore
//  3. Metrics（Metrics.Enabled 时）
//  4. Transport → Notification
//  5. 用户扩展与 Node 组件注入
func buildFxApp(cfg *config.Config, o *options, node *Node) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	clk := o.clock
	if clk == nil {
		clk = clock.New()
	}

	modules := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(func() clock.Clock { return clk }),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 存储与节点信誉
	// ════════════════════════════════════════════════════════════════════════
	if cfg.Peerstore.Persist {
		modules = append(modules, storage.Module())
	}
	modules = append(modules, peerstore.Module())

	// ════════════════════════════════════════════════════════════════════════
	// 3. 指标（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if cfg.Metrics.Enabled {
		modules = append(modules,
			metrics.Module(),
			fx.Invoke(wireMetrics),
		)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 传输与通知协议
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		transport.Module(),
		notification.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展与 Node 组件注入
	// ════════════════════════════════════════════════════════════════════════
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}
	modules = append(modules, fx.Invoke(injectNodeComponents(node)))

	// ════════════════════════════════════════════════════════════════════════
	// 6. Fx 日志
	// ════════════════════════════════════════════════════════════════════════
	if o.fxLogging {
		modules = append(modules, fx.WithLogger(func() fxevent.Logger {
			zl, err := zap.NewDevelopment()
			if err != nil {
				return fxevent.NopLogger
			}
			return &fxevent.ZapLogger{Logger: zl}
		}))
	} else {
		modules = append(modules, fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}))
	}

	fxLogger.Debug("组装 Fx 应用",
		"protocols", len(cfg.Protocols),
		"persist", cfg.Peerstore.Persist,
		"metrics", cfg.Metrics.Enabled)
	return fx.New(modules...), nil
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

// metricsWireParams 指标连接参数
type metricsWireParams struct {
	fx.In

	Tracer     *metrics.Tracer
	Snapshot   *metrics.SnapshotLogger `optional:"true"`
	Controller *notification.Controller
}

// wireMetrics 把控制器的共享连接计数接入指标与快照
func wireMetrics(p metricsWireParams) {
	counter := p.Controller.Connected()
	p.Tracer.RegisterConnected(counter)
	if p.Snapshot != nil {
		p.Snapshot.SetConnected(counter)
	}
}

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	// 核心组件（必需）
	Controller *notification.Controller
	Peerstore  interfaces.Peerstore
	Book       *peerstore.Peerstore
	Transport  interfaces.Transport

	// 可选组件
	Memory   *memory.Transport       `optional:"true"`
	Registry *prometheus.Registry    `optional:"true"`
	Tracer   *metrics.Tracer         `optional:"true"`
	Snapshot *metrics.SnapshotLogger `optional:"true"`
}

// injectNodeComponents 创建 Node 组件注入函数
func injectNodeComponents(node *Node) interface{} {
	return func(p nodeInjectParams) {
		node.controller = p.Controller
		node.peerstore = p.Peerstore
		node.book = p.Book
		node.transport = p.Transport
		node.memory = p.Memory
		node.registry = p.Registry
		node.tracer = p.Tracer
		node.snapshot = p.Snapshot
	}
}
