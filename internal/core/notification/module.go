package notification

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-peerset/config"
	"github.com/dep2p/go-peerset/internal/core/peerset"
	"github.com/dep2p/go-peerset/pkg/interfaces"
)

// Params Controller 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Transport  interfaces.Transport
	Peerstore  interfaces.Peerstore
	Tracer     peerset.Tracer `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
}

// Output Controller 模块输出
type Output struct {
	fx.Out

	Controller *Controller
	Reporter   interfaces.SubstreamReporter
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("notification",
		fx.Provide(ProvideController),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideController 提供 Controller
func ProvideController(p Params) (Output, error) {
	ctrl, err := New(ConfigFromUnified(p.UnifiedCfg), p.Transport, p.Peerstore,
		WithClock(p.Clock),
		WithTracer(p.Tracer),
	)
	if err != nil {
		return Output{}, err
	}
	return Output{Controller: ctrl, Reporter: ctrl}, nil
}

// registerLifecycle 注册生命周期
//
// 循环不使用 OnStart 的 context：它在启动完成后即失效。
func registerLifecycle(lc fx.Lifecycle, ctrl *Controller) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return ctrl.Start(context.Background())
		},
		OnStop: func(_ context.Context) error {
			return ctrl.Stop()
		},
	})
}
