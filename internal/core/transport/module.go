package transport

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-peerset/config"
	"github.com/dep2p/go-peerset/internal/core/transport/memory"
	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/lib/log"
)

var logger = log.Logger("core/transport")

// Params 传输依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
}

// Output 传输模块输出
type Output struct {
	fx.Out

	Transport interfaces.Transport
	Memory    *memory.Transport
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransport),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideTransport 提供内存模拟传输
func ProvideTransport(p Params) Output {
	cfg := memory.ConfigFromUnified(p.UnifiedCfg)
	logger.Debug("创建模拟传输",
		"remotePeers", cfg.RemotePeers,
		"latency", cfg.Latency,
		"openFailureRate", cfg.OpenFailureRate)

	t := memory.New(cfg, memory.WithClock(p.Clock))
	return Output{Transport: t, Memory: t}
}

// lifecycleInput 生命周期注册输入
type lifecycleInput struct {
	fx.In

	LC        fx.Lifecycle
	Memory    *memory.Transport
	Peerstore interfaces.Peerstore
}

// registerLifecycle 注册生命周期钩子
//
// OnStart 把远端节点写入 Peerstore 后启动模拟循环。
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			for _, peer := range input.Memory.Peers() {
				input.Peerstore.AddPeer(peer)
			}
			return input.Memory.Start(context.Background())
		},
		OnStop: func(_ context.Context) error {
			return input.Memory.Stop()
		},
	})
}
