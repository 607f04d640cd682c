package peerstore

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-peerset/config"
	"github.com/dep2p/go-peerset/internal/core/storage"
	"github.com/dep2p/go-peerset/pkg/interfaces"
	"github.com/dep2p/go-peerset/pkg/types"
)

// Params Peerstore 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config  `optional:"true"`
	Engine     *storage.Engine `optional:"true"` // 开启持久化时必需
	Clock      clock.Clock     `optional:"true"`
}

// Output Peerstore 模块输出
type Output struct {
	fx.Out

	Peerstore interfaces.Peerstore
	Book      *Peerstore
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("peerstore",
		fx.Provide(ProvidePeerstore),
		fx.Invoke(registerLifecycle),
	)
}

// ProvidePeerstore 提供 Peerstore 实例
//
// 统一配置开启 Peerstore.Persist 时必须注入存储引擎。
func ProvidePeerstore(p Params) (Output, error) {
	opts := []Option{WithClock(p.Clock)}

	if p.UnifiedCfg != nil && p.UnifiedCfg.Peerstore.Persist {
		if p.Engine == nil {
			return Output{}, fmt.Errorf("%w: persist requires a storage engine", ErrInvalidConfig)
		}
		opts = append(opts, WithStore(storage.NewStore(p.Engine, StorePrefix)))
	}

	ps, err := New(ConfigFromUnified(p.UnifiedCfg), opts...)
	if err != nil {
		return Output{}, err
	}
	return Output{Peerstore: ps, Book: ps}, nil
}

// lifecycleInput 生命周期注册输入
type lifecycleInput struct {
	fx.In

	LC         fx.Lifecycle
	Book       *Peerstore
	UnifiedCfg *config.Config `optional:"true"`
}

// registerLifecycle 注册生命周期钩子
//
// OnStart 写入配置中的已知节点并启动衰减循环；OnStop 保存并关闭。
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if input.UnifiedCfg != nil {
				SeedKnownPeers(input.Book, input.UnifiedCfg.KnownPeers)
			}
			input.Book.Start()
			logger.Info("Peerstore 已启动", "peers", input.Book.Len())
			return nil
		},
		OnStop: func(_ context.Context) error {
			return input.Book.Close()
		},
	})
}

// SeedKnownPeers 写入已知节点与初始信誉
//
// 已有非零信誉（例如从存储加载）的节点不再叠加初始信誉。
func SeedKnownPeers(ps interfaces.Peerstore, known []config.KnownPeer) {
	for _, kp := range known {
		id := types.PeerID(kp.PeerID)
		ps.AddPeer(id)
		if kp.Reputation != 0 && ps.PeerReputation(id) == 0 {
			ps.ReportPeer(id, types.NewReputationChange(kp.Reputation, "Known peer"))
		}
	}
}
