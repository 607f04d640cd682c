package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-peerset/config"
)

// Params Storage 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result Storage 模块提供的结果
type Result struct {
	fx.Out

	Engine *Engine
	Config Config
}

// Module 返回 Storage Fx 模块
//
// 提供:
//   - *Engine: 存储引擎实例
//   - Config: 存储配置
//
// 生命周期:
//   - OnStart: 启动引擎（GC 后台任务）
//   - OnStop: 关闭引擎
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideStorage),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideStorage 提供存储引擎和配置
func ProvideStorage(p Params) (Result, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	eng, err := Open(cfg)
	if err != nil {
		logger.Error("创建存储引擎失败", "error", err)
		return Result{}, err
	}
	return Result{Engine: eng, Config: cfg}, nil
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, eng *Engine) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := eng.Start(); err != nil {
				logger.Error("存储引擎启动失败", "error", err)
				return err
			}
			logger.Info("存储引擎启动成功")
			return nil
		},
		OnStop: func(_ context.Context) error {
			if err := eng.Close(); err != nil {
				logger.Warn("存储引擎关闭失败", "error", err)
				return err
			}
			logger.Info("存储引擎已关闭")
			return nil
		},
	})
}
