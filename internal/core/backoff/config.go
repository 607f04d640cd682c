package backoff

import (
	"math/rand"
	"time"

	"github.com/dep2p/go-peerset/config"
)

// ConfigFromUnified 从统一配置创建调度器配置
//
// 两种原因各自使用指数退避；Multiplier 为 1 时等价于固定退避。
// 未知的抖动名称退化为 full。
func ConfigFromUnified(cfg *config.Config) Config {
	bc := config.DefaultBackoffConfig()
	if cfg != nil {
		bc = cfg.Backoff
	}

	jitter, ok := JitterByName(bc.Jitter)
	if !ok {
		jitter = FullJitter
	}

	seed := time.Now().UnixNano()
	return Config{
		Disconnect: NewExponentialBackoff(
			bc.DisconnectBackoff.Duration(), bc.MaxBackoff.Duration(),
			bc.Multiplier, jitter, rand.NewSource(seed)),
		OpenFailure: NewExponentialBackoff(
			bc.OpenFailureBackoff.Duration(), bc.MaxBackoff.Duration(),
			bc.Multiplier, jitter, rand.NewSource(seed+1)),
		CacheSize: bc.CacheSize,
	}
}
