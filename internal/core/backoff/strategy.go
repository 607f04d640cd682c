// Package backoff 提供可插拔的退避策略与按节点的重拨调度器
//
// peerset 核心没有定时器：节点进入 Backoff 后，由所有者通过 Scheduler
// 计算退避时长，到期时回调 ReportBackoffExpired。
package backoff

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// BackoffFactory 创建 BackoffStrategy 实例
type BackoffFactory func() BackoffStrategy

// BackoffStrategy 有状态的退避策略
type BackoffStrategy interface {
	// Delay 根据之前的调用计算下一次退避时长
	Delay() time.Duration
	// Reset 清除内部状态
	Reset()
}

// Jitter 返回介于 min 和 max 之间的时长，min 必须不大于 max
type Jitter func(duration, min, max time.Duration, rng *rand.Rand) time.Duration

// FullJitter 从 [min, boundedDur] 内均匀随机选择
func FullJitter(duration, min, max time.Duration, rng *rand.Rand) time.Duration {
	if duration <= min {
		return min
	}

	normalizedDur := boundedDuration(duration, min, max) - min
	return boundedDuration(time.Duration(rng.Int63n(int64(normalizedDur)))+min, min, max)
}

// NoJitter 返回限定在 [min, max] 内的原始时长
func NoJitter(duration, min, max time.Duration, _ *rand.Rand) time.Duration {
	return boundedDuration(duration, min, max)
}

// JitterByName 按名称选择抖动函数（full 或 none）
func JitterByName(name string) (Jitter, bool) {
	switch name {
	case "", "full":
		return FullJitter, true
	case "none":
		return NoJitter, true
	default:
		return nil, false
	}
}

func boundedDuration(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

// ============================================================================
//                              固定退避
// ============================================================================

// NewFixedBackoff 固定时长的退避
func NewFixedBackoff(delay time.Duration) BackoffFactory {
	return func() BackoffStrategy {
		return &fixedBackoff{delay: delay}
	}
}

type fixedBackoff struct {
	delay time.Duration
}

func (b *fixedBackoff) Delay() time.Duration { return b.delay }
func (b *fixedBackoff) Reset()               {}

// ============================================================================
//                              指数退避
// ============================================================================

// NewExponentialBackoff 指数退避：min * multiplier^attempt，限定在 [min, max] 并加抖动
//
// multiplier 不大于 1 时退化为固定 min。
func NewExponentialBackoff(min, max time.Duration, multiplier float64, jitter Jitter, rngSrc rand.Source) BackoffFactory {
	if max < min {
		max = min
	}
	if jitter == nil {
		jitter = NoJitter
	}
	rng := rand.New(&lockedSource{src: rngSrc})
	return func() BackoffStrategy {
		return &exponentialBackoff{
			min:        min,
			max:        max,
			multiplier: multiplier,
			jitter:     jitter,
			rng:        rng,
		}
	}
}

type exponentialBackoff struct {
	min        time.Duration
	max        time.Duration
	multiplier float64
	jitter     Jitter
	rng        *rand.Rand
	attempt    int
}

func (b *exponentialBackoff) Delay() time.Duration {
	attempt := b.attempt
	b.attempt++

	if b.multiplier <= 1 {
		return b.min
	}

	d := float64(b.min) * math.Pow(b.multiplier, float64(attempt))
	if d > float64(b.max) || math.IsInf(d, 0) {
		d = float64(b.max)
	}
	return b.jitter(time.Duration(d), b.min, b.max, b.rng)
}

func (b *exponentialBackoff) Reset() {
	b.attempt = 0
}

// lockedSource 线程安全的随机数源
type lockedSource struct {
	lk  sync.Mutex
	src rand.Source
}

func (r *lockedSource) Int63() (n int64) {
	r.lk.Lock()
	n = r.src.Int63()
	r.lk.Unlock()
	return
}

func (r *lockedSource) Seed(seed int64) {
	r.lk.Lock()
	r.src.Seed(seed)
	r.lk.Unlock()
}
