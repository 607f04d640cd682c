package backoff

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-peerset/pkg/lib/log"
	"github.com/dep2p/go-peerset/pkg/types"
)

var logger = log.Logger("core/backoff")

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("backoff: invalid config")

// Reason 节点进入退避的原因
type Reason int

const (
	// ReasonDisconnected 子流关闭
	ReasonDisconnected Reason = iota
	// ReasonOpenFailure 子流打开失败
	ReasonOpenFailure
)

// String 返回字符串表示
func (r Reason) String() string {
	if r == ReasonOpenFailure {
		return "open_failure"
	}
	return "disconnected"
}

// Key 退避条目键（每个协议独立退避）
type Key struct {
	Protocol types.ProtocolID
	Peer     types.PeerID
}

// ExpiredFunc 退避到期回调，在定时器 goroutine 中执行
type ExpiredFunc func(key Key, reason Reason)

// Config 调度器配置
type Config struct {
	// Disconnect 子流关闭后的退避策略
	Disconnect BackoffFactory

	// OpenFailure 打开失败后的退避策略
	OpenFailure BackoffFactory

	// CacheSize 保留的按节点策略数量
	CacheSize int

	// Clock 时钟，测试使用 clock.NewMock()
	Clock clock.Clock
}

type strategyKey struct {
	Key
	reason Reason
}

type pendingTimer struct {
	timer    *clock.Timer
	reason   Reason
	deadline time.Time
	seq      uint64
}

// Scheduler 按节点的退避调度器
//
// 每个 (协议, 节点, 原因) 持有一个有状态的 BackoffStrategy，连续失败时退避逐渐变长；
// 策略保存在 2Q LRU 缓存中，节点成功连接后由 Reset 清除。
// 每个 (协议, 节点) 同时最多一个定时器，重复调度会替换旧定时器。
type Scheduler struct {
	mu         sync.Mutex
	clock      clock.Clock
	factories  map[Reason]BackoffFactory
	strategies *lru.TwoQueueCache[strategyKey, BackoffStrategy]
	timers     map[Key]*pendingTimer
	seq        uint64
	onExpired  ExpiredFunc
	closed     bool
}

// NewScheduler 创建调度器
func NewScheduler(cfg Config, onExpired ExpiredFunc) (*Scheduler, error) {
	if cfg.Disconnect == nil || cfg.OpenFailure == nil || onExpired == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	cache, err := lru.New2Q[strategyKey, BackoffStrategy](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		clock: cfg.Clock,
		factories: map[Reason]BackoffFactory{
			ReasonDisconnected: cfg.Disconnect,
			ReasonOpenFailure:  cfg.OpenFailure,
		},
		strategies: cache,
		timers:     make(map[Key]*pendingTimer),
		onExpired:  onExpired,
	}, nil
}

// Schedule 为节点安排退避到期，返回退避时长
func (s *Scheduler) Schedule(key Key, reason Reason) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	sk := strategyKey{Key: key, reason: reason}
	strat, ok := s.strategies.Get(sk)
	if !ok {
		strat = s.factories[reason]()
		s.strategies.Add(sk, strat)
	}
	delay := strat.Delay()

	if old, ok := s.timers[key]; ok {
		old.timer.Stop()
	}

	s.seq++
	seq := s.seq
	s.timers[key] = &pendingTimer{
		timer:    s.clock.AfterFunc(delay, func() { s.fire(key, seq) }),
		reason:   reason,
		deadline: s.clock.Now().Add(delay),
		seq:      seq,
	}

	logger.Debug("安排退避", "protocol", key.Protocol, "peer", key.Peer, "reason", reason, "delay", delay)
	return delay
}

func (s *Scheduler) fire(key Key, seq uint64) {
	s.mu.Lock()
	p, ok := s.timers[key]
	if !ok || p.seq != seq || s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	cb := s.onExpired
	s.mu.Unlock()

	cb(key, p.reason)
}

// Reset 清除节点的退避策略（连接成功后调用）
func (s *Scheduler) Reset(key Key) {
	s.strategies.Remove(strategyKey{Key: key, reason: ReasonDisconnected})
	s.strategies.Remove(strategyKey{Key: key, reason: ReasonOpenFailure})
}

// Cancel 取消节点的待到期定时器
func (s *Scheduler) Cancel(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.timers[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.timers, key)
	return true
}

// Deadline 返回节点退避到期时间
func (s *Scheduler) Deadline(key Key) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.timers[key]
	if !ok {
		return time.Time{}, false
	}
	return p.deadline, true
}

// Pending 返回待到期的定时器数
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close 停止所有定时器，之后 Schedule 不再生效
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for key, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, key)
	}
	s.strategies.Purge()
}
