package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// NodeSnapshot 节点状态快照
//
// 周期性输出，便于日志分析与监控。
type NodeSnapshot struct {
	Timestamp     time.Time     `json:"timestamp"`
	UptimeSeconds int64         `json:"uptimeSeconds"`
	Interval      time.Duration `json:"interval"`

	// 共享计数与 Peerstore
	ConnectedPeers int64 `json:"connectedPeers"`
	KnownPeers     int   `json:"knownPeers"`
	BannedPeers    int   `json:"bannedPeers"`

	Protocols []ProtocolSnapshot `json:"protocols"`

	// 资源统计
	Goroutines  int     `json:"goroutines"`
	HeapAllocMB float64 `json:"heapAllocMB"`
}

// ConnectedCounter 已连接计数
type ConnectedCounter interface {
	Load() int64
}

// SnapshotLogger 周期性快照
type SnapshotLogger struct {
	mu sync.RWMutex

	tracer   *Tracer
	clock    clock.Clock
	interval time.Duration

	startTime time.Time
	connected ConnectedCounter
	book      PeerBook

	lastSnapshot     *NodeSnapshot
	lastSnapshotTime time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSnapshotLogger 创建快照输出器，interval <= 0 时使用 30s
func NewSnapshotLogger(tracer *Tracer, interval time.Duration) *SnapshotLogger {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := clock.New()
	return &SnapshotLogger{
		tracer:    tracer,
		clock:     c,
		interval:  interval,
		startTime: c.Now(),
	}
}

// SetClock 设置时钟，必须在 Start 之前调用
func (s *SnapshotLogger) SetClock(c clock.Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
	s.startTime = c.Now()
}

// SetConnected 设置已连接计数来源
func (s *SnapshotLogger) SetConnected(c ConnectedCounter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = c
}

// SetPeerBook 设置 Peerstore 统计来源
func (s *SnapshotLogger) SetPeerBook(b PeerBook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book = b
}

// Start 启动周期性快照，重复调用无效
func (s *SnapshotLogger) Start() {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.lastSnapshotTime = s.clock.Now()
	ticker := s.clock.Ticker(s.interval)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx, ticker)

	logger.Info("状态快照已启动", "interval", s.interval)
}

// Stop 停止快照
func (s *SnapshotLogger) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *SnapshotLogger) loop(ctx context.Context, ticker *clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logSnapshot(s.Collect())
		}
	}
}

// Collect 收集当前快照
func (s *SnapshotLogger) Collect() *NodeSnapshot {
	s.mu.RLock()
	now := s.clock.Now()
	elapsed := now.Sub(s.lastSnapshotTime)
	connected, book := s.connected, s.book
	uptime := now.Sub(s.startTime)
	s.mu.RUnlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := &NodeSnapshot{
		Timestamp:     now,
		UptimeSeconds: int64(uptime.Seconds()),
		Interval:      elapsed,
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(memStats.HeapAlloc) / 1024 / 1024,
	}
	if connected != nil {
		snap.ConnectedPeers = connected.Load()
	}
	if book != nil {
		snap.KnownPeers = book.Len()
		snap.BannedPeers = book.BannedCount()
	}
	if s.tracer != nil {
		snap.Protocols = s.tracer.Snapshot()
	}

	s.mu.Lock()
	s.lastSnapshot = snap
	s.lastSnapshotTime = now
	s.mu.Unlock()

	return snap
}

// GetLastSnapshot 获取最新快照
func (s *SnapshotLogger) GetLastSnapshot() *NodeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSnapshot
}

func (s *SnapshotLogger) logSnapshot(snap *NodeSnapshot) {
	logger.Info("节点状态快照",
		"uptime", snap.UptimeSeconds,
		"connectedPeers", snap.ConnectedPeers,
		"knownPeers", snap.KnownPeers,
		"bannedPeers", snap.BannedPeers,
		"goroutines", snap.Goroutines,
		"heapAllocMB", snap.HeapAllocMB,
	)
	for _, p := range snap.Protocols {
		logger.Info("协议槽位快照",
			"protocol", p.Protocol,
			"numIn", p.NumIn,
			"numOut", p.NumOut,
			"states", p.States,
			"accepted", p.Accepted,
			"rejected", p.Rejected,
		)
	}
}
