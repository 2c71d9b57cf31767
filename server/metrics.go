package server

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount      int64 // 统计的 Tick 次数
	TotalTickNs    int64 // Tick 累计耗时（纳秒）
	EnemiesSpawned int64 // 生成的敌人数
	EnemiesKilled  int64 // 被击杀的敌人数
	MessagesIn     int64 // 收到的入站事件数
	Broadcasts     int64 // 发出的广播轮数
}

func (m *RoomMetrics) IncSpawned()   { atomic.AddInt64(&m.EnemiesSpawned, 1) }
func (m *RoomMetrics) IncKilled()    { atomic.AddInt64(&m.EnemiesKilled, 1) }
func (m *RoomMetrics) IncMessage()   { atomic.AddInt64(&m.MessagesIn, 1) }
func (m *RoomMetrics) IncBroadcast() { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":      tick,
		"enemies_spawned": atomic.LoadInt64(&m.EnemiesSpawned),
		"enemies_killed":  atomic.LoadInt64(&m.EnemiesKilled),
		"messages_in":     atomic.LoadInt64(&m.MessagesIn),
		"broadcasts":      atomic.LoadInt64(&m.Broadcasts),
		"avg_tick_ms":     avgMs,
	}
}

// 进程级指标，经 /metrics 暴露给 Prometheus 抓取
var (
	roomsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wavearena",
		Name:      "rooms",
		Help:      "Number of live rooms.",
	})
	sessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wavearena",
		Name:      "sessions",
		Help:      "Number of connected sessions.",
	})
	enemiesSpawnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wavearena",
		Name:      "enemies_spawned_total",
		Help:      "Enemies spawned across all rooms.",
	})
	enemiesKilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wavearena",
		Name:      "enemies_killed_total",
		Help:      "Enemies killed across all rooms.",
	})
	sendsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wavearena",
		Name:      "sends_dropped_total",
		Help:      "Outbound messages dropped because a send queue was full.",
	})
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wavearena",
		Name:      "tick_duration_seconds",
		Help:      "Simulation tick duration.",
		Buckets:   prometheus.DefBuckets,
	})
)
