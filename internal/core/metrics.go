// AngelaMos | 2026
// metrics.go

package core

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AuthAttemptsTotal   *prometheus.CounterVec
	CacheLookupsTotal   *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Authentication operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Role permission cache lookups by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthAttemptsTotal,
		m.CacheLookupsTotal,
	)

	return m
}

// RegisterPools exports Postgres and Redis connection pool statistics.
func (m *Metrics) RegisterPools(db *sql.DB, rdb *redis.Client) error {
	if err := m.registry.Register(collectors.NewDBStatsCollector(db, "postgres")); err != nil {
		return err
	}

	redisGauges := []struct {
		name string
		help string
		read func(*redis.PoolStats) uint32
	}{
		{"redis_pool_hits_total", "Free connection found in the pool", func(s *redis.PoolStats) uint32 { return s.Hits }},
		{"redis_pool_misses_total", "Free connection not found in the pool", func(s *redis.PoolStats) uint32 { return s.Misses }},
		{"redis_pool_timeouts_total", "Pool wait timeouts", func(s *redis.PoolStats) uint32 { return s.Timeouts }},
		{"redis_pool_total_conns", "Connections in the pool", func(s *redis.PoolStats) uint32 { return s.TotalConns }},
		{"redis_pool_idle_conns", "Idle connections in the pool", func(s *redis.PoolStats) uint32 { return s.IdleConns }},
		{"redis_pool_stale_conns", "Stale connections removed from the pool", func(s *redis.PoolStats) uint32 { return s.StaleConns }},
	}

	for _, g := range redisGauges {
		read := g.read
		gauge := prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(read(rdb.PoolStats())) },
		)
		if err := m.registry.Register(gauge); err != nil {
			return err
		}
	}

	return nil
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) AuthOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}
