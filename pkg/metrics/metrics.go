package metrics

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Collector counts requests, latency and status codes per route.
// Thread-safe via atomics and mutex.
type Collector struct {
	totalRequests  int64
	activeRequests int64
	totalErrors    int64
	totalLatencyMs int64
	maxLatencyMs   int64
	startTime      time.Time

	mu                sync.Mutex
	endpointCounts    map[string]int64
	endpointLatencies map[string]int64 // total ms per endpoint
	statusCodes       map[int]int64
}

func New() *Collector {
	return &Collector{
		startTime:         time.Now(),
		endpointCounts:    make(map[string]int64),
		endpointLatencies: make(map[string]int64),
		statusCodes:       make(map[int]int64),
	}
}

// Middleware records every request that passes through it.
func (m *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&m.activeRequests, 1)
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			latencyMs := time.Since(start).Milliseconds()
			atomic.AddInt64(&m.activeRequests, -1)
			m.observe(endpointOf(c, err), c.Response().Status, latencyMs)

			return nil
		}
	}
}

// unmatchedEndpoint collects every request the router had no route for.
// Path and method are client controlled there and would grow the maps
// without bound.
const unmatchedEndpoint = "unmatched"

func endpointOf(c echo.Context, err error) string {
	if c.Path() == "" || errors.Is(err, echo.ErrNotFound) || errors.Is(err, echo.ErrMethodNotAllowed) {
		return unmatchedEndpoint
	}
	return fmt.Sprintf("%s %s", c.Request().Method, c.Path())
}

func (m *Collector) observe(endpoint string, status int, latencyMs int64) {
	atomic.AddInt64(&m.totalRequests, 1)
	atomic.AddInt64(&m.totalLatencyMs, latencyMs)

	// lock-free max
	for {
		current := atomic.LoadInt64(&m.maxLatencyMs)
		if latencyMs <= current {
			break
		}
		if atomic.CompareAndSwapInt64(&m.maxLatencyMs, current, latencyMs) {
			break
		}
	}
	if status >= 400 {
		atomic.AddInt64(&m.totalErrors, 1)
	}

	m.mu.Lock()
	m.endpointCounts[endpoint]++
	m.endpointLatencies[endpoint] += latencyMs
	m.statusCodes[status]++
	m.mu.Unlock()
}

// Snapshot is a point-in-time view of the collected data
type Snapshot struct {
	TotalRequests  int64            `json:"total_requests"`
	ActiveRequests int64            `json:"active_requests"`
	TotalErrors    int64            `json:"total_errors"`
	ErrorRate      float64          `json:"error_rate_pct"`
	AvgLatencyMs   float64          `json:"avg_latency_ms"`
	MaxLatencyMs   int64            `json:"max_latency_ms"`
	UptimeSeconds  float64          `json:"uptime_seconds"`
	EndpointCounts map[string]int64 `json:"endpoint_counts"`
	EndpointAvgMs  map[string]int64 `json:"endpoint_avg_latency_ms"`
	StatusCodes    map[int]int64    `json:"status_codes"`
}

func (m *Collector) Snapshot() Snapshot {
	total := atomic.LoadInt64(&m.totalRequests)
	errs := atomic.LoadInt64(&m.totalErrors)

	s := Snapshot{
		TotalRequests:  total,
		ActiveRequests: atomic.LoadInt64(&m.activeRequests),
		TotalErrors:    errs,
		MaxLatencyMs:   atomic.LoadInt64(&m.maxLatencyMs),
		UptimeSeconds:  time.Since(m.startTime).Seconds(),
	}
	if total > 0 {
		s.AvgLatencyMs = float64(atomic.LoadInt64(&m.totalLatencyMs)) / float64(total)
		s.ErrorRate = float64(errs) / float64(total) * 100
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s.EndpointCounts = make(map[string]int64, len(m.endpointCounts))
	s.EndpointAvgMs = make(map[string]int64, len(m.endpointCounts))
	for k, v := range m.endpointCounts {
		s.EndpointCounts[k] = v
		if v > 0 {
			s.EndpointAvgMs[k] = m.endpointLatencies[k] / v
		}
	}
	s.StatusCodes = make(map[int]int64, len(m.statusCodes))
	for k, v := range m.statusCodes {
		s.StatusCodes[k] = v
	}
	return s
}
