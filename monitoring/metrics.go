package monitoring

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	listingsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resale_listings_total",
			Help: "Current number of listings per status",
		},
		[]string{"status"},
	)

	marketplaceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resale_operations_total",
			Help: "Total marketplace operations",
		},
		[]string{"operation", "result"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resale_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resale_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	activeRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resale_http_requests_in_flight",
			Help: "Current number of requests being served",
		},
	)

	redisUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resale_redis_up",
			Help: "Whether the last Redis ping succeeded",
		},
	)
)

// ListingCounter reports how many listings exist in each status.
type ListingCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type Monitor struct {
	listings ListingCounter
	redis    redis.Cmdable
	interval time.Duration
}

// NewMonitor collects gauges from the listing store and, when rdb is not
// nil, from Redis.
func NewMonitor(listings ListingCounter, rdb redis.Cmdable) *Monitor {
	return &Monitor{
		listings: listings,
		redis:    rdb,
		interval: 30 * time.Second,
	}
}

// Start collects until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.Collect(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Collect(ctx)
			}
		}
	}()
}

func (m *Monitor) Collect(ctx context.Context) {
	if m.listings != nil {
		counts, err := m.listings.CountByStatus(ctx)
		if err != nil {
			slog.Warn("Failed to count listings", "error", err)
		} else {
			for status, n := range counts {
				listingsTotal.WithLabelValues(status).Set(float64(n))
			}
		}
	}

	if m.redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := m.redis.Ping(pingCtx).Err(); err != nil {
			redisUp.Set(0)
		} else {
			redisUp.Set(1)
		}
	}
}

// TrackOperation counts a marketplace operation by outcome.
func TrackOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	marketplaceOperations.WithLabelValues(operation, result).Inc()
}

// HTTPMetrics records request counts and latency per matched route.
func HTTPMetrics(e *core.RequestEvent) error {
	start := time.Now()
	activeRequests.Inc()
	defer activeRequests.Dec()

	err := e.Next()

	route := e.Request.Pattern
	if route == "" {
		route = "unmatched"
	}

	httpRequests.WithLabelValues(e.Request.Method, route, strconv.Itoa(responseStatus(e, err))).Inc()
	httpDuration.WithLabelValues(e.Request.Method, route).Observe(time.Since(start).Seconds())

	return err
}

// responseStatus is the code that was or will be written. Errors returned
// down the chain are rendered after the middleware returns.
func responseStatus(e *core.RequestEvent, err error) int {
	if err != nil {
		var apiErr *router.ApiError
		if errors.As(err, &apiErr) {
			return apiErr.Status
		}
		return 500
	}
	if code := e.Status(); code != 0 {
		return code
	}
	return 200
}
