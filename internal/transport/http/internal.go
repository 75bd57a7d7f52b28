package http

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/heptiolabs/healthcheck"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxGoroutines trips the liveness probe when the process leaks goroutines.
const maxGoroutines = 500

// NewInternalRouter builds the loopback-only router serving Prometheus
// metrics and the liveness/readiness probes. pool may be nil when the
// gateway runs on the in-memory audit sink.
func NewInternalRouter(registry *prometheus.Registry, pool *pgxpool.Pool) chi.Router {
	health := healthcheck.NewMetricsHandler(registry, "gateway")
	health.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(maxGoroutines))
	if pool != nil {
		health.AddReadinessCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("database ping: %w", err)
			}
			return nil
		})
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/live", health.LiveEndpoint)
	r.Get("/ready", health.ReadyEndpoint)
	return r
}
