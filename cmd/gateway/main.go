// Command gateway runs the workspace command gateway: an authenticated,
// policy-enforcing HTTP front door that dispatches JSON command envelopes to
// registered service handlers and audits every request.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/primevalsoup/workspace-gateway/internal/audit"
	"github.com/primevalsoup/workspace-gateway/internal/auth"
	"github.com/primevalsoup/workspace-gateway/internal/bootstrap"
	"github.com/primevalsoup/workspace-gateway/internal/config"
	"github.com/primevalsoup/workspace-gateway/internal/gateway"
	infraconfig "github.com/primevalsoup/workspace-gateway/internal/infra/config"
	"github.com/primevalsoup/workspace-gateway/internal/mailguard"
	"github.com/primevalsoup/workspace-gateway/internal/observability"
	"github.com/primevalsoup/workspace-gateway/internal/policy"
	"github.com/primevalsoup/workspace-gateway/internal/services/admin"
	"github.com/primevalsoup/workspace-gateway/internal/services/mail"
	"github.com/primevalsoup/workspace-gateway/internal/version"
	httptransport "github.com/primevalsoup/workspace-gateway/internal/transport/http"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
		fx.Provide(
			infraconfig.Load,
			observability.NewLogger,
			newMetrics,
			newTracerProvider,
			newTracer,
			config.FromEnv,
			newReplayStore,
			auth.NewVerifier,
			newReputation,
			policy.New,
			newPool,
			newSink,
			audit.NewRecorder,
			mailguard.New,
			newRegistry,
			newDispatcher,
			newWindow,
			httptransport.NewFrontDoor,
			newPublicRouter,
			newInternalRouter,
		),
		fx.Invoke(registerServices),
		fx.Invoke(runServers),
	)
	app.Run()
}

func newMetrics() (*prometheus.Registry, *observability.GatewayMetrics) {
	return observability.NewMetricsRegistry()
}

func newTracerProvider(lc fx.Lifecycle, cfg *infraconfig.Config) (*sdktrace.TracerProvider, error) {
	tp, err := observability.InitTracer(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}

func newTracer(tp *sdktrace.TracerProvider) trace.Tracer {
	return tp.Tracer("workspace-gateway")
}

func newReplayStore(lc fx.Lifecycle) *auth.ReplayStore {
	s := auth.NewReplayStore()
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			s.Close()
			return nil
		},
	})
	return s
}

func newReputation(cfg *infraconfig.Config, logger *slog.Logger, metrics *observability.GatewayMetrics) *policy.ReputationChecker {
	return policy.NewReputationChecker(cfg.ReputationURL, cfg.ReputationTimeout, logger, metrics)
}

// newPool connects to Postgres when DATABASE_URL is set, retrying briefly so
// a database racing the gateway at deploy does not fail startup.
// Returns a nil pool when no database is configured.
func newPool(lc fx.Lifecycle, cfg *infraconfig.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	backoff := retry.WithMaxRetries(4, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := audit.Migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})
	logger.Info("audit sink: postgres")
	return pool, nil
}

func newSink(pool *pgxpool.Pool, logger *slog.Logger) audit.Sink {
	if pool == nil {
		logger.Info("audit sink: in-memory")
		return audit.NewMemorySink()
	}
	return audit.NewPostgresSink(pool)
}

func newRegistry() *gateway.Registry {
	return gateway.NewRegistry()
}

func newDispatcher(registry *gateway.Registry, metrics *observability.GatewayMetrics, tracer trace.Tracer, logger *slog.Logger) *gateway.Dispatcher {
	return gateway.NewDispatcher(registry, metrics, tracer, logger)
}

func newWindow(cfg *infraconfig.Config, store *config.Store) *bootstrap.Window {
	return bootstrap.NewWindow(store, cfg.InitWindow)
}

// registerServices populates the handler registry and freezes it; the
// registry is read-only once the servers start.
func registerServices(
	cfg *infraconfig.Config,
	store *config.Store,
	registry *gateway.Registry,
	recorder *audit.Recorder,
	guard *mailguard.Guard,
	logger *slog.Logger,
) {
	registry.Register(admin.NewHandler(store, recorder, registry))

	if cfg.MailUpstreamURL != "" {
		upstream := mail.NewRESTClient(cfg.MailUpstreamURL, cfg.UpstreamTimeout)
		guarded := mail.NewInterceptedClient(upstream, guard, recorder)
		registry.Register(mail.NewHandler(guarded))
	} else {
		logger.Warn("mail service disabled: MAIL_UPSTREAM_URL is not set")
	}

	registry.Freeze()
}

func newPublicRouter(cfg *infraconfig.Config, logger *slog.Logger, metrics *observability.GatewayMetrics, front *httptransport.FrontDoor) PublicRouter {
	return PublicRouter{Handler: httptransport.NewRouter(cfg, logger, metrics, front)}
}

func newInternalRouter(registry *prometheus.Registry, pool *pgxpool.Pool) InternalRouter {
	return InternalRouter{Handler: httptransport.NewInternalRouter(registry, pool)}
}

// PublicRouter and InternalRouter disambiguate the two http.Handler values
// in the fx graph.
type PublicRouter struct{ http.Handler }
type InternalRouter struct{ http.Handler }

func runServers(
	lc fx.Lifecycle,
	cfg *infraconfig.Config,
	logger *slog.Logger,
	public PublicRouter,
	internal InternalRouter,
) {
	srv := httptransport.NewServer(cfg, public)
	internalSrv := httptransport.NewInternalServer(cfg, internal)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("gateway starting",
				"port", cfg.Port,
				"internalPort", cfg.InternalPort,
				"version", version.Version,
			)
			go serve(srv, logger, "public")
			go serve(internalSrv, logger, "internal")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
			defer cancel()
			if err := internalSrv.Shutdown(ctx); err != nil {
				logger.Warn("internal server shutdown", "error", err)
			}
			return srv.Shutdown(ctx)
		},
	})
}

func serve(srv *http.Server, logger *slog.Logger, name string) {
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "server", name, "error", err)
		os.Exit(1)
	}
}
