package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
	"github.com/primevalsoup/workspace-gateway/internal/observability"
)

// Handler is the upstream adapter contract seen by the dispatcher: a pure
// function from (action, params) to a data payload or an error.
//
// Handlers must not write to the audit sink, must not read secrets other
// than via the config accessor, and must not raise AUTH_FAILED or
// IP_BLOCKED; those codes belong to the upstream pipeline layers.
type Handler interface {
	// Service returns the lowercased service name the handler registers under.
	Service() string
	// Handle executes one action. Returned errors should be taxonomy
	// errors; anything else is wrapped as SERVICE_ERROR (or QUOTA_EXCEEDED
	// when the cause mentions a quota).
	Handle(ctx context.Context, action string, params Params) (any, error)
}

// Registry maps service names to handlers. It is populated during startup
// and read-only afterwards: Freeze is called once wiring completes, and any
// later Register panics.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under its lowercased service name.
// Panics on duplicate registration or registration after Freeze; both are
// wiring bugs.
func (r *Registry) Register(h Handler) {
	name := strings.ToLower(h.Service())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic(fmt.Sprintf("gateway: Register(%q) after Freeze", name))
	}
	if _, dup := r.handlers[name]; dup {
		panic(fmt.Sprintf("gateway: duplicate handler for service %q", name))
	}
	r.handlers[name] = h
}

// Freeze marks the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Get returns the handler for a service name.
func (r *Registry) Get(service string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[strings.ToLower(service)]
	return h, ok
}

// Services returns the registered service names, sorted.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatcher resolves and invokes handlers, converting every outcome into
// the closed error taxonomy and recording per-request telemetry.
type Dispatcher struct {
	registry *Registry
	metrics  *observability.GatewayMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. tracer may be nil, which disables spans.
func NewDispatcher(registry *Registry, metrics *observability.GatewayMetrics, tracer trace.Tracer, logger *slog.Logger) *Dispatcher {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("gateway")
	}
	return &Dispatcher{registry: registry, metrics: metrics, tracer: tracer, logger: logger}
}

// Registry exposes the dispatcher's registry for service discovery.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch routes one command to its handler. It never panics: a handler
// panic whose message mentions a quota maps to QUOTA_EXCEEDED, any other
// panic to SERVICE_ERROR, both retryable.
func (d *Dispatcher) Dispatch(ctx context.Context, service, action string, params Params) (data any, err error) {
	if strings.TrimSpace(service) == "" {
		return nil, domainerrors.New(domainerrors.CodeInvalidRequest, "Missing service")
	}
	if strings.TrimSpace(action) == "" {
		return nil, domainerrors.New(domainerrors.CodeInvalidRequest, "Missing action")
	}

	handler, ok := d.registry.Get(service)
	if !ok {
		return nil, domainerrors.Newf(domainerrors.CodeNotFound, "Unknown service %q", service)
	}

	op := fmt.Sprintf("%s.%s", strings.ToLower(service), action)

	ctx, span := d.tracer.Start(ctx, "gateway.dispatch",
		trace.WithAttributes(
			attribute.String("gateway.service", strings.ToLower(service)),
			attribute.String("gateway.action", action),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			cause := fmt.Errorf("%v", rec)
			if strings.Contains(strings.ToLower(cause.Error()), "quota") {
				err = domainerrors.Wrap(domainerrors.CodeQuotaExceeded,
					fmt.Sprintf("%s failed: %v", op, rec), cause)
			} else {
				err = domainerrors.Wrap(domainerrors.CodeServiceError,
					fmt.Sprintf("%s failed: %v", op, rec), cause)
			}
			d.logger.ErrorContext(ctx, "handler panic recovered",
				"op", op, "panic", fmt.Sprint(rec))
			data = nil
		}

		code := "OK"
		if err != nil {
			code = domainerrors.CodeOf(err)
		}
		d.metrics.IncRequest(strings.ToLower(service), action, code)
		d.metrics.ObserveDuration(strings.ToLower(service), action, time.Since(start).Seconds())
	}()

	data, err = handler.Handle(ctx, action, params)
	if err != nil {
		err = domainerrors.FromError(op, err)
		return nil, err
	}
	return data, nil
}
