// Package http provides the gateway's HTTP transport: the single public
// front-door endpoint running the full request pipeline, and the internal
// listener carrying metrics and probes.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/primevalsoup/workspace-gateway/internal/audit"
	"github.com/primevalsoup/workspace-gateway/internal/auth"
	"github.com/primevalsoup/workspace-gateway/internal/bootstrap"
	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
	"github.com/primevalsoup/workspace-gateway/internal/gateway"
	infraconfig "github.com/primevalsoup/workspace-gateway/internal/infra/config"
	"github.com/primevalsoup/workspace-gateway/internal/policy"
	"github.com/primevalsoup/workspace-gateway/internal/transport/http/middleware"
	"github.com/primevalsoup/workspace-gateway/internal/version"
)

// FrontDoor runs the request pipeline behind the single public endpoint:
// parse → (init short-circuit | verify → ip-check → dispatch) → audit →
// respond. Every POST produces exactly one audit entry for the request;
// mail-interceptor events during dispatch add their own BLOCKED entries.
//
// All pipeline outcomes are returned as HTTP 200 with the envelope carrying
// success or the taxonomy error; the envelope, not the status line, is the
// wire contract.
type FrontDoor struct {
	logger     *slog.Logger
	verifier   *auth.Verifier
	policy     *policy.Policy
	dispatcher *gateway.Dispatcher
	recorder   *audit.Recorder
	window     *bootstrap.Window

	watchdog   time.Duration
	maxBody    int64
	trustProxy bool
	now        func() time.Time
}

// NewFrontDoor wires the pipeline components.
func NewFrontDoor(
	cfg *infraconfig.Config,
	logger *slog.Logger,
	verifier *auth.Verifier,
	pol *policy.Policy,
	dispatcher *gateway.Dispatcher,
	recorder *audit.Recorder,
	window *bootstrap.Window,
) *FrontDoor {
	return &FrontDoor{
		logger:     logger,
		verifier:   verifier,
		policy:     pol,
		dispatcher: dispatcher,
		recorder:   recorder,
		window:     window,
		watchdog:   cfg.DispatchWatchdog,
		maxBody:    cfg.MaxRequestSize,
		trustProxy: cfg.TrustProxy,
		now:        time.Now,
	}
}

// healthData is the unauthenticated health envelope payload.
// It must never reveal secret-bearing configuration.
type healthData struct {
	Status     string `json:"status"`
	Timestamp  int64  `json:"timestamp"`
	Version    string `json:"version"`
	Configured bool   `json:"configured"`
}

// Health handles the idempotent GET probe.
func (f *FrontDoor) Health(w http.ResponseWriter, r *http.Request) {
	requestID := gateway.RequestIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, gateway.Success(requestID, healthData{
		Status:     "healthy",
		Timestamp:  f.now().Unix(),
		Version:    version.Version,
		Configured: f.verifier.Configured(),
	}))
}

// Handle runs the full pipeline for one POST command.
func (f *FrontDoor) Handle(w http.ResponseWriter, r *http.Request) {
	start := f.now()
	ctx := r.Context()
	requestID := gateway.RequestIDFromContext(ctx)

	var req gateway.Request
	body := http.MaxBytesReader(w, r.Body, f.maxBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		f.logger.DebugContext(ctx, "rejected unparseable request body", "error", err)
		ge := domainerrors.Wrap(domainerrors.CodeInvalidRequest, "Malformed request body", err)
		f.finish(ctx, w, start, requestID, middleware.RealIP(r, f.trustProxy), "", "", nil, ge)
		return
	}

	// The policy layer sees only the self-reported address; the transport
	// address is recorded for the audit trail when the envelope omits one.
	auditIP := req.ClientIP
	if auditIP == "" {
		auditIP = middleware.RealIP(r, f.trustProxy)
	}

	if req.Service == "_init" {
		err := f.handleInit(req)
		f.finish(ctx, w, start, requestID, auditIP, req.Service, req.Action,
			map[string]any{"configured": f.window.Configured()}, err)
		return
	}

	if _, err := f.verifier.Verify(req.JWT); err != nil {
		f.finish(ctx, w, start, requestID, auditIP, req.Service, req.Action, nil, err)
		return
	}

	if err := f.policy.Check(ctx, req.ClientIP); err != nil {
		f.finish(ctx, w, start, requestID, auditIP, req.Service, req.Action, nil, err)
		return
	}

	data, err := f.dispatch(gateway.WithRequestID(context.WithoutCancel(ctx), requestID), req)
	f.finish(ctx, w, start, requestID, auditIP, req.Service, req.Action, data, err)
}

// dispatch invokes the dispatcher under the soft-deadline watchdog. An
// in-flight handler beyond the deadline cannot be cancelled; the gateway
// still answers within its own deadline and lets the orphaned goroutine
// finish into the void.
func (f *FrontDoor) dispatch(ctx context.Context, req gateway.Request) (any, error) {
	type result struct {
		data any
		err  error
	}
	done := make(chan result, 1)

	go func() {
		data, err := f.dispatcher.Dispatch(ctx, req.Service, req.Action, req.Params)
		done <- result{data: data, err: err}
	}()

	watchdog := time.NewTimer(f.watchdog)
	defer watchdog.Stop()

	select {
	case res := <-done:
		return res.data, res.err
	case <-watchdog.C:
		return nil, domainerrors.Newf(domainerrors.CodeTimeout,
			"Request exceeded the %s deadline", f.watchdog)
	}
}

// handleInit serves the bootstrap pseudo-service. It bypasses auth and the
// IP check only; the caller still audits it.
func (f *FrontDoor) handleInit(req gateway.Request) error {
	if req.Action != "setSecret" {
		return domainerrors.Newf(domainerrors.CodeInvalidRequest,
			"Unknown init action %q", req.Action)
	}
	var p struct {
		Secret string `json:"secret" validate:"required"`
	}
	if err := gateway.DecodeParams(req.Params, &p); err != nil {
		return err
	}
	return f.window.SetSecret(p.Secret)
}

// finish writes the single audit entry for the request and the response
// envelope. It is the only exit path for Handle.
func (f *FrontDoor) finish(ctx context.Context, w http.ResponseWriter, start time.Time,
	requestID, clientIP, service, action string, data any, err error) {

	f.recorder.Record(ctx, audit.Entry{
		Timestamp:    start,
		RequestID:    requestID,
		ClientIP:     clientIP,
		Service:      service,
		Action:       action,
		Status:       statusFor(err),
		DurationMS:   f.now().Sub(start).Milliseconds(),
		ErrorMessage: errorMessage(err),
	})

	if err != nil {
		writeJSON(w, http.StatusOK, gateway.Failure(requestID, err))
		return
	}
	writeJSON(w, http.StatusOK, gateway.Success(requestID, data))
}

// statusFor maps a pipeline outcome onto the closed audit status set.
func statusFor(err error) audit.Status {
	if err == nil {
		return audit.StatusOK
	}
	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeAuthFailed:
		return audit.StatusAuthFailed
	case domainerrors.CodeIPBlocked:
		return audit.StatusIPBlocked
	case domainerrors.CodeTimeout:
		return audit.StatusTimeout
	case domainerrors.CodeForbidden:
		return audit.StatusBlocked
	default:
		return audit.StatusError
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Status is already written; nothing left to do but log.
		slog.Error("failed to encode response", "error", err)
	}
}
