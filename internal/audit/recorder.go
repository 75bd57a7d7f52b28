package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/primevalsoup/workspace-gateway/internal/config"
	"github.com/primevalsoup/workspace-gateway/internal/observability"
)

// DefaultLockTimeout bounds advisory-lock acquisition. A writer that cannot
// acquire the lock within it drops the entry: audit logging must never delay
// or fail a request.
const DefaultLockTimeout = 5 * time.Second

// appendAttempts bounds the best-effort retry of a failing sink append.
const appendAttempts = 3

// Recorder is the only component allowed to write to the audit sink. It
// serializes writers under a timed advisory lock, retries transient sink
// failures, enforces the rolling row bound, and swallows every failure after
// best effort.
type Recorder struct {
	cfg     *config.Store
	sink    Sink
	logger  *slog.Logger
	metrics *observability.GatewayMetrics

	// lock is a semaphore-style advisory lock so acquisition can time out.
	lock chan struct{}

	lockTimeout time.Duration
	now         func() time.Time
}

// NewRecorder creates a Recorder over the given sink.
func NewRecorder(cfg *config.Store, sink Sink, logger *slog.Logger, metrics *observability.GatewayMetrics) *Recorder {
	r := &Recorder{
		cfg:         cfg,
		sink:        sink,
		logger:      logger,
		metrics:     metrics,
		lock:        make(chan struct{}, 1),
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
	r.lock <- struct{}{}
	return r
}

// Record appends one entry. It never returns an error and never blocks
// longer than the lock timeout plus the bounded sink retries.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if !r.cfg.GetBool(config.KeyLogEnabled) {
		return
	}
	e = e.normalize(r.now)
	sinkID := r.cfg.Get(config.KeyLogSinkID)

	if !r.acquire() {
		r.metrics.IncAuditDropped()
		r.logger.WarnContext(ctx, "audit entry dropped: lock acquisition timed out",
			"requestId", e.RequestID)
		return
	}
	defer r.release()

	backoff := retry.WithMaxRetries(appendAttempts-1, retry.NewConstant(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := r.sink.Append(ctx, sinkID, e); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		r.metrics.IncAuditDropped()
		r.logger.WarnContext(ctx, "audit entry dropped: sink append failed",
			"requestId", e.RequestID, "error", err)
		return
	}

	r.trim(ctx, sinkID)
}

// trim enforces the rolling bound after a successful append. Failures are
// logged and swallowed; the next append retries the trim.
func (r *Recorder) trim(ctx context.Context, sinkID string) {
	max := r.cfg.GetInt(config.KeyLogMaxRows, 5000)
	if max <= 0 {
		return
	}
	count, err := r.sink.Count(ctx, sinkID)
	if err != nil {
		r.logger.WarnContext(ctx, "audit trim skipped: count failed", "error", err)
		return
	}
	if excess := count - max; excess > 0 {
		if err := r.sink.TrimOldest(ctx, sinkID, excess); err != nil {
			r.logger.WarnContext(ctx, "audit trim failed", "error", err)
		}
	}
}

// Status reports the log's enabled flag, current row count, and bound.
// Used by the admin service.
func (r *Recorder) Status(ctx context.Context) (enabled bool, rows, maxRows int, err error) {
	enabled = r.cfg.GetBool(config.KeyLogEnabled)
	maxRows = r.cfg.GetInt(config.KeyLogMaxRows, 5000)
	rows, err = r.sink.Count(ctx, r.cfg.Get(config.KeyLogSinkID))
	return enabled, rows, maxRows, err
}

// Clear removes all data rows under the advisory lock.
func (r *Recorder) Clear(ctx context.Context) error {
	if !r.acquire() {
		return context.DeadlineExceeded
	}
	defer r.release()
	return r.sink.Clear(ctx, r.cfg.Get(config.KeyLogSinkID))
}

// Tail returns up to n of the newest entries, oldest first.
func (r *Recorder) Tail(ctx context.Context, n int) ([]Entry, error) {
	return r.sink.Tail(ctx, r.cfg.Get(config.KeyLogSinkID), n)
}

func (r *Recorder) acquire() bool {
	timer := time.NewTimer(r.lockTimeout)
	defer timer.Stop()
	select {
	case <-r.lock:
		return true
	case <-timer.C:
		return false
	}
}

func (r *Recorder) release() {
	r.lock <- struct{}{}
}
