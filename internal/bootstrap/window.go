// Package bootstrap implements the init-window protocol: a time-limited
// unauthenticated channel for one-time secret injection immediately after
// deploy, then permanently closed.
package bootstrap

import (
	"time"

	"github.com/primevalsoup/workspace-gateway/internal/config"
	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
)

// MinSecretLength is the minimum accepted shared-secret length.
const MinSecretLength = 32

// DefaultWindow is how long after process start the channel stays open.
const DefaultWindow = 5 * time.Minute

// Window accepts one unauthenticated setSecret while the gateway is
// unconfigured and the window has not elapsed.
//
// The window is anchored to the instant the Window was constructed at
// process start. Go's time.Time carries a monotonic clock reading and
// time.Since uses it, so a backwards wall-clock adjustment cannot reopen an
// elapsed window.
type Window struct {
	cfg       *config.Store
	startedAt time.Time
	ttl       time.Duration

	// elapsed is swappable for tests; defaults to monotonic time.Since.
	elapsed func() time.Duration
}

// NewWindow creates a Window opening now and closing after ttl.
// A non-positive ttl gets the default.
func NewWindow(cfg *config.Store, ttl time.Duration) *Window {
	if ttl <= 0 {
		ttl = DefaultWindow
	}
	w := &Window{cfg: cfg, startedAt: time.Now(), ttl: ttl}
	w.elapsed = func() time.Duration { return time.Since(w.startedAt) }
	return w
}

// Configured reports whether a shared secret is already present.
func (w *Window) Configured() bool {
	return w.cfg.Get(config.KeyJWTSecret) != ""
}

// SetSecret applies one bootstrap secret. Conditions, in order:
//
//  1. the gateway must not be configured yet (INIT_REJECTED);
//  2. the window must not have elapsed (INIT_EXPIRED);
//  3. the secret must be at least MinSecretLength characters (INIT_REJECTED).
//
// The configured-check comes first so post-configuration attempts are
// rejected as such even after the window closes.
func (w *Window) SetSecret(secret string) error {
	if w.Configured() {
		return domainerrors.New(domainerrors.CodeInitRejected,
			"Gateway is already configured")
	}
	if w.elapsed() > w.ttl {
		return domainerrors.New(domainerrors.CodeInitExpired,
			"Initialization window has closed")
	}
	if len(secret) < MinSecretLength {
		return domainerrors.Newf(domainerrors.CodeInitRejected,
			"Secret must be at least %d characters", MinSecretLength)
	}
	w.cfg.Set(config.KeyJWTSecret, secret)
	return nil
}
