// Package mailguard classifies mail items as security-sensitive.
//
// A message is security-sensitive when its sender matches the blocked-sender
// list (case-insensitive substring), or when its subject or the first 500
// characters of its plain-text body match the configured content pattern
// (case-insensitive). A thread is sensitive when any of its messages is.
//
// Sensitive items must never be surfaced, modified, or destroyed through the
// gateway, even when the caller asks explicitly: the holder of the shared
// secret may be an automated agent, and account-recovery or credential-flow
// mail reachable to it would let the agent be used against the owning
// identity.
package mailguard

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/primevalsoup/workspace-gateway/internal/config"
)

// bodyPrefixLen bounds how much of the body participates in classification.
const bodyPrefixLen = 500

// Guard evaluates the security policy against the runtime configuration.
// The content pattern is recompiled only when its configured value changes;
// an invalid configured pattern falls back to the shipped default.
type Guard struct {
	cfg    *config.Store
	logger *slog.Logger

	mu       sync.Mutex
	pattern  string
	compiled *regexp.Regexp
}

// New creates a Guard over the runtime keystore.
func New(cfg *config.Store, logger *slog.Logger) *Guard {
	return &Guard{cfg: cfg, logger: logger}
}

// Sensitive classifies one message by its sender, subject, and plain-text body.
func (g *Guard) Sensitive(sender, subject, body string) bool {
	for _, blocked := range g.cfg.GetList(config.KeySecurityBlockedSenders) {
		if blocked != "" && strings.Contains(strings.ToLower(sender), strings.ToLower(blocked)) {
			return true
		}
	}

	re := g.contentRegexp()
	if re == nil {
		return false
	}
	if re.MatchString(subject) {
		return true
	}
	return re.MatchString(truncate(body, bodyPrefixLen))
}

// contentRegexp returns the compiled content pattern, recompiling on change.
func (g *Guard) contentRegexp() *regexp.Regexp {
	pattern := g.cfg.Get(config.KeySecurityContentRegex)

	g.mu.Lock()
	defer g.mu.Unlock()
	if pattern == g.pattern && g.compiled != nil {
		return g.compiled
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		g.logger.Warn("invalid content pattern; falling back to default",
			"error", err)
		re, err = regexp.Compile("(?i)" + config.DefaultContentRegex)
		if err != nil {
			return g.compiled
		}
	}
	g.pattern = pattern
	g.compiled = re
	return re
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
