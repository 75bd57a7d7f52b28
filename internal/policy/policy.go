package policy

import (
	"context"
	"log/slog"

	"github.com/primevalsoup/workspace-gateway/internal/config"
	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
)

// Policy applies the layered IP access checks to a reported client address.
// Configuration is read per check so runtime changes (ip.add, config.set)
// take effect immediately.
type Policy struct {
	cfg        *config.Store
	reputation *ReputationChecker
	logger     *slog.Logger
}

// New creates a Policy. reputation may be nil, which disables the external
// check regardless of configuration.
func New(cfg *config.Store, reputation *ReputationChecker, logger *slog.Logger) *Policy {
	return &Policy{cfg: cfg, reputation: reputation, logger: logger}
}

// Check applies the allow-list and the optional reputation check to the
// reported IP. It returns nil to pass, or a non-retryable IP_BLOCKED error.
//
// An absent reported address ("" or the literal "unknown") passes: the
// address is self-reported and enforcement is opportunistic.
func (p *Policy) Check(ctx context.Context, reportedIP string) error {
	if reportedIP == "" || reportedIP == "unknown" {
		return nil
	}

	if raw := p.cfg.Get(config.KeyIPAllowlist); raw != "" {
		list, err := ParseAllowlist(raw)
		if err != nil {
			p.logger.WarnContext(ctx, "allowlist contains malformed entries", "error", err)
		}
		if len(list) > 0 && !list.Contains(reportedIP) {
			return domainerrors.Newf(domainerrors.CodeIPBlocked,
				"IP %s is not on the allowlist", reportedIP)
		}
	}

	if p.reputation != nil && p.cfg.GetBool(config.KeyIPCheckEnabled) {
		apiKey := p.cfg.Get(config.KeyIPCheckAPIKey)
		if apiKey != "" {
			threshold := p.cfg.GetInt(config.KeyIPCheckThreshold, 50)
			if score, ok := p.reputation.Score(ctx, reportedIP, apiKey); ok && score >= threshold {
				return domainerrors.Newf(domainerrors.CodeIPBlocked,
					"IP %s rejected by reputation check (score %d)", reportedIP, score)
			}
		}
	}

	return nil
}
