package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/primevalsoup/workspace-gateway/internal/observability"
)

// maxReputationTimeout is the upper bound on a single reputation lookup,
// enforced locally regardless of configuration.
const maxReputationTimeout = 10 * time.Second

// reputationResponse is the provider's wire shape. Any deviation from it is
// treated as a lookup failure.
type reputationResponse struct {
	Data struct {
		AbuseConfidenceScore *int `json:"abuseConfidenceScore"`
	} `json:"data"`
}

// ReputationChecker queries an external IP reputation provider. The check is
// advisory: every failure mode — network error, non-2xx status, malformed
// body, open circuit — fails open so a provider outage cannot take the
// gateway offline.
type ReputationChecker struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
	metrics  *observability.GatewayMetrics
}

// NewReputationChecker creates a checker for the given endpoint.
// timeout is clamped to (0, 10s].
func NewReputationChecker(endpoint string, timeout time.Duration, logger *slog.Logger, metrics *observability.GatewayMetrics) *ReputationChecker {
	if timeout <= 0 || timeout > maxReputationTimeout {
		timeout = maxReputationTimeout
	}
	return &ReputationChecker{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "reputation",
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		logger:  logger,
		metrics: metrics,
	}
}

// Score returns the provider's abuse confidence score for ip.
// ok is false whenever the lookup failed for any reason; callers must treat
// that as "no opinion" and pass the request.
func (c *ReputationChecker) Score(ctx context.Context, ip, apiKey string) (score int, ok bool) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.lookup(ctx, ip, apiKey)
	})
	if err != nil {
		c.metrics.IncReputationFailure()
		c.logger.WarnContext(ctx, "reputation lookup failed open", "error", err)
		return 0, false
	}
	return result.(int), true
}

func (c *ReputationChecker) lookup(ctx context.Context, ip, apiKey string) (int, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return 0, fmt.Errorf("bad endpoint: %w", err)
	}
	q := u.Query()
	q.Set("ipAddress", ip)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Key", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	var parsed reputationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("malformed provider response: %w", err)
	}
	if parsed.Data.AbuseConfidenceScore == nil {
		return 0, fmt.Errorf("provider response missing abuseConfidenceScore")
	}
	return *parsed.Data.AbuseConfidenceScore, nil
}
