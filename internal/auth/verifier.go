// Package auth verifies the gateway's symmetric-signed bearer tokens.
//
// Tokens are HS256 JWTs signed with the process-wide shared secret. The
// verifier enforces the algorithm, validates the signature in constant time
// (via the jwt library's HMAC comparison), applies a fixed ±30 s clock skew
// to the temporal claims, and rejects replays of any token carrying a jti.
//
// Every negative outcome is AUTH_FAILED with a descriptive reason; Verify
// never panics.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/primevalsoup/workspace-gateway/internal/config"
	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
)

// ClockSkew is the only permitted slack on exp and iat, in seconds.
const ClockSkew = 30

// Claims is the verified claim set of an accepted token.
type Claims struct {
	// IssuedAt and ExpiresAt are seconds since epoch; zero when absent.
	IssuedAt  int64
	ExpiresAt int64
	// ID is the jti claim; empty when absent (no replay protection for
	// that token).
	ID string
	// Raw holds the full decoded claim set.
	Raw map[string]any
}

// Verifier checks bearer tokens against the shared secret in the runtime
// keystore. The secret is read per verification so a freshly bootstrapped
// secret takes effect without restart.
type Verifier struct {
	cfg     *config.Store
	replays *ReplayStore
	parser  *jwt.Parser
	now     func() time.Time
}

// NewVerifier creates a Verifier backed by the given keystore and replay store.
func NewVerifier(cfg *config.Store, replays *ReplayStore) *Verifier {
	return &Verifier{
		cfg:     cfg,
		replays: replays,
		// Claims validation stays out of the parser: the gateway's skew
		// arithmetic is exact-boundary (exp+30 < now rejects) and the
		// library's leeway comparison is exclusive at the boundary.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		now: time.Now,
	}
}

// Configured reports whether a shared secret is present.
func (v *Verifier) Configured() bool {
	return v.cfg.Get(config.KeyJWTSecret) != ""
}

// Verify checks token and returns its claims, or an AUTH_FAILED error with a
// human-readable reason. No failure is retryable.
func (v *Verifier) Verify(token string) (*Claims, error) {
	return v.verifyAt(token, v.now())
}

func (v *Verifier) verifyAt(token string, now time.Time) (*Claims, error) {
	secret := v.cfg.Get(config.KeyJWTSecret)
	if secret == "" {
		return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Gateway is not configured")
	}
	if token == "" {
		return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Missing token")
	}
	if strings.Count(token, ".") != 2 {
		return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Token must have three segments")
	}

	parsed, err := v.parser.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, authError(err)
	}

	// The jwt identifier is the only acceptable typ when one is present;
	// the alg restriction alone does not cover it.
	if typ, ok := parsed.Header["typ"]; ok {
		if s, _ := typ.(string); !strings.EqualFold(s, "JWT") {
			return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Unexpected token type")
		}
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Malformed claims")
	}

	claims := &Claims{Raw: map[string]any(mc)}

	nowSec := now.Unix()
	if exp, err := mc.GetExpirationTime(); err != nil {
		return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Malformed exp claim")
	} else if exp != nil {
		claims.ExpiresAt = exp.Unix()
		if claims.ExpiresAt+ClockSkew < nowSec {
			return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Token expired")
		}
	}
	if iat, err := mc.GetIssuedAt(); err != nil {
		return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Malformed iat claim")
	} else if iat != nil {
		claims.IssuedAt = iat.Unix()
		if claims.IssuedAt-ClockSkew > nowSec {
			return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Token issued in the future")
		}
	}

	if jti, ok := mc["jti"]; ok {
		id, _ := jti.(string)
		if id == "" {
			return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Malformed jti claim")
		}
		claims.ID = id
		if !v.replays.CheckAndInsert(id, remainingLifetime(claims.ExpiresAt, nowSec)) {
			return nil, domainerrors.New(domainerrors.CodeAuthFailed, "Token replay detected")
		}
	}

	return claims, nil
}

// remainingLifetime bounds the replay TTL by the token's own remaining
// validity, capped at MaxTokenLifetime. Tokens without exp get the full cap.
func remainingLifetime(expSec, nowSec int64) time.Duration {
	if expSec == 0 {
		return MaxTokenLifetime
	}
	// Skew applies to acceptance too, so the record must outlive it.
	remaining := time.Duration(expSec+ClockSkew-nowSec) * time.Second
	if remaining <= 0 || remaining > MaxTokenLifetime {
		return MaxTokenLifetime
	}
	return remaining
}

// authError maps jwt parse failures to AUTH_FAILED reasons.
// The library covers the signature comparison (constant-time hmac.Equal)
// and the algorithm restriction; both surface as ErrTokenSignatureInvalid.
func authError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domainerrors.Wrap(domainerrors.CodeAuthFailed, "Token signature or algorithm rejected", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domainerrors.Wrap(domainerrors.CodeAuthFailed, "Malformed token", err)
	default:
		return domainerrors.Wrap(domainerrors.CodeAuthFailed, "Token rejected", err)
	}
}
