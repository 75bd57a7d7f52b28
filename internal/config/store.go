// Package config provides the gateway's runtime keystore.
//
// Unlike the bootstrap configuration (internal/infra/config), which binds the
// environment to a struct once at startup, this store is a process-wide
// mutable mapping from opaque string key to string value. The admin service
// mutates it at runtime (config.set, ip.add, ...), readers never lock each
// other out, and concurrent writers follow last-writer-wins semantics on a
// given key.
//
// Lookup is total: a missing key yields its declared default, or the empty
// string for keys without one. Nothing in this package panics on access.
package config

import (
	"strconv"
	"strings"
	"sync"
)

// Known keys. Every key the gateway reads is declared here.
const (
	// KeyJWTSecret is the shared HMAC key. Absence disables auth entirely
	// and the service reports itself unconfigured.
	KeyJWTSecret = "JWT_SECRET"

	// KeyLogEnabled gates the audit sink.
	KeyLogEnabled = "LOG_ENABLED"

	// KeyLogSinkID is the opaque reference to the audit backing store.
	KeyLogSinkID = "LOG_SINK_ID"

	// KeyLogMaxRows is the rolling window upper bound (excluding header).
	KeyLogMaxRows = "LOG_MAX_ROWS"

	// KeyIPAllowlist is a comma-separated list of exact IPv4s and/or CIDR blocks.
	KeyIPAllowlist = "IP_ALLOWLIST"

	// KeyIPCheckEnabled gates the external reputation check.
	KeyIPCheckEnabled = "IP_CHECK_ENABLED"

	// KeyIPCheckAPIKey is the credential for the reputation provider.
	KeyIPCheckAPIKey = "IP_CHECK_API_KEY"

	// KeyIPCheckThreshold is the confidence score at or above which an IP is denied.
	KeyIPCheckThreshold = "IP_CHECK_THRESHOLD"

	// KeySecurityBlockedSenders is a comma-separated sender block list,
	// matched case-insensitively as substrings.
	KeySecurityBlockedSenders = "SECURITY_BLOCKED_SENDERS"

	// KeySecurityContentRegex matches credential/OTP language in subject and
	// the first 500 characters of body, case-insensitively.
	KeySecurityContentRegex = "SECURITY_CONTENT_REGEX"
)

// DefaultBlockedSenders ships account-recovery and no-reply origins that the
// mail interceptor withholds regardless of caller intent.
const DefaultBlockedSenders = "no-reply@accounts.google.com," +
	"noreply@google.com," +
	"account-security-noreply@accountprotection.microsoft.com," +
	"no-reply@appleid.apple.com," +
	"password@github.com," +
	"noreply@github.com"

// DefaultContentRegex is an opinionated default; the match semantics
// (case-insensitive, subject plus first 500 body characters) are the
// contract, the pattern itself is configuration.
const DefaultContentRegex = `(verification|security|recovery)\s+code|` +
	`one[- ]?time\s+(password|passcode|code)|\bOTP\b|` +
	`password\s+reset|reset\s+your\s+password|` +
	`2fa|two[- ]?factor|login\s+code|sign[- ]?in\s+code`

// defaults declares the typed default for each known key. Keys absent from
// this map (JWT_SECRET, LOG_SINK_ID, IP_CHECK_API_KEY, IP_ALLOWLIST) default
// to the empty string.
var defaults = map[string]string{
	KeyLogEnabled:             "true",
	KeyLogMaxRows:             "5000",
	KeyIPCheckEnabled:         "false",
	KeyIPCheckThreshold:       "50",
	KeySecurityBlockedSenders: DefaultBlockedSenders,
	KeySecurityContentRegex:   DefaultContentRegex,
}

// sensitiveKeys are masked whenever the store is echoed back.
var sensitiveKeys = map[string]struct{}{
	KeyJWTSecret:     {},
	KeyIPCheckAPIKey: {},
}

// Mask is the fixed prefix replacing all but the last four characters of a
// sensitive value.
const Mask = "****"

// Store is a concurrent string keystore with declared defaults.
// The zero value is not usable; construct with New.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates a Store seeded with the provided values. Empty seed values are
// ignored so that unset environment variables do not shadow defaults.
func New(seed map[string]string) *Store {
	s := &Store{values: make(map[string]string, len(seed))}
	for k, v := range seed {
		if v != "" {
			s.values[k] = v
		}
	}
	return s
}

// Get returns the value for key, falling back to the key's declared default.
// Missing keys without a default yield "".
func (s *Store) Get(key string) string {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if ok {
		return v
	}
	return defaults[key]
}

// Lookup returns the explicitly set value and whether one exists.
// Defaults are not consulted.
func (s *Store) Lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetBool parses the value for key as a boolean.
// Unparseable values yield false.
func (s *Store) GetBool(key string) bool {
	b, err := strconv.ParseBool(s.Get(key))
	return err == nil && b
}

// GetInt parses the value for key as an integer, falling back to the key's
// declared default, then to fallback when neither parses.
func (s *Store) GetInt(key string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s.Get(key))); err == nil {
		return n
	}
	if n, err := strconv.Atoi(defaults[key]); err == nil {
		return n
	}
	return fallback
}

// GetList splits the value for key on commas, trimming whitespace and
// dropping empty elements.
func (s *Store) GetList(key string) []string {
	raw := s.Get(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Set stores value under key. Concurrent writers race with last-writer-wins
// semantics on the key.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Delete removes an explicitly set value, restoring the declared default.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

// Snapshot returns every key that has a declared default or an explicit
// value, with its effective value, sensitive values masked. Known keys with
// neither (for example an unset JWT_SECRET) are absent from the result.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(defaults)+len(s.values))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range s.values {
		out[k] = v
	}
	for k := range out {
		if _, sensitive := sensitiveKeys[k]; sensitive {
			out[k] = MaskValue(out[k])
		}
	}
	return out
}

// IsSensitive reports whether key must be masked when echoed back.
func IsSensitive(key string) bool {
	_, ok := sensitiveKeys[key]
	return ok
}

// MaskValue keeps the last four characters of v and replaces the rest with
// the fixed mask. Values of four characters or fewer are fully masked.
func MaskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return Mask
	}
	return Mask + v[len(v)-4:]
}
