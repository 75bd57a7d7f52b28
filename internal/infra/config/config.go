// Package config provides environment-based bootstrap configuration loading.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all process-level configuration values for the gateway.
// Required fields cause startup failure if not provided.
// Optional fields have sensible defaults.
//
// The runtime keystore (JWT_SECRET, IP_ALLOWLIST, ...) is deliberately NOT
// part of this struct: those keys are mutable through the admin service and
// live in the runtime store, which seeds itself from the environment once at
// startup.
type Config struct {
	// Optional with defaults
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Env         string `envconfig:"ENV" default:"development"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"workspace-gateway"`

	// DatabaseURL selects the Postgres audit sink when set; when empty the
	// gateway falls back to the in-memory sink.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// OpenTelemetry
	OTELEnabled          bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELExporterEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELExporterInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`

	// HTTP request handling
	// MaxRequestSize is the maximum request body size in bytes. Default: 1MB.
	MaxRequestSize int64 `envconfig:"MAX_REQUEST_SIZE" default:"1048576"`

	// Rate Limiting
	// RateLimitRPS is the per-IP rate limit in requests per second. Default: 100.
	RateLimitRPS int `envconfig:"RATE_LIMIT_RPS" default:"100"`
	// TrustProxy enables trusting X-Forwarded-For/X-Real-IP headers. Default: false.
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`

	// Internal Server
	// InternalPort is the port for internal endpoints like /metrics. Default: 8081.
	InternalPort int `envconfig:"INTERNAL_PORT" default:"8081"`
	// InternalBindAddress is the bind address for the internal server.
	// Default: "127.0.0.1" (loopback only) for security isolation.
	InternalBindAddress string `envconfig:"INTERNAL_BIND_ADDRESS" default:"127.0.0.1"`

	// Server Timeouts
	// HTTPReadTimeout is the maximum duration for reading the entire request. Default: 15s.
	HTTPReadTimeout time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	// HTTPWriteTimeout bounds response writes. It must exceed the dispatch
	// watchdog so the TIMEOUT envelope can still be written. Default: 345s.
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"345s"`
	// HTTPIdleTimeout is the keep-alive idle bound. Default: 60s.
	HTTPIdleTimeout time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
	// ShutdownTimeout is the duration to wait for graceful shutdown. Default: 30s.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// Pipeline deadlines
	// DispatchWatchdog is the soft deadline for a single dispatch. It
	// precedes the 360s hard platform execution cap. Default: 330s.
	DispatchWatchdog time.Duration `envconfig:"DISPATCH_WATCHDOG" default:"330s"`
	// InitWindow is how long after process start the unauthenticated
	// _init.setSecret channel stays open while no secret is configured.
	InitWindow time.Duration `envconfig:"INIT_WINDOW" default:"5m"`

	// Reputation provider
	// ReputationURL is the IP reputation check endpoint.
	ReputationURL string `envconfig:"REPUTATION_URL" default:"https://api.abuseipdb.com/api/v2/check"`
	// ReputationTimeout bounds a single reputation lookup. Default: 10s.
	ReputationTimeout time.Duration `envconfig:"REPUTATION_TIMEOUT" default:"10s"`

	// Upstream adapters
	// MailUpstreamURL is the base URL of the mail adapter. Empty disables
	// the mail service registration.
	MailUpstreamURL string `envconfig:"MAIL_UPSTREAM_URL"`
	// UpstreamTimeout bounds a single upstream adapter call at the HTTP
	// client level; the dispatch watchdog is the outer bound.
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"300s"`
}

// Redacted returns a safe string representation of the Config for logging.
func (c *Config) Redacted() string {
	safe := *c
	if safe.DatabaseURL != "" {
		safe.DatabaseURL = "[REDACTED]"
	}
	return fmt.Sprintf("%+v", safe)
}

// Load reads configuration from environment variables.
// It returns an error if validation fails.
func Load() (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig tags cannot express.
func (c *Config) Validate() error {
	// Allow 0 for dynamic port allocation
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: must be between 0 and 65535")
	}
	if c.InternalPort < 0 || c.InternalPort > 65535 {
		return fmt.Errorf("invalid INTERNAL_PORT: must be between 0 and 65535")
	}
	// Only check collision if both are non-zero (if 0, OS assigns different ports)
	if c.InternalPort != 0 && c.InternalPort == c.Port {
		return fmt.Errorf("INTERNAL_PORT must differ from PORT")
	}
	if c.InternalBindAddress == "" {
		return fmt.Errorf("INTERNAL_BIND_ADDRESS cannot be empty")
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("invalid SERVICE_NAME: must not be empty")
	}
	if c.OTELEnabled && strings.TrimSpace(c.OTELExporterEndpoint) == "" {
		return fmt.Errorf("OTEL_ENABLED is true but OTEL_EXPORTER_OTLP_ENDPOINT is empty")
	}
	if c.DispatchWatchdog <= 0 {
		return fmt.Errorf("DISPATCH_WATCHDOG must be positive")
	}
	if c.HTTPWriteTimeout != 0 && c.HTTPWriteTimeout <= c.DispatchWatchdog {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT must exceed DISPATCH_WATCHDOG")
	}
	if c.InitWindow <= 0 {
		return fmt.Errorf("INIT_WINDOW must be positive")
	}
	if c.ReputationTimeout <= 0 || c.ReputationTimeout > 10*time.Second {
		return fmt.Errorf("REPUTATION_TIMEOUT must be in (0s, 10s]")
	}
	return nil
}
