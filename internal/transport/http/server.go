package http

import (
	"fmt"
	"net/http"

	infraconfig "github.com/primevalsoup/workspace-gateway/internal/infra/config"
)

// NewServer builds the public HTTP server. The write timeout must outlive
// the dispatch watchdog so the TIMEOUT envelope can still reach the client.
func NewServer(cfg *infraconfig.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

// NewInternalServer builds the loopback server for metrics and probes.
func NewInternalServer(cfg *infraconfig.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.InternalBindAddress, cfg.InternalPort),
		Handler: handler,
	}
}
