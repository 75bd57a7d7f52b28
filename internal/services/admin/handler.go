// Package admin exposes the gateway's administrative operations through the
// normal dispatch pipeline: configuration retrieval and mutation, audit-log
// status and clearing, allow-list management, and a health report.
//
// Security: admin commands are authenticated by the same JWT pipeline as
// every other service; there is no separate role model — the holder of the
// shared secret is the sole principal.
package admin

import (
	"context"
	"slices"
	"strings"

	"github.com/primevalsoup/workspace-gateway/internal/audit"
	"github.com/primevalsoup/workspace-gateway/internal/config"
	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
	"github.com/primevalsoup/workspace-gateway/internal/gateway"
	"github.com/primevalsoup/workspace-gateway/internal/policy"
	"github.com/primevalsoup/workspace-gateway/internal/version"
)

// Handler serves the admin service.
type Handler struct {
	cfg      *config.Store
	recorder *audit.Recorder
	registry *gateway.Registry
}

// NewHandler creates the admin handler.
func NewHandler(cfg *config.Store, recorder *audit.Recorder, registry *gateway.Registry) *Handler {
	return &Handler{cfg: cfg, recorder: recorder, registry: registry}
}

// Service implements gateway.Handler.
func (h *Handler) Service() string { return "admin" }

type configGetParams struct {
	Key string `json:"key"`
}

type configSetParams struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

type ipEntryParams struct {
	Entry string `json:"entry" validate:"required"`
}

type logTailParams struct {
	Limit int `json:"limit"`
}

// Handle implements gateway.Handler.
func (h *Handler) Handle(ctx context.Context, action string, params gateway.Params) (any, error) {
	switch action {
	case "health":
		return h.health(), nil
	case "config.get":
		return h.configGet(params)
	case "config.set":
		return h.configSet(params)
	case "log.status":
		return h.logStatus(ctx)
	case "log.clear":
		return h.logClear(ctx)
	case "log.tail":
		return h.logTail(ctx, params)
	case "ip.list":
		return h.ipList(), nil
	case "ip.add":
		return h.ipAdd(params)
	case "ip.remove":
		return h.ipRemove(params)
	default:
		return nil, domainerrors.Newf(domainerrors.CodeNotFound,
			"Unknown admin action %q", action)
	}
}

func (h *Handler) health() any {
	return map[string]any{
		"status":     "healthy",
		"version":    version.Version,
		"configured": h.cfg.Get(config.KeyJWTSecret) != "",
		"services":   h.registry.Services(),
	}
}

func (h *Handler) configGet(params gateway.Params) (any, error) {
	var p configGetParams
	if err := gateway.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Key == "" {
		return map[string]any{"config": h.cfg.Snapshot()}, nil
	}
	value := h.cfg.Get(p.Key)
	if config.IsSensitive(p.Key) {
		value = config.MaskValue(value)
	}
	return map[string]any{"key": p.Key, "value": value}, nil
}

func (h *Handler) configSet(params gateway.Params) (any, error) {
	var p configSetParams
	if err := gateway.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	h.cfg.Set(p.Key, p.Value)
	value := p.Value
	if config.IsSensitive(p.Key) {
		value = config.MaskValue(value)
	}
	return map[string]any{"key": p.Key, "value": value}, nil
}

func (h *Handler) logStatus(ctx context.Context) (any, error) {
	enabled, rows, maxRows, err := h.recorder.Status(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"enabled": enabled,
		"rows":    rows,
		"maxRows": maxRows,
		"sinkId":  h.cfg.Get(config.KeyLogSinkID),
	}, nil
}

func (h *Handler) logClear(ctx context.Context) (any, error) {
	if err := h.recorder.Clear(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"cleared": true}, nil
}

func (h *Handler) logTail(ctx context.Context, params gateway.Params) (any, error) {
	var p logTailParams
	if err := gateway.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	limit := gateway.ClampLimit(p.Limit, 50, 500)
	entries, err := h.recorder.Tail(ctx, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"entries": entries, "count": len(entries)}, nil
}

func (h *Handler) ipList() any {
	return map[string]any{"allowlist": h.cfg.GetList(config.KeyIPAllowlist)}
}

func (h *Handler) ipAdd(params gateway.Params) (any, error) {
	var p ipEntryParams
	if err := gateway.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	if _, err := policy.ParseAllowlist(p.Entry); err != nil {
		return nil, domainerrors.Newf(domainerrors.CodeInvalidRequest,
			"Invalid allowlist entry %q", p.Entry)
	}
	entries := h.cfg.GetList(config.KeyIPAllowlist)
	if !slices.Contains(entries, p.Entry) {
		entries = append(entries, p.Entry)
		h.cfg.Set(config.KeyIPAllowlist, strings.Join(entries, ","))
	}
	return map[string]any{"allowlist": entries}, nil
}

func (h *Handler) ipRemove(params gateway.Params) (any, error) {
	var p ipEntryParams
	if err := gateway.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	entries := h.cfg.GetList(config.KeyIPAllowlist)
	kept := slices.DeleteFunc(slices.Clone(entries), func(e string) bool {
		return e == p.Entry
	})
	h.cfg.Set(config.KeyIPAllowlist, strings.Join(kept, ","))
	return map[string]any{"allowlist": kept}, nil
}

