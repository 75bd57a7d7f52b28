package mail

import (
	"context"

	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
	"github.com/primevalsoup/workspace-gateway/internal/gateway"
)

// Listing defaults and bounds.
const (
	defaultListLimit = 25
	maxListLimit     = 100
)

// Handler serves the mail service. The wired client is expected to be the
// intercepted one; the handler itself stays a pure (action, params) → data
// function.
type Handler struct {
	client Client
}

// NewHandler creates the mail handler over a (guarded) client.
func NewHandler(client Client) *Handler {
	return &Handler{client: client}
}

// Service implements gateway.Handler.
func (h *Handler) Service() string { return "mail" }

type listParams struct {
	MaxResults int `json:"maxResults"`
}

type searchParams struct {
	Query      string `json:"query" validate:"required"`
	MaxResults int    `json:"maxResults"`
}

type idParams struct {
	ID string `json:"id" validate:"required"`
}

type labelParams struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label" validate:"required"`
}

// Handle implements gateway.Handler.
func (h *Handler) Handle(ctx context.Context, action string, params gateway.Params) (any, error) {
	ctx = withOriginAction(ctx, action)

	switch action {
	case "list":
		var p listParams
		if err := gateway.DecodeParams(params, &p); err != nil {
			return nil, err
		}
		return h.list(ctx, "", p.MaxResults)

	case "search":
		var p searchParams
		if err := gateway.DecodeParams(params, &p); err != nil {
			return nil, err
		}
		return h.list(ctx, p.Query, p.MaxResults)

	case "get":
		var p idParams
		if err := gateway.DecodeParams(params, &p); err != nil {
			return nil, err
		}
		return h.client.Get(ctx, p.ID)

	case "getThread":
		var p idParams
		if err := gateway.DecodeParams(params, &p); err != nil {
			return nil, err
		}
		return h.client.GetThread(ctx, p.ID)

	case "label":
		var p labelParams
		if err := gateway.DecodeParams(params, &p); err != nil {
			return nil, err
		}
		return h.mutate(ctx, p.ID, MutationLabel, p.Label)

	case "star":
		return h.mutateByID(ctx, params, MutationStar)
	case "archive":
		return h.mutateByID(ctx, params, MutationArchive)
	case "trash":
		return h.mutateByID(ctx, params, MutationTrash)
	case "delete":
		return h.mutateByID(ctx, params, MutationDelete)

	default:
		return nil, domainerrors.Newf(domainerrors.CodeNotFound,
			"Unknown mail action %q", action)
	}
}

// ListResult is the post-filter listing payload; count reflects the
// filtered size, not the upstream one.
type ListResult struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count"`
}

func (h *Handler) list(ctx context.Context, query string, max int) (any, error) {
	limit := gateway.ClampLimit(max, defaultListLimit, maxListLimit)
	items, err := h.client.List(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Message{}
	}
	return ListResult{Messages: items, Count: len(items)}, nil
}

func (h *Handler) mutateByID(ctx context.Context, params gateway.Params, m Mutation) (any, error) {
	var p idParams
	if err := gateway.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return h.mutate(ctx, p.ID, m, "")
}

func (h *Handler) mutate(ctx context.Context, id string, m Mutation, label string) (any, error) {
	if err := h.client.Mutate(ctx, id, m, label); err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "applied": string(m)}, nil
}
