package mail

import (
	"context"

	"github.com/primevalsoup/workspace-gateway/internal/audit"
	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
	"github.com/primevalsoup/workspace-gateway/internal/gateway"
	"github.com/primevalsoup/workspace-gateway/internal/mailguard"
)

// interceptedClient enforces the security-sensitive content policy between
// the handler and the upstream adapter. It is pipeline infrastructure, not a
// handler, which is why it may write audit entries: every filtered or
// rejected item produces a BLOCKED row carrying the item identifier only.
type interceptedClient struct {
	upstream Client
	guard    *mailguard.Guard
	recorder *audit.Recorder
}

// NewInterceptedClient wraps an upstream adapter with the content filter.
func NewInterceptedClient(upstream Client, guard *mailguard.Guard, recorder *audit.Recorder) Client {
	return &interceptedClient{upstream: upstream, guard: guard, recorder: recorder}
}

// sensitiveMessage classifies one message.
func (c *interceptedClient) sensitiveMessage(m Message) bool {
	body := m.Body
	if body == "" {
		body = m.Snippet
	}
	return c.guard.Sensitive(m.From, m.Subject, body)
}

// sensitiveThread classifies a thread: any sensitive message taints it.
func (c *interceptedClient) sensitiveThread(t *Thread) bool {
	for _, m := range t.Messages {
		if c.sensitiveMessage(m) {
			return true
		}
	}
	return false
}

// record writes one BLOCKED audit row for an intercept event. The detail
// names the item identifier; no content of the item is recorded.
func (c *interceptedClient) record(ctx context.Context, originAction, itemID string) {
	c.recorder.Record(ctx, audit.Entry{
		RequestID:    gateway.RequestIDFromContext(ctx),
		Service:      "mail",
		Action:       "security_intercept:" + originAction,
		Status:       audit.StatusBlocked,
		ErrorMessage: "item " + itemID + " withheld",
	})
}

// originAction names the caller's action for intercept audit rows.
type originActionKey struct{}

// withOriginAction tags ctx with the action being executed.
func withOriginAction(ctx context.Context, action string) context.Context {
	return context.WithValue(ctx, originActionKey{}, action)
}

func originAction(ctx context.Context) string {
	if a, ok := ctx.Value(originActionKey{}).(string); ok {
		return a
	}
	return "unknown"
}

// List implements Client, dropping sensitive items from the result.
func (c *interceptedClient) List(ctx context.Context, query string, max int) ([]Message, error) {
	items, err := c.upstream.List(ctx, query, max)
	if err != nil {
		return nil, err
	}
	kept := make([]Message, 0, len(items))
	for _, m := range items {
		if c.sensitiveMessage(m) {
			c.record(ctx, originAction(ctx), m.ID)
			continue
		}
		kept = append(kept, m)
	}
	return kept, nil
}

// Get implements Client, refusing sensitive items.
func (c *interceptedClient) Get(ctx context.Context, id string) (*Message, error) {
	m, err := c.upstream.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.sensitiveMessage(*m) {
		c.record(ctx, originAction(ctx), m.ID)
		return nil, domainerrors.New(domainerrors.CodeForbidden,
			"Access to this message is not permitted")
	}
	return m, nil
}

// GetThread implements Client, refusing threads with any sensitive message.
func (c *interceptedClient) GetThread(ctx context.Context, id string) (*Thread, error) {
	t, err := c.upstream.GetThread(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.sensitiveThread(t) {
		c.record(ctx, originAction(ctx), t.ID)
		return nil, domainerrors.New(domainerrors.CodeForbidden,
			"Access to this thread is not permitted")
	}
	return t, nil
}

// Mutate implements Client, refusing mutations that target sensitive items.
// The item is fetched first: classification needs content, and the upstream
// mutation must not run at all for a sensitive target.
func (c *interceptedClient) Mutate(ctx context.Context, id string, m Mutation, label string) error {
	item, err := c.upstream.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.sensitiveMessage(*item) {
		c.record(ctx, originAction(ctx), item.ID)
		return domainerrors.New(domainerrors.CodeForbidden,
			"Modifying this message is not permitted")
	}
	return c.upstream.Mutate(ctx, id, m, label)
}
