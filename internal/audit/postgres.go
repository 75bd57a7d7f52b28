package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink persists audit rows in the audit_log table. Rows are ordered
// by a serial sequence; sink_id partitions the table into logical logs.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a sink over an existing pool. The audit_log table
// must exist; run the embedded migrations first.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Append implements Sink. The header row is the table schema itself, so no
// explicit header write is needed.
func (s *PostgresSink) Append(ctx context.Context, sinkID string, e Entry) error {
	const q = `
		INSERT INTO audit_log
			(sink_id, ts, request_id, client_ip, service, action, status, duration_ms, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, q,
		sinkID, e.Timestamp, e.RequestID, e.ClientIP, e.Service, e.Action,
		string(e.Status), e.DurationMS, e.ErrorMessage)
	if err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}

// Count implements Sink.
func (s *PostgresSink) Count(ctx context.Context, sinkID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM audit_log WHERE sink_id = $1`, sinkID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("audit count: %w", err)
	}
	return n, nil
}

// TrimOldest implements Sink.
func (s *PostgresSink) TrimOldest(ctx context.Context, sinkID string, n int) error {
	const q = `
		DELETE FROM audit_log
		WHERE seq IN (
			SELECT seq FROM audit_log
			WHERE sink_id = $1
			ORDER BY seq ASC
			LIMIT $2
		)`
	if _, err := s.pool.Exec(ctx, q, sinkID, n); err != nil {
		return fmt.Errorf("audit trim: %w", err)
	}
	return nil
}

// Clear implements Sink.
func (s *PostgresSink) Clear(ctx context.Context, sinkID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM audit_log WHERE sink_id = $1`, sinkID); err != nil {
		return fmt.Errorf("audit clear: %w", err)
	}
	return nil
}

// Tail implements Sink.
func (s *PostgresSink) Tail(ctx context.Context, sinkID string, n int) ([]Entry, error) {
	const q = `
		SELECT ts, request_id, client_ip, service, action, status, duration_ms, error_message
		FROM (
			SELECT * FROM audit_log
			WHERE sink_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) newest
		ORDER BY seq ASC`
	rows, err := s.pool.Query(ctx, q, sinkID, n)
	if err != nil {
		return nil, fmt.Errorf("audit tail: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.Timestamp, &e.RequestID, &e.ClientIP, &e.Service,
			&e.Action, &status, &e.DurationMS, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("audit tail scan: %w", err)
		}
		e.Status = Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
