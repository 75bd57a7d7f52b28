// Package audit provides the gateway's bounded rolling audit log.
//
// Every request produces exactly one entry; mail-interceptor events add
// BLOCKED entries. The appender accepts nothing but the fixed eight-column
// tuple — no field derived from request params or handler results ever
// reaches the sink. Widening the appender signature is a policy violation.
package audit

import "time"

// Status is the closed set of audit outcomes.
type Status string

const (
	StatusOK         Status = "OK"
	StatusAuthFailed Status = "AUTH_FAILED"
	StatusIPBlocked  Status = "IP_BLOCKED"
	StatusBlocked    Status = "BLOCKED"
	StatusError      Status = "ERROR"
	StatusTimeout    Status = "TIMEOUT"
)

// Header lists the eight column names. No sink stores it as a row: the
// audit_log table schema and the Entry fields stand in for the header.
var Header = [8]string{
	"timestamp",
	"request_id",
	"client_ip",
	"service",
	"action",
	"status",
	"duration_ms",
	"error_message",
}

// Entry is one audit row. The eight fields here are the only inputs the
// appender accepts.
type Entry struct {
	Timestamp    time.Time
	RequestID    string
	ClientIP     string
	Service      string
	Action       string
	Status       Status
	DurationMS   int64
	ErrorMessage string
}

// normalize clamps the entry into its invariants: a timestamp is always
// present and the duration is non-negative.
func (e Entry) normalize(now func() time.Time) Entry {
	if e.Timestamp.IsZero() {
		e.Timestamp = now()
	}
	if e.DurationMS < 0 {
		e.DurationMS = 0
	}
	return e
}
