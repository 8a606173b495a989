package authcore

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEvent is one security-relevant occurrence in the account lifecycle.
// Metadata carries small event-specific detail; it must not contain
// passwords, codes or token strings.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	Role      string            `json:"role,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Origin    string            `json:"origin,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

const (
	auditEventSignup          = "account.signup"
	auditEventSignupVerify    = "account.signup_verify"
	auditEventCodeResend      = "account.code_resend"
	auditEventLogin           = "account.login"
	auditEventLogout          = "account.logout"
	auditEventPasswordForgot  = "account.password_forgot"
	auditEventPasswordReset   = "account.password_reset"
	auditEventProfileComplete = "account.profile_complete"
)

// AuditSink receives audit events from the dispatcher goroutine. Write is
// called from a single goroutine; sinks do not need to be safe for
// concurrent use but must not block indefinitely.
type AuditSink interface {
	Write(ctx context.Context, event AuditEvent)
}

// NoOpAuditSink discards every event.
type NoOpAuditSink struct{}

func (NoOpAuditSink) Write(context.Context, AuditEvent) {}

// ChannelAuditSink forwards events to a caller-owned channel. Events are
// dropped when the channel is full.
type ChannelAuditSink struct {
	C chan AuditEvent
}

func NewChannelAuditSink(buffer int) *ChannelAuditSink {
	return &ChannelAuditSink{C: make(chan AuditEvent, buffer)}
}

func (s *ChannelAuditSink) Write(_ context.Context, event AuditEvent) {
	select {
	case s.C <- event:
	default:
	}
}

// JSONWriterSink writes one JSON object per line to the wrapped writer.
type JSONWriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{w: w}
}

func (s *JSONWriterSink) Write(_ context.Context, event AuditEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Write(append(b, '\n'))
}
