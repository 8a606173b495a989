package authcore

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/patientalert/authcore/password"
	"github.com/patientalert/authcore/store"
	"github.com/patientalert/authcore/token"
	"github.com/patientalert/authcore/tracker"
)

// Engine is the account lifecycle service. Construct one with [New] and use
// it from any number of goroutines; Engine holds no per-request state.
type Engine struct {
	config   Config
	accounts *store.Store
	sessions *tracker.Store
	tokens   *token.Manager
	hasher   *password.Hasher
	notifier Notifier
	audit    *auditDispatcher
	metrics  *Metrics
	logger   *zap.Logger

	// now is swapped in tests to pin derived-value arithmetic.
	now func() time.Time
}

// Metrics exposes the engine's counters.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Close flushes the audit queue and stops the dispatcher. The Engine must
// not be used after Close.
func (e *Engine) Close() {
	if e.audit != nil {
		e.audit.close()
	}
}

func (e *Engine) ready() error {
	if e == nil || e.accounts == nil || e.sessions == nil || e.tokens == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) emitAudit(ctx context.Context, eventType, accountID, role, sessionID string, success bool, opErr error, metadata map[string]string) {
	if e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		Role:      role,
		SessionID: sessionID,
		Origin:    originFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	e.audit.emit(event)
}

// notify delivers a message without letting transport failure surface as an
// operation error.
func (e *Engine) notify(ctx context.Context, to, subject, body string) {
	if e.notifier == nil {
		return
	}
	if !e.notifier.Send(ctx, to, subject, body) {
		e.metrics.inc(MetricNotifyFailed)
		e.logger.Warn("notification delivery failed", zap.String("to", to), zap.String("subject", subject))
	}
}

// mapStoreErr translates storage sentinels into the engine's error surface.
// Transport failures are wrapped so Category reports "internal" while the
// cause stays inspectable.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, store.ErrPendingNotFound):
		return ErrPendingNotFound
	case errors.Is(err, store.ErrResetNotFound):
		return ErrCodeInvalid
	case errors.Is(err, store.ErrCodeMismatch):
		return ErrCodeInvalid
	case errors.Is(err, store.ErrCodeExpired):
		return ErrCodeExpired
	default:
		return err
	}
}

func isProfileComplete(acct *store.Account) bool {
	return acct.FirstName != "" && acct.LastName != "" && acct.DateOfBirth != "" && acct.BloodType != ""
}
