package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patientalert/authcore/tracker"
)

// TrackActivity records an application event against one of the account's
// sessions. With an empty sessionID the most recently started active session
// is used; when the account has no active session the event is silently
// dropped and an empty activity id is returned.
func (e *Engine) TrackActivity(ctx context.Context, accountID, activityType string, data map[string]any, sessionID string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" || activityType == "" {
		return "", fmt.Errorf("%w: account id and activity type required", ErrInvalidInput)
	}

	activityID, err := e.sessions.LogActivity(ctx, accountID, activityType, data, sessionID, originFromContext(ctx), e.now())
	if err != nil {
		return "", mapTrackerErr(err)
	}
	if activityID != "" {
		e.metrics.inc(MetricActivityLogged)
	}
	return activityID, nil
}

// SessionActivities returns one session with its full activity log.
func (e *Engine) SessionActivities(ctx context.Context, sessionID string) (*tracker.SessionActivities, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	out, err := e.sessions.Session(ctx, sessionID)
	if err != nil {
		return nil, mapTrackerErr(err)
	}
	return out, nil
}

// Activities returns the account's session history, most recent session
// first, each with its activities. limit <= 0 applies the configured
// default.
func (e *Engine) Activities(ctx context.Context, accountID string, limit int) ([]tracker.SessionActivities, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = e.config.Session.HistoryLimit
	}
	out, err := e.sessions.History(ctx, accountID, limit)
	if err != nil {
		return nil, mapTrackerErr(err)
	}
	return out, nil
}

// ActiveSessions returns the account's open sessions, most recently started
// first.
func (e *Engine) ActiveSessions(ctx context.Context, accountID string) ([]tracker.Session, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	out, err := e.sessions.ActiveSessions(ctx, accountID)
	if err != nil {
		return nil, mapTrackerErr(err)
	}
	return out, nil
}

// ActivitySummary aggregates the account's activity counts by type, ordered
// by count descending with ties broken by type name.
func (e *Engine) ActivitySummary(ctx context.Context, accountID string) ([]tracker.TypeCount, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	out, err := e.sessions.Summary(ctx, accountID)
	if err != nil {
		return nil, mapTrackerErr(err)
	}
	return out, nil
}

func mapTrackerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tracker.ErrSessionNotFound):
		return ErrSessionNotFound
	default:
		return err
	}
}
