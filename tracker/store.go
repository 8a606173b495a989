package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned by Session for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnavailable wraps Redis transport failures.
	ErrUnavailable = errors.New("session store unavailable")
)

const defaultHistoryLimit = 100

// Store is the Redis-backed session and activity store. Safe for concurrent
// use after construction.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New returns a Store using prefix as the Redis key namespace.
func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "sess"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) sessionKey(sessionID string) string {
	return s.prefix + ":id:" + sessionID
}

func (s *Store) activeKey(accountID string) string {
	return s.prefix + ":active:" + accountID
}

func (s *Store) historyKey(accountID string) string {
	return s.prefix + ":log:" + accountID
}

func (s *Store) activityKey(sessionID string) string {
	return s.prefix + ":act:" + sessionID
}

// Start opens a new session for the account and returns its id. Existing
// active sessions are left untouched: concurrent sessions are intentional.
func (s *Store) Start(ctx context.Context, accountID, role, username string, now time.Time) (string, error) {
	sess := &Session{
		SessionID: uuid.NewString(),
		AccountID: accountID,
		Role:      role,
		Username:  username,
		StartedAt: now.Unix(),
		Active:    true,
	}

	encoded, err := encodeSession(sess)
	if err != nil {
		return "", err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.sessionKey(sess.SessionID), encoded, 0)
	pipe.SAdd(ctx, s.activeKey(accountID), sess.SessionID)
	pipe.RPush(ctx, s.historyKey(accountID), sess.SessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", wrapUnavailable(err)
	}

	return sess.SessionID, nil
}

// End closes sessions for the account and returns how many it closed. With
// a session id it closes exactly that session; with an empty id it closes
// every currently active one. Closing an already-closed session is a no-op.
func (s *Store) End(ctx context.Context, accountID, sessionID string, now time.Time) (int, error) {
	if sessionID != "" {
		ended, err := s.endOne(ctx, accountID, sessionID, now)
		if err != nil {
			return 0, err
		}
		if ended {
			return 1, nil
		}
		return 0, nil
	}

	ids, err := s.rdb.SMembers(ctx, s.activeKey(accountID)).Result()
	if err != nil {
		return 0, wrapUnavailable(err)
	}

	count := 0
	for _, id := range ids {
		ended, err := s.endOne(ctx, accountID, id, now)
		if err != nil {
			return count, err
		}
		if ended {
			count++
		}
	}
	return count, nil
}

func (s *Store) endOne(ctx context.Context, accountID, sessionID string, now time.Time) (bool, error) {
	const maxRetries = 4
	key := s.sessionKey(sessionID)

	for i := 0; i < maxRetries; i++ {
		ended := false

		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			sess, err := decodeSession(data)
			if err != nil {
				return err
			}
			if !sess.Active {
				return nil
			}

			sess.Active = false
			sess.EndedAt = now.Unix()

			encoded, err := encodeSession(sess)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				pipe.SRem(ctx, s.activeKey(accountID), sessionID)
				return nil
			})
			if err != nil {
				return err
			}

			ended = true
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, nil
			}
			return false, wrapUnavailable(err)
		}
		return ended, nil
	}

	return false, nil
}

// LogActivity appends one activity to a session's trail. When sessionID is
// empty the most recently started active session is used; when none is
// active the call is a silent no-op returning an empty id.
func (s *Store) LogActivity(ctx context.Context, accountID, activityType string, data map[string]any, sessionID, origin string, now time.Time) (string, error) {
	if sessionID == "" {
		resolved, err := s.resolveActiveSession(ctx, accountID)
		if err != nil {
			return "", err
		}
		sessionID = resolved
	}
	if sessionID == "" {
		return "", nil
	}

	if origin == "" {
		origin = "unknown"
	}

	entry := Activity{
		ActivityID: uuid.NewString(),
		Timestamp:  now.Unix(),
		Type:       activityType,
		Data:       data,
		Origin:     origin,
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}

	if err := s.rdb.RPush(ctx, s.activityKey(sessionID), encoded).Err(); err != nil {
		return "", wrapUnavailable(err)
	}

	return entry.ActivityID, nil
}

// resolveActiveSession picks the most recently started active session, with
// the session id as a deterministic tie-break.
func (s *Store) resolveActiveSession(ctx context.Context, accountID string) (string, error) {
	sessions, err := s.ActiveSessions(ctx, accountID)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", nil
	}
	return sessions[0].SessionID, nil
}

// Session loads one session and its ordered activity trail.
func (s *Store) Session(ctx context.Context, sessionID string) (*SessionActivities, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	activities, err := s.activities(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &SessionActivities{Session: *sess, Activities: activities}, nil
}

// ActiveSessions returns the account's active sessions, most recently
// started first.
func (s *Store) ActiveSessions(ctx context.Context, accountID string) ([]Session, error) {
	ids, err := s.rdb.SMembers(ctx, s.activeKey(accountID)).Result()
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	sessions := make([]Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.loadSession(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return nil, err
		}
		if sess.Active {
			sessions = append(sessions, *sess)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartedAt != sessions[j].StartedAt {
			return sessions[i].StartedAt > sessions[j].StartedAt
		}
		return sessions[i].SessionID > sessions[j].SessionID
	})

	return sessions, nil
}

// History returns the account's sessions in reverse-chronological start
// order with their activity trails, capped at limit (default 100).
func (s *Store) History(ctx context.Context, accountID string, limit int) ([]SessionActivities, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	ids, err := s.rdb.LRange(ctx, s.historyKey(accountID), 0, -1).Result()
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	// History list is in start order; walk it backwards.
	out := make([]SessionActivities, 0, min(limit, len(ids)))
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		entry, err := s.Session(ctx, ids[i])
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *entry)
	}

	return out, nil
}

// Summary aggregates the account's activities by type, sorted by count
// descending with the type name as a stable tie-break.
func (s *Store) Summary(ctx context.Context, accountID string) ([]TypeCount, error) {
	history, err := s.History(ctx, accountID, 0)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]*TypeCount)
	for _, entry := range history {
		for _, act := range entry.Activities {
			tc, ok := counts[act.Type]
			if !ok {
				tc = &TypeCount{Type: act.Type}
				counts[act.Type] = tc
			}
			tc.Count++
			if act.Timestamp > tc.Last {
				tc.Last = act.Timestamp
			}
		}
	}

	out := make([]TypeCount, 0, len(counts))
	for _, tc := range counts {
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})

	return out, nil
}

func (s *Store) loadSession(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.rdb.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return decodeSession(data)
}

func (s *Store) activities(ctx context.Context, sessionID string) ([]Activity, error) {
	raw, err := s.rdb.LRange(ctx, s.activityKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, wrapUnavailable(err)
	}

	activities := make([]Activity, 0, len(raw))
	for _, item := range raw {
		var act Activity
		if err := json.Unmarshal([]byte(item), &act); err != nil {
			return nil, err
		}
		activities = append(activities, act)
	}
	return activities, nil
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
