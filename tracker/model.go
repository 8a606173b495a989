package tracker

// Session is one continuous login period for an account. EndedAt is zero
// while the session is active. Sessions are closed, never deleted.
type Session struct {
	SessionID string
	AccountID string
	Role      string
	Username  string
	StartedAt int64
	EndedAt   int64
	Active    bool
}

// Activity is one tracked user action inside a session. Data is an opaque
// structured payload; Origin is best-effort and may be "unknown".
type Activity struct {
	ActivityID string         `json:"activity_id"`
	Timestamp  int64          `json:"timestamp"`
	Type       string         `json:"activity_type"`
	Data       map[string]any `json:"activity_data,omitempty"`
	Origin     string         `json:"origin_address"`
}

// SessionActivities pairs a session with its ordered activity trail.
type SessionActivities struct {
	Session    Session
	Activities []Activity
}

// TypeCount is one row of the per-account activity summary.
type TypeCount struct {
	Type string
	// Count of activities of this type across all sessions.
	Count int
	// Last is the unix timestamp of the most recent occurrence.
	Last int64
}
