package authcore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID int

const (
	// MetricSignup counts signup requests that staged a pending registration.
	MetricSignup MetricID = iota
	// MetricSignupConflict counts signups rejected for a taken username,
	// email, or mobile.
	MetricSignupConflict
	// MetricSignupVerified counts verifications that created an account.
	MetricSignupVerified
	// MetricCodeResent counts reissued one-time codes.
	MetricCodeResent
	// MetricCodeRejected counts one-time codes refused as wrong or expired.
	MetricCodeRejected
	// MetricLogin counts successful logins.
	MetricLogin
	// MetricLoginFailed counts logins refused for any reason.
	MetricLoginFailed
	// MetricLogout counts successful logout calls.
	MetricLogout
	// MetricTokenVerified counts tokens that passed verification.
	MetricTokenVerified
	// MetricTokenRejected counts tokens refused as expired or malformed.
	MetricTokenRejected
	// MetricPasswordResetRequested counts issued reset codes.
	MetricPasswordResetRequested
	// MetricPasswordReset counts completed password resets.
	MetricPasswordReset
	// MetricProfileCompleted counts profile updates that reached completion.
	MetricProfileCompleted
	// MetricActivityLogged counts recorded session activities.
	MetricActivityLogged
	// MetricNotifyFailed counts notification deliveries reported as failed.
	MetricNotifyFailed
	// MetricAuditDropped counts audit events dropped on a full buffer.
	MetricAuditDropped

	metricCount
)

var metricNames = [metricCount]string{
	MetricSignup:                 "signup",
	MetricSignupConflict:         "signup_conflict",
	MetricSignupVerified:         "signup_verified",
	MetricCodeResent:             "code_resent",
	MetricCodeRejected:           "code_rejected",
	MetricLogin:                  "login",
	MetricLoginFailed:            "login_failed",
	MetricLogout:                 "logout",
	MetricTokenVerified:          "token_verified",
	MetricTokenRejected:          "token_rejected",
	MetricPasswordResetRequested: "password_reset_requested",
	MetricPasswordReset:          "password_reset",
	MetricProfileCompleted:       "profile_completed",
	MetricActivityLogged:         "activity_logged",
	MetricNotifyFailed:           "notify_failed",
	MetricAuditDropped:           "audit_dropped",
}

// Metrics is a fixed set of lock-free counters. A nil or disabled Metrics
// accepts increments and records nothing.
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id < 0 || id >= metricCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot returns all counters keyed by name.
func (m *Metrics) Snapshot() map[string]uint64 {
	out := make(map[string]uint64, metricCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricCount; id++ {
		out[metricNames[id]] = m.counters[id].Load()
	}
	return out
}
