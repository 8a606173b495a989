// Package tracker records login sessions and the append-only activity trail
// inside them, for audit and analytics.
//
// An account may hold any number of simultaneously active sessions; starting
// a new one never closes the others. Activities are appended in the order
// the writes complete at Redis; no cross-session ordering exists. All writes
// are single-key conditional operations, so the tracker needs no
// transactions across entities.
//
// Activity logging is best-effort by contract: when no active session can be
// resolved the append is silently skipped, because tracking must never block
// the action being tracked.
package tracker
