// Package store is the Redis-backed credential store: account documents,
// pending registrations, and password-reset requests.
//
// # Layout
//
// Accounts are JSON documents keyed by account id. Username, email, and
// mobile uniqueness is enforced by index keys claimed atomically in a Lua
// script, in the fixed order username, email, mobile; the first taken key
// names the conflicting field. Pending registrations and reset requests are
// versioned binary records consumed through WATCH/EXEC conditional deletes,
// so a code can be spent at most once even under concurrent verification.
//
// # What this package must NOT do
//
//   - Decide lifecycle policy (what happens on expiry, which notifications
//     fire). It reports mismatch and expiry; the engine decides.
//   - Retry transport failures. They surface wrapped in ErrUnavailable.
package store
