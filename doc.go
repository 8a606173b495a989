// Package authcore implements the account lifecycle subsystem of the Patient
// Alert maternity-health backend: OTP-gated signup, credential verification,
// password recovery, stateless bearer tokens, and Redis-backed session and
// activity tracking.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and the per-operation request/result types. Storage layout, record
// encoding, and id generation live in the store, tracker, and internal
// packages and are never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients or record encodings in its public API.
//   - Perform I/O during construction (Builder is allocation-only until
//     Build).
//   - Fail a lifecycle operation because a notification could not be
//     delivered; delivery is best-effort and the generated code stays valid.
package authcore
