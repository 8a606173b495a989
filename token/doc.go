// Package token issues and verifies the stateless bearer tokens that carry
// account identity between the mobile client and the backend.
//
// Tokens are HS256-signed JWTs with a fixed TTL. Claims are integrity
// protected, not encrypted, and there is no revocation: a leaked token stays
// valid until its natural expiry. Logout ends tracking sessions, never
// tokens.
package token
