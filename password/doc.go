// Package password hashes and verifies account passwords with argon2id.
//
// Hashes are stored in the PHC string format
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash) so parameters travel with the
// hash and can be upgraded on login without a migration.
package password
