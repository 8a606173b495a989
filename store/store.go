package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrAccountNotFound is returned when no account matches the key.
	ErrAccountNotFound = errors.New("account not found")
	// ErrPendingNotFound is returned when no live pending registration
	// exists for the email.
	ErrPendingNotFound = errors.New("pending registration not found")
	// ErrResetNotFound is returned when no reset request exists for the
	// account.
	ErrResetNotFound = errors.New("reset request not found")
	// ErrCodeMismatch is returned when the submitted code differs from the
	// stored one. The record is left intact.
	ErrCodeMismatch = errors.New("code mismatch")
	// ErrCodeExpired is returned when the stored code is past its window.
	// The record has been deleted; a fresh issue is required.
	ErrCodeExpired = errors.New("code expired")
	// ErrUnavailable wraps Redis transport failures.
	ErrUnavailable = errors.New("credential store unavailable")
)

// DuplicateKeyError reports which unique index rejected an account insert.
// Field is one of "username", "email", "mobile", "account_id".
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return "duplicate " + e.Field
}

// Store is the Redis-backed credential store. One instance is shared by all
// requests; all methods are safe for concurrent use.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New returns a Store using prefix as the Redis key namespace.
func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "pa"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) accountKey(accountID string) string {
	return s.prefix + ":acct:" + accountID
}

func (s *Store) usernameKey(username string) string {
	return s.prefix + ":uname:" + strings.ToLower(username)
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":email:" + normalizeEmail(email)
}

func (s *Store) mobileKey(mobile string) string {
	return s.prefix + ":mobile:" + mobile
}

func (s *Store) pendingKey(email string) string {
	return s.prefix + ":preg:" + normalizeEmail(email)
}

func (s *Store) resetKey(accountID string) string {
	return s.prefix + ":prst:" + accountID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
