package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// createAccountScript claims the unique index keys in the fixed field order
// and inserts the document only when every claim succeeds. The first taken
// key names the conflicting field, mirroring a sparse unique index.
const createAccountScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return "username"
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return "email"
end
if redis.call("EXISTS", KEYS[3]) == 1 then
  return "mobile"
end
if redis.call("EXISTS", KEYS[4]) == 1 then
  return "account_id"
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[1])
redis.call("SET", KEYS[3], ARGV[1])
redis.call("SET", KEYS[4], ARGV[2])
return ""
`

var createAccountLua = redis.NewScript(createAccountScript)

// CreateAccount inserts acct, enforcing global uniqueness of username,
// email, and mobile across both role namespaces. A violation is reported as
// [DuplicateKeyError] naming the first colliding field.
func (s *Store) CreateAccount(ctx context.Context, acct *Account) error {
	doc, err := json.Marshal(acct)
	if err != nil {
		return err
	}

	keys := []string{
		s.usernameKey(acct.Username),
		s.emailKey(acct.Email),
		s.mobileKey(acct.Mobile),
		s.accountKey(acct.AccountID),
	}

	res, err := createAccountLua.Run(ctx, s.rdb, keys, acct.AccountID, doc).Text()
	if err != nil {
		return wrapUnavailable(err)
	}
	if res != "" {
		return &DuplicateKeyError{Field: res}
	}
	return nil
}

// FindByID loads the account document for accountID.
func (s *Store) FindByID(ctx context.Context, accountID string) (*Account, error) {
	return s.load(ctx, s.accountKey(accountID))
}

// FindByEmail resolves email through the unique index to its account.
func (s *Store) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findByIndex(ctx, s.emailKey(email))
}

// FindByUsername resolves username through the unique index to its account.
func (s *Store) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return s.findByIndex(ctx, s.usernameKey(username))
}

func (s *Store) findByIndex(ctx context.Context, indexKey string) (*Account, error) {
	accountID, err := s.rdb.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAccountNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return s.load(ctx, s.accountKey(accountID))
}

func (s *Store) load(ctx context.Context, key string) (*Account, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAccountNotFound
		}
		return nil, wrapUnavailable(err)
	}

	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// UsernameTaken reports whether any account owns username.
func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.indexTaken(ctx, s.usernameKey(username))
}

// EmailTaken reports whether any account owns email.
func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.indexTaken(ctx, s.emailKey(email))
}

// MobileTaken reports whether any account owns mobile.
func (s *Store) MobileTaken(ctx context.Context, mobile string) (bool, error) {
	return s.indexTaken(ctx, s.mobileKey(mobile))
}

func (s *Store) indexTaken(ctx context.Context, indexKey string) (bool, error) {
	n, err := s.rdb.Exists(ctx, indexKey).Result()
	if err != nil {
		return false, wrapUnavailable(err)
	}
	return n == 1, nil
}

// UpdateAccount applies a partial update through a WATCH/EXEC
// read-modify-write. apply mutates the loaded document in place; the
// password hash is restored afterwards so this path can never change it.
func (s *Store) UpdateAccount(ctx context.Context, accountID string, apply func(*Account)) error {
	return s.mutate(ctx, accountID, func(acct *Account) {
		hash := acct.PasswordHash
		apply(acct)
		acct.PasswordHash = hash
	})
}

// SetPasswordHash replaces the stored password hash. This is the only write
// path for password_hash.
func (s *Store) SetPasswordHash(ctx context.Context, accountID, newHash string) error {
	return s.mutate(ctx, accountID, func(acct *Account) {
		acct.PasswordHash = newHash
	})
}

// SetAccountCode overwrites the verification code directly on the account
// record, invalidating any code issued before it.
func (s *Store) SetAccountCode(ctx context.Context, accountID, code string, issuedAt, expiresAt int64) error {
	return s.mutate(ctx, accountID, func(acct *Account) {
		acct.Code = code
		acct.CodeIssuedAt = issuedAt
		acct.CodeExpiresAt = expiresAt
	})
}

func (s *Store) mutate(ctx context.Context, accountID string, apply func(*Account)) error {
	const maxRetries = 4
	key := s.accountKey(accountID)

	for i := 0; i < maxRetries; i++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var acct Account
			if err := json.Unmarshal(data, &acct); err != nil {
				return err
			}

			apply(&acct)

			updated, err := json.Marshal(&acct)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, 0)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrAccountNotFound
			}
			return wrapUnavailable(err)
		}
		return nil
	}

	return wrapUnavailable(redis.TxFailedErr)
}
