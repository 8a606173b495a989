package store

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingRecordVersionV1 = 1

// pendingRetention keeps pending records around well past code expiry so a
// late verification attempt sees "expired", not "not found". They carry no
// secret beyond a short-lived code and a password hash.
const pendingRetention = 24 * time.Hour

// SavePending stores the pending registration for its email, replacing any
// existing record. Replace-wholesale is the invalidation mechanism: only the
// newest code verifies.
func (s *Store) SavePending(ctx context.Context, rec *PendingRegistration) error {
	encoded, err := encodePending(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.pendingKey(rec.Email), encoded, pendingRetention).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// FindPending loads the live pending registration for email.
func (s *Store) FindPending(ctx context.Context, email string) (*PendingRegistration, error) {
	data, err := s.rdb.Get(ctx, s.pendingKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPendingNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return decodePending(data)
}

// DeletePending removes the pending registration for email, if any.
func (s *Store) DeletePending(ctx context.Context, email string) error {
	if err := s.rdb.Del(ctx, s.pendingKey(email)).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// ConsumePending verifies code against the pending registration for email
// and deletes the record in the same conditional transaction, so at most one
// caller ever receives it. Expired records are deleted and reported as
// [ErrCodeExpired]; a mismatched code leaves the record intact for a retry.
func (s *Store) ConsumePending(ctx context.Context, email, code string, now time.Time) (*PendingRegistration, error) {
	const maxRetries = 4
	key := s.pendingKey(email)

	for i := 0; i < maxRetries; i++ {
		var matched *PendingRegistration

		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			rec, err := decodePending(data)
			if err != nil {
				return err
			}

			if now.Unix() > rec.CodeExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrCodeExpired
			}

			if subtle.ConstantTimeCompare([]byte(code), []byte(rec.Code)) != 1 {
				return ErrCodeMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			matched = rec
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrPendingNotFound
			case errors.Is(err, ErrCodeExpired), errors.Is(err, ErrCodeMismatch):
				return nil, err
			default:
				return nil, wrapUnavailable(err)
			}
		}

		return matched, nil
	}

	return nil, ErrPendingNotFound
}

func encodePending(rec *PendingRegistration) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(pendingRecordVersionV1)

	for _, field := range []string{rec.Email, rec.Role, rec.Username, rec.Mobile, rec.PasswordHash, rec.Code} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}
	for _, ts := range []int64{rec.CodeIssuedAt, rec.CodeExpiresAt, rec.CreatedAt} {
		if err := binary.Write(&buf, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func decodePending(data []byte) (*PendingRegistration, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != pendingRecordVersionV1 {
		return nil, errors.New("invalid pending record version")
	}

	rec := &PendingRegistration{}
	for _, field := range []*string{&rec.Email, &rec.Role, &rec.Username, &rec.Mobile, &rec.PasswordHash, &rec.Code} {
		if *field, err = readString(reader); err != nil {
			return nil, err
		}
	}
	for _, ts := range []*int64{&rec.CodeIssuedAt, &rec.CodeExpiresAt, &rec.CreatedAt} {
		if err := binary.Read(reader, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("record field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
