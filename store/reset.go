package store

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetRecordVersionV1 = 1

const resetRetention = 24 * time.Hour

// SaveReset stores the reset request for its account, replacing any prior
// one. Re-requesting a reset invalidates the previous code.
func (s *Store) SaveReset(ctx context.Context, rec *ResetRequest) error {
	encoded, err := encodeReset(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.resetKey(rec.AccountID), encoded, resetRetention).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// FindReset loads the live reset request for accountID.
func (s *Store) FindReset(ctx context.Context, accountID string) (*ResetRequest, error) {
	data, err := s.rdb.Get(ctx, s.resetKey(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResetNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return decodeReset(data)
}

// ConsumeReset verifies code against the reset request issued for exactly
// accountID and deletes it conditionally, following the same single-use
// discipline as ConsumePending.
func (s *Store) ConsumeReset(ctx context.Context, accountID, code string, now time.Time) (*ResetRequest, error) {
	const maxRetries = 4
	key := s.resetKey(accountID)

	for i := 0; i < maxRetries; i++ {
		var matched *ResetRequest

		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			rec, err := decodeReset(data)
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
				return nil, ErrResetNotFound
			case errors.Is(err, ErrCodeExpired), errors.Is(err, ErrCodeMismatch):
				return nil, err
			default:
				return nil, wrapUnavailable(err)
			}
		}

		return matched, nil
	}

	return nil, ErrResetNotFound
}

func encodeReset(rec *ResetRequest) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(resetRecordVersionV1)

	if err := writeString(&buf, rec.AccountID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, rec.Code); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, rec.CodeIssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, rec.CodeExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeReset(data []byte) (*ResetRequest, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != resetRecordVersionV1 {
		return nil, errors.New("invalid reset record version")
	}

	rec := &ResetRequest{}
	if rec.AccountID, err = readString(reader); err != nil {
		return nil, err
	}
	if rec.Code, err = readString(reader); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &rec.CodeIssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &rec.CodeExpiresAt); err != nil {
		return nil, err
	}

	return rec, nil
}
