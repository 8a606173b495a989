package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	accountIDSuffixBytes         = 3
	accountIDFallbackSuffixBytes = 4
)

// NewAccountID builds a candidate account id: role prefix + unix-second
// timestamp + short uppercase random suffix. Uniqueness is the caller's
// problem; it checks the store and retries with fresh suffixes on collision.
func NewAccountID(prefix string, now time.Time) (string, error) {
	suffix, err := upperHex(accountIDSuffixBytes)
	if err != nil {
		return "", err
	}
	return prefix + strconv.FormatInt(now.Unix(), 10) + suffix, nil
}

// NewAccountIDFallback builds the last-resort id after repeated collisions:
// millisecond timestamp plus a longer suffix. Collision probability is
// astronomically low, not provably zero.
func NewAccountIDFallback(prefix string, now time.Time) (string, error) {
	suffix, err := upperHex(accountIDFallbackSuffixBytes)
	if err != nil {
		return "", err
	}
	return prefix + strconv.FormatInt(now.UnixMilli(), 10) + suffix, nil
}

func upperHex(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(raw)), nil
}

// NewCode draws a numeric one-time code of the given length uniformly from
// crypto/rand. Codes are not unique across issuances; they are scoped by the
// email or account they were issued against.
func NewCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid code length")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}
