package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID   = "argon2id"
	minMemoryKB   = 8 * 1024
	minSaltLength = 16
	minKeyLength  = 16
	minPassBytes  = 8
)

// Config holds the argon2id cost parameters. Memory is in KB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher hashes and verifies passwords with a fixed parameter set. Configure
// once at startup and treat as immutable.
type Hasher struct {
	config Config
}

// NewHasher validates cfg and returns a ready Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("password memory must be >= 8192 KB")
	case cfg.Time < 1:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("password salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("password key length must be >= 16")
	}
	return &Hasher{config: cfg}, nil
}

// Hash derives an argon2id hash with a fresh random salt and returns it in
// PHC string format. Password bytes are used exactly as provided, with no
// Unicode normalization.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < minPassBytes {
		return "", errors.New("password must be at least 8 bytes")
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash with the parameters embedded in encodedHash and
// compares in constant time.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.hash)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// NeedsRehash reports whether encodedHash was produced with weaker
// parameters than the active configuration. Callers rehash on the next
// successful login.
func (h *Hasher) NeedsRehash(encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	if h.config.Memory > parsed.memory || h.config.Time > parsed.time {
		return true, nil
	}
	if h.config.Parallelism > parsed.parallelism {
		return true, nil
	}
	if h.config.KeyLength != uint32(len(parsed.hash)) {
		return true, nil
	}
	return false, nil
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, errors.New("invalid PHC format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var parsed parsedPHC
	var parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &parsed.memory, &parsed.time, &parallelism); err != nil {
		return nil, errors.New("invalid argon2 parameters")
	}
	if parsed.memory < minMemoryKB || parsed.time < 1 || parallelism < 1 || parallelism > 255 {
		return nil, errors.New("invalid argon2 parameters")
	}
	parsed.parallelism = uint8(parallelism)

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < minSaltLength {
		return nil, errors.New("invalid salt")
	}
	parsed.salt = salt

	hash, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, errors.New("invalid hash")
	}
	parsed.hash = hash

	return &parsed, nil
}
