package authcore

import (
	"errors"
	"time"
)

// Config groups the per-concern engine settings. Zero values are invalid;
// start from [DefaultConfig] and override.
type Config struct {
	Token    TokenConfig
	Password PasswordConfig
	Code     CodeConfig
	Store    StoreConfig
	Session  SessionConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// TokenConfig configures the bearer token service. Secret is the shared
// HS256 signing secret and must be set by the caller; there is no default.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// PasswordConfig holds the argon2id cost parameters. Memory is in KB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// CodeConfig configures one-time codes. TTL is the fixed validity window
// applied to every issued code.
type CodeConfig struct {
	Digits int
	TTL    time.Duration
}

// StoreConfig sets the credential store key namespace.
type StoreConfig struct {
	KeyPrefix string
}

// SessionConfig sets the session tracker key namespace and the default cap
// on session history reads.
type SessionConfig struct {
	KeyPrefix    string
	HistoryLimit int
}

// AuditConfig configures the async audit dispatcher. With DropIfFull set,
// events are counted and discarded instead of blocking the emitting request.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 24h tokens, 6-digit codes
// valid for 10 minutes, argon2id at 64MB/t=3/p=2.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:    24 * time.Hour,
			Issuer: "patientalert",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Code: CodeConfig{
			Digits: 6,
			TTL:    10 * time.Minute,
		},
		Store:   StoreConfig{KeyPrefix: "pa"},
		Session: SessionConfig{KeyPrefix: "sess", HistoryLimit: 100},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

func validateConfig(cfg Config) error {
	if len(cfg.Token.Secret) == 0 {
		return errors.New("token secret required")
	}
	if cfg.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if cfg.Code.Digits < 4 || cfg.Code.Digits > 10 {
		return errors.New("code digits must be between 4 and 10")
	}
	if cfg.Code.TTL <= 0 {
		return errors.New("code TTL must be positive")
	}
	return nil
}
