package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired is returned for a correctly signed token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is returned for structurally invalid tokens, wrong
	// signing algorithms, and bad signatures.
	ErrMalformed = errors.New("token malformed or bad signature")
)

// Config holds the signing secret and token lifetime. Secret must be set;
// TTL defaults are the caller's responsibility.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// Claims is the identity claim set carried by every bearer token.
type Claims struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies bearer tokens with a single shared secret.
// Configure once at startup and treat as immutable.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid token TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid token leeway")
	}
	return &Manager{config: cfg}, nil
}

// Issue signs a token for the given identity with issued_at = now and
// expires_at = now + TTL.
func (m *Manager) Issue(accountID, role, username, email string, now time.Time) (string, error) {
	claims := Claims{
		AccountID: accountID,
		Role:      role,
		Username:  username,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			Issuer:    m.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Verify parses and validates tokenStr. Expiry is reported as [ErrExpired],
// every other failure as [ErrMalformed], so callers can offer "log in again"
// separately from "bad token".
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.AccountID == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}
