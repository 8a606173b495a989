package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		Secret: []byte("test-secret-0123456789abcdef0123"),
		TTL:    24 * time.Hour,
		Issuer: "patientalert",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := testManager(t)

	tok, err := m.Issue("PAT1700000000AB12CD", "patient", "amina", "amina@example.com", time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.AccountID != "PAT1700000000AB12CD" || claims.Role != "patient" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Username != "amina" || claims.Email != "amina@example.com" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Issuer != "patientalert" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestVerifyExpired(t *testing.T) {
	m := testManager(t)

	tok, err := m.Issue("PAT1", "patient", "", "", time.Now().Add(-25*time.Hour))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Verify(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	m := testManager(t)
	other, err := NewManager(Config{
		Secret: []byte("a-completely-different-secret!!!"),
		TTL:    24 * time.Hour,
		Issuer: "patientalert",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := other.Issue("PAT1", "patient", "", "", time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Verify(tok); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestVerifyRejectsGarbageAndEmptyAccount(t *testing.T) {
	m := testManager(t)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := m.Verify(tok); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Verify(%q) = %v, want ErrMalformed", tok, err)
		}
	}

	// A correctly signed token without an account id is rejected.
	empty, err := m.Issue("", "patient", "", "", time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Verify(empty); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	m := testManager(t)

	// Unsigned token claiming alg none must never validate.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		AccountID: "PAT1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "patientalert",
		},
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	if _, err := m.Verify(tok); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{TTL: time.Hour}); err == nil {
		t.Fatal("missing secret must be rejected")
	}
	if _, err := NewManager(Config{Secret: []byte("s"), TTL: 0}); err == nil {
		t.Fatal("zero TTL must be rejected")
	}
	if _, err := NewManager(Config{Secret: []byte("s"), TTL: time.Hour, Leeway: time.Hour}); err == nil {
		t.Fatal("oversized leeway must be rejected")
	}
}
