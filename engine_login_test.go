package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginByAccountIDAndEmail(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	req := testSignupRequest(RolePatient, "alice1")
	created := signupVerified(t, engine, req)

	byID, err := engine.Login(ctx, created.AccountID, req.Password)
	if err != nil {
		t.Fatalf("Login by id failed: %v", err)
	}
	if byID.AccountID != created.AccountID || byID.Role != RolePatient {
		t.Fatalf("result = %+v", byID)
	}
	if byID.Token == "" || byID.SessionID == "" {
		t.Fatal("login must issue a token and open a session")
	}
	if byID.IsProfileComplete {
		t.Fatal("fresh account must not report a complete profile")
	}

	byEmail, err := engine.Login(ctx, req.Email, req.Password)
	if err != nil {
		t.Fatalf("Login by email failed: %v", err)
	}
	if byEmail.SessionID == byID.SessionID {
		t.Fatal("each login must open its own session")
	}

	sessions, err := engine.ActiveSessions(ctx, created.AccountID)
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("active sessions = %d, want 2", len(sessions))
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	req := testSignupRequest(RolePatient, "alice1")
	created := signupVerified(t, engine, req)

	// Unknown identifier and wrong password must be indistinguishable.
	_, unknownErr := engine.Login(ctx, "PATnope", req.Password)
	_, wrongPassErr := engine.Login(ctx, created.AccountID, "not the password")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown identifier err = %v", unknownErr)
	}
	if !errors.Is(wrongPassErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", wrongPassErr)
	}
	if unknownErr.Error() != wrongPassErr.Error() {
		t.Fatalf("error texts differ: %q vs %q", unknownErr, wrongPassErr)
	}
	if Category(unknownErr) != "auth" {
		t.Fatalf("category = %q", Category(unknownErr))
	}

	// A failed login must not open a session.
	sessions, err := engine.ActiveSessions(ctx, created.AccountID)
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("active sessions = %d, want 0", len(sessions))
	}
}

func TestLoginRequiresInput(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, err := engine.Login(context.Background(), "", "hunter22"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := engine.Login(context.Background(), "PAT123", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestLogoutSingleAndAll(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	req := testSignupRequest(RolePatient, "alice1")
	created := signupVerified(t, engine, req)

	first, err := engine.Login(ctx, created.AccountID, req.Password)
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := engine.Login(ctx, created.AccountID, req.Password)
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}

	ended, err := engine.Logout(ctx, created.AccountID, first.SessionID)
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if ended != 1 {
		t.Fatalf("ended = %d, want 1", ended)
	}

	sessions, err := engine.ActiveSessions(ctx, created.AccountID)
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != second.SessionID {
		t.Fatalf("sessions = %+v, want only the second", sessions)
	}

	// Ending an already-ended session is a no-op.
	ended, err = engine.Logout(ctx, created.AccountID, first.SessionID)
	if err != nil {
		t.Fatalf("repeat Logout failed: %v", err)
	}
	if ended != 0 {
		t.Fatalf("repeat ended = %d, want 0", ended)
	}

	// Empty session id ends everything still open.
	if _, err := engine.Login(ctx, created.AccountID, req.Password); err != nil {
		t.Fatalf("third login failed: %v", err)
	}
	ended, err = engine.Logout(ctx, created.AccountID, "")
	if err != nil {
		t.Fatalf("Logout all failed: %v", err)
	}
	if ended != 2 {
		t.Fatalf("ended = %d, want 2", ended)
	}

	sessions, err = engine.ActiveSessions(ctx, created.AccountID)
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("sessions = %d, want 0", len(sessions))
	}
}

func TestVerifyTokenClaims(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	req := testSignupRequest(RoleDoctor, "bob2")
	created := signupVerified(t, engine, req)
	login, err := engine.Login(ctx, created.AccountID, req.Password)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	claims, err := engine.VerifyToken(login.Token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.AccountID != created.AccountID {
		t.Fatalf("AccountID = %q, want %q", claims.AccountID, created.AccountID)
	}
	if claims.Role != string(RoleDoctor) || claims.Username != req.Username || claims.Email != req.Email {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyTokenExpiredVsInvalid(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := testSignupRequest(RolePatient, "alice1")
	created := signupVerified(t, engine, req)

	// Issue a token far enough in the past that its TTL has lapsed.
	engine.now = func() time.Time { return time.Now().Add(-engine.config.Token.TTL - time.Hour) }
	login, err := engine.Login(context.Background(), created.AccountID, req.Password)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	engine.now = time.Now

	if _, err := engine.VerifyToken(login.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
	if Category(ErrTokenExpired) != "expired" {
		t.Fatalf("category = %q", Category(ErrTokenExpired))
	}

	if _, err := engine.VerifyToken("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
	if Category(ErrTokenInvalid) != "auth" {
		t.Fatalf("category = %q", Category(ErrTokenInvalid))
	}
}
