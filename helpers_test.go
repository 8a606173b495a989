package authcore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("test-secret-0123456789abcdef0123")
	// Weakest parameters the hasher accepts, to keep tests fast.
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	return cfg
}

func newTestEngine(t *testing.T) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	engine, err := New().WithConfig(testConfig()).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

func testSignupRequest(role Role, n string) SignupRequest {
	return SignupRequest{
		Role:     role,
		Username: "user_" + n,
		Email:    n + "@example.com",
		Mobile:   "155500000" + n[len(n)-1:],
		Password: "correct horse battery",
	}
}

// pendingCode reads the one-time code straight out of the store, standing in
// for the email the notifier would have delivered.
func pendingCode(t *testing.T, engine *Engine, email string) string {
	t.Helper()

	rec, err := engine.accounts.FindPending(context.Background(), email)
	if err != nil {
		t.Fatalf("FindPending(%s) failed: %v", email, err)
	}
	return rec.Code
}

// signupVerified walks a request through signup and code verification and
// returns the created account's result.
func signupVerified(t *testing.T, engine *Engine, req SignupRequest) *VerifySignupResult {
	t.Helper()

	ctx := context.Background()
	if _, err := engine.Signup(ctx, req); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	code := pendingCode(t, engine, req.Email)
	res, err := engine.VerifySignup(ctx, req.Email, code)
	if err != nil {
		t.Fatalf("VerifySignup failed: %v", err)
	}
	return res
}
