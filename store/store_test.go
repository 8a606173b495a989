package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return New(client, "pa")
}

func testAccount(id string) *Account {
	return &Account{
		AccountID:    id,
		Role:         "patient",
		Username:     "amina_" + id,
		Email:        id + "@example.com",
		Mobile:       "1555000" + id,
		PasswordHash: "$argon2id$stub$for$" + id,
		Status:       StatusActive,
		CreatedAt:    1700000000,
		UpdatedAt:    1700000000,
	}
}

func TestCreateAndFindAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct := testAccount("PAT1")
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	byID, err := s.FindByID(ctx, acct.AccountID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Username != acct.Username || byID.PasswordHash != acct.PasswordHash {
		t.Fatalf("loaded = %+v", byID)
	}

	byEmail, err := s.FindByEmail(ctx, acct.Email)
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if byEmail.AccountID != acct.AccountID {
		t.Fatalf("FindByEmail resolved %q", byEmail.AccountID)
	}

	// Email lookup is case-insensitive.
	if _, err := s.FindByEmail(ctx, "PAT1@Example.COM"); err != nil {
		t.Fatalf("case-insensitive FindByEmail failed: %v", err)
	}

	byUsername, err := s.FindByUsername(ctx, acct.Username)
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	if byUsername.AccountID != acct.AccountID {
		t.Fatalf("FindByUsername resolved %q", byUsername.AccountID)
	}

	if _, err := s.FindByID(ctx, "PATmissing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("missing account err = %v", err)
	}
}

func TestCreateAccountConflictOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, testAccount("PAT1")); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	cases := []struct {
		name      string
		mut       func(*Account)
		wantField string
	}{
		{"same everything", func(a *Account) {}, "username"},
		{"same email", func(a *Account) { a.Username = "someone" }, "email"},
		{"same mobile", func(a *Account) { a.Username = "someone"; a.Email = "x@example.com" }, "mobile"},
		{"same id only", func(a *Account) {
			a.Username = "someone"
			a.Email = "x@example.com"
			a.Mobile = "19990001111"
		}, "account_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dup := testAccount("PAT1")
			tc.mut(dup)
			err := s.CreateAccount(ctx, dup)
			var dke *DuplicateKeyError
			if !errors.As(err, &dke) || dke.Field != tc.wantField {
				t.Fatalf("err = %v, want duplicate %s", err, tc.wantField)
			}
		})
	}

	// Nothing from the failed inserts leaked into the indexes.
	if _, err := s.FindByEmail(ctx, "x@example.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("leaked index entry: %v", err)
	}
}

func TestUsernameUniqueCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct := testAccount("PAT1")
	acct.Username = "Amina"
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	dup := testAccount("PAT2")
	dup.Username = "AMINA"
	err := s.CreateAccount(ctx, dup)
	var dke *DuplicateKeyError
	if !errors.As(err, &dke) || dke.Field != "username" {
		t.Fatalf("err = %v, want duplicate username", err)
	}

	taken, err := s.UsernameTaken(ctx, "amina")
	if err != nil {
		t.Fatalf("UsernameTaken failed: %v", err)
	}
	if !taken {
		t.Fatal("username must be reported taken regardless of case")
	}
}

func TestUpdateAccountCannotChangePasswordHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct := testAccount("PAT1")
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	err := s.UpdateAccount(ctx, acct.AccountID, func(a *Account) {
		a.FirstName = "Amina"
		a.PasswordHash = "overwritten"
	})
	if err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}

	loaded, err := s.FindByID(ctx, acct.AccountID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if loaded.FirstName != "Amina" {
		t.Fatalf("update not applied: %+v", loaded)
	}
	if loaded.PasswordHash != acct.PasswordHash {
		t.Fatal("UpdateAccount must never change the password hash")
	}

	if err := s.SetPasswordHash(ctx, acct.AccountID, "new-hash"); err != nil {
		t.Fatalf("SetPasswordHash failed: %v", err)
	}
	loaded, err = s.FindByID(ctx, acct.AccountID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if loaded.PasswordHash != "new-hash" {
		t.Fatalf("hash = %q", loaded.PasswordHash)
	}

	if err := s.UpdateAccount(ctx, "PATmissing", func(a *Account) {}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("missing account err = %v", err)
	}
}

func TestConsumePendingSingleUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := &PendingRegistration{
		Email:         "amina@example.com",
		Role:          "patient",
		Username:      "amina",
		Mobile:        "15550001111",
		PasswordHash:  "hash",
		Code:          "246810",
		CodeIssuedAt:  now.Unix(),
		CodeExpiresAt: now.Add(10 * time.Minute).Unix(),
		CreatedAt:     now.Unix(),
	}
	if err := s.SavePending(ctx, rec); err != nil {
		t.Fatalf("SavePending failed: %v", err)
	}

	// A wrong code leaves the record intact.
	if _, err := s.ConsumePending(ctx, rec.Email, "000000", now); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("wrong code err = %v", err)
	}
	if _, err := s.FindPending(ctx, rec.Email); err != nil {
		t.Fatalf("record must survive a mismatch: %v", err)
	}

	got, err := s.ConsumePending(ctx, rec.Email, rec.Code, now)
	if err != nil {
		t.Fatalf("ConsumePending failed: %v", err)
	}
	if got.Username != rec.Username || got.Role != rec.Role || got.PasswordHash != rec.PasswordHash {
		t.Fatalf("consumed = %+v", got)
	}

	// Consumed exactly once.
	if _, err := s.ConsumePending(ctx, rec.Email, rec.Code, now); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("second consume err = %v", err)
	}
}

func TestConsumePendingExpiredDeletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := &PendingRegistration{
		Email:         "amina@example.com",
		Role:          "patient",
		Username:      "amina",
		Code:          "246810",
		CodeIssuedAt:  now.Unix(),
		CodeExpiresAt: now.Add(10 * time.Minute).Unix(),
		CreatedAt:     now.Unix(),
	}
	if err := s.SavePending(ctx, rec); err != nil {
		t.Fatalf("SavePending failed: %v", err)
	}

	late := now.Add(11 * time.Minute)
	if _, err := s.ConsumePending(ctx, rec.Email, rec.Code, late); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("err = %v, want ErrCodeExpired", err)
	}

	// The expired record was removed in the same transaction.
	if _, err := s.FindPending(ctx, rec.Email); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expired record err = %v, want ErrPendingNotFound", err)
	}
}

func TestConsumeResetSingleUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := &ResetRequest{
		AccountID:     "PAT1",
		Code:          "135790",
		CodeIssuedAt:  now.Unix(),
		CodeExpiresAt: now.Add(10 * time.Minute).Unix(),
	}
	if err := s.SaveReset(ctx, rec); err != nil {
		t.Fatalf("SaveReset failed: %v", err)
	}

	if _, err := s.ConsumeReset(ctx, "PAT2", rec.Code, now); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("wrong account err = %v", err)
	}
	if _, err := s.ConsumeReset(ctx, rec.AccountID, "000000", now); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("wrong code err = %v", err)
	}

	got, err := s.ConsumeReset(ctx, rec.AccountID, rec.Code, now)
	if err != nil {
		t.Fatalf("ConsumeReset failed: %v", err)
	}
	if got.AccountID != rec.AccountID {
		t.Fatalf("consumed = %+v", got)
	}

	if _, err := s.ConsumeReset(ctx, rec.AccountID, rec.Code, now); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("second consume err = %v", err)
	}
}

func TestSavePendingReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	first := &PendingRegistration{
		Email:         "amina@example.com",
		Role:          "patient",
		Username:      "amina",
		Code:          "111111",
		CodeExpiresAt: now.Add(10 * time.Minute).Unix(),
	}
	if err := s.SavePending(ctx, first); err != nil {
		t.Fatalf("SavePending failed: %v", err)
	}

	second := &PendingRegistration{
		Email:         "amina@example.com",
		Role:          "doctor",
		Username:      "dr_amina",
		Code:          "222222",
		CodeExpiresAt: now.Add(10 * time.Minute).Unix(),
	}
	if err := s.SavePending(ctx, second); err != nil {
		t.Fatalf("SavePending failed: %v", err)
	}

	rec, err := s.FindPending(ctx, "amina@example.com")
	if err != nil {
		t.Fatalf("FindPending failed: %v", err)
	}
	if rec.Code != "222222" || rec.Role != "doctor" || rec.Username != "dr_amina" {
		t.Fatalf("record = %+v, want full replacement", rec)
	}
}
