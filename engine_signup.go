package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patientalert/authcore/internal"
	"github.com/patientalert/authcore/store"
)

const (
	accountIDRetries = 10

	stateOTPSent = "otp_sent"
)

func accountIDPrefix(role Role) string {
	if role == RoleDoctor {
		return "DOC"
	}
	return "PAT"
}

// Signup validates the request, stages a pending registration, and delivers
// a one-time code to the email address. No account exists until the code is
// verified; signing up again with the same email replaces the pending record
// and invalidates any earlier code.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := validateSignup(&req); err != nil {
		return nil, err
	}

	// Conflicts are reported against verified accounts only, always in the
	// same field order so responses are deterministic under concurrency.
	if taken, err := e.accounts.UsernameTaken(ctx, req.Username); err != nil {
		return nil, err
	} else if taken {
		e.metrics.inc(MetricSignupConflict)
		return nil, &ConflictError{Field: "username"}
	}
	if taken, err := e.accounts.EmailTaken(ctx, req.Email); err != nil {
		return nil, err
	} else if taken {
		e.metrics.inc(MetricSignupConflict)
		return nil, &ConflictError{Field: "email"}
	}
	if taken, err := e.accounts.MobileTaken(ctx, req.Mobile); err != nil {
		return nil, err
	} else if taken {
		e.metrics.inc(MetricSignupConflict)
		return nil, &ConflictError{Field: "mobile"}
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	code, issuedAt, expiresAt, err := e.issueCode()
	if err != nil {
		return nil, err
	}

	rec := &store.PendingRegistration{
		Email:         req.Email,
		Role:          string(req.Role),
		Username:      req.Username,
		Mobile:        req.Mobile,
		PasswordHash:  hash,
		Code:          code,
		CodeIssuedAt:  issuedAt.Unix(),
		CodeExpiresAt: expiresAt.Unix(),
		CreatedAt:     issuedAt.Unix(),
	}
	if err := e.accounts.SavePending(ctx, rec); err != nil {
		return nil, err
	}

	e.sendCodeNotice(ctx, req.Email, code)
	e.metrics.inc(MetricSignup)
	e.emitAudit(ctx, auditEventSignup, "", string(req.Role), "", true, nil, map[string]string{"email": req.Email})

	return &SignupResult{Email: req.Email, State: stateOTPSent}, nil
}

// ResendCode issues a fresh one-time code for the email address. For a
// verified account the code is written directly onto the account record,
// replacing whatever code was there; for a signup still awaiting
// verification the pending registration's code is replaced instead. Only
// the latest issued code verifies.
func (e *Engine) ResendCode(ctx context.Context, email string) (*SignupResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", ErrInvalidInput)
	}

	code, issuedAt, expiresAt, err := e.issueCode()
	if err != nil {
		return nil, err
	}

	acct, err := e.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := e.accounts.SetAccountCode(ctx, acct.AccountID, code, issuedAt.Unix(), expiresAt.Unix()); err != nil {
			return nil, mapStoreErr(err)
		}
		e.sendCodeNotice(ctx, email, code)
		e.metrics.inc(MetricCodeResent)
		e.emitAudit(ctx, auditEventCodeResend, acct.AccountID, acct.Role, "", true, nil, nil)
		return &SignupResult{Email: email, State: stateOTPSent}, nil
	case !errors.Is(err, store.ErrAccountNotFound):
		return nil, err
	}

	rec, err := e.accounts.FindPending(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrPendingNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, mapStoreErr(err)
	}
	rec.Code = code
	rec.CodeIssuedAt = issuedAt.Unix()
	rec.CodeExpiresAt = expiresAt.Unix()
	if err := e.accounts.SavePending(ctx, rec); err != nil {
		return nil, err
	}

	e.sendCodeNotice(ctx, email, code)
	e.metrics.inc(MetricCodeResent)
	e.emitAudit(ctx, auditEventCodeResend, "", rec.Role, "", true, nil, map[string]string{"email": email})

	return &SignupResult{Email: email, State: stateOTPSent}, nil
}

func (e *Engine) sendCodeNotice(ctx context.Context, email, code string) {
	e.notify(ctx, email, "Your verification code",
		fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(e.config.Code.TTL.Minutes())))
}

// VerifySignup consumes the pending registration's code and creates the
// account. The consume is conditional on the record still existing, so two
// concurrent verifications create exactly one account; the loser resolves to
// it and reports AlreadyVerified.
func (e *Engine) VerifySignup(ctx context.Context, email, code string) (*VerifySignupResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" {
		return nil, fmt.Errorf("%w: email and code required", ErrInvalidInput)
	}

	rec, err := e.accounts.ConsumePending(ctx, email, code, e.now())
	if err != nil {
		mapped := mapStoreErr(err)
		if errors.Is(mapped, ErrPendingNotFound) {
			// A concurrent verification may have won the consume. If the
			// account now exists this call succeeds idempotently.
			if acct, findErr := e.accounts.FindByEmail(ctx, email); findErr == nil {
				return e.alreadyVerified(ctx, acct)
			}
			e.emitAudit(ctx, auditEventSignupVerify, "", "", "", false, mapped, map[string]string{"email": email})
			return nil, mapped
		}
		if errors.Is(mapped, ErrCodeInvalid) || errors.Is(mapped, ErrCodeExpired) {
			e.metrics.inc(MetricCodeRejected)
		}
		e.emitAudit(ctx, auditEventSignupVerify, "", "", "", false, mapped, map[string]string{"email": email})
		return nil, mapped
	}

	role := Role(rec.Role)
	if role == "" {
		role = RolePatient
	}

	acct, err := e.createVerifiedAccount(ctx, role, rec)
	if err != nil {
		e.emitAudit(ctx, auditEventSignupVerify, "", string(role), "", false, err, map[string]string{"email": email})
		return nil, err
	}

	tok, err := e.tokens.Issue(acct.AccountID, string(role), acct.Username, acct.Email, e.now())
	if err != nil {
		return nil, err
	}

	e.notify(ctx, acct.Email, "Welcome",
		fmt.Sprintf("Your account %s is now active.", acct.AccountID))
	e.metrics.inc(MetricSignupVerified)
	e.emitAudit(ctx, auditEventSignupVerify, acct.AccountID, string(role), "", true, nil, nil)

	return &VerifySignupResult{
		AccountID: acct.AccountID,
		Username:  acct.Username,
		Email:     acct.Email,
		Mobile:    acct.Mobile,
		Status:    acct.Status,
		Token:     tok,
	}, nil
}

// createVerifiedAccount materializes the account with a fresh role-prefixed
// id, retrying on id collision before switching to the longer fallback form.
func (e *Engine) createVerifiedAccount(ctx context.Context, role Role, rec *store.PendingRegistration) (*store.Account, error) {
	prefix := accountIDPrefix(role)
	now := e.now().Unix()

	acct := &store.Account{
		Role:         string(role),
		Username:     rec.Username,
		Email:        rec.Email,
		Mobile:       rec.Mobile,
		PasswordHash: rec.PasswordHash,
		Status:       store.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for attempt := 0; attempt <= accountIDRetries; attempt++ {
		var id string
		var err error
		if attempt < accountIDRetries {
			id, err = internal.NewAccountID(prefix, e.now())
		} else {
			id, err = internal.NewAccountIDFallback(prefix, e.now())
		}
		if err != nil {
			return nil, err
		}

		acct.AccountID = id
		err = e.accounts.CreateAccount(ctx, acct)
		if err == nil {
			return acct, nil
		}

		var dup *store.DuplicateKeyError
		if errors.As(err, &dup) {
			if dup.Field == "account_id" {
				continue
			}
			// Someone claimed the username, email, or mobile between signup
			// and verification.
			e.metrics.inc(MetricSignupConflict)
			return nil, &ConflictError{Field: dup.Field}
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: could not allocate account id", ErrStoreUnavailable)
}

func (e *Engine) alreadyVerified(ctx context.Context, acct *store.Account) (*VerifySignupResult, error) {
	tok, err := e.tokens.Issue(acct.AccountID, acct.Role, acct.Username, acct.Email, e.now())
	if err != nil {
		return nil, err
	}
	e.emitAudit(ctx, auditEventSignupVerify, acct.AccountID, acct.Role, "", true, nil, map[string]string{"already_verified": "true"})
	return &VerifySignupResult{
		AccountID:       acct.AccountID,
		Username:        acct.Username,
		Email:           acct.Email,
		Mobile:          acct.Mobile,
		Status:          acct.Status,
		Token:           tok,
		AlreadyVerified: true,
	}, nil
}
