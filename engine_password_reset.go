package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patientalert/authcore/store"
)

// ForgotPassword issues a password reset code for the account matching the
// identifier (account id or email) and delivers it to the account's email
// address. A new request replaces any outstanding reset code. Returns the
// destination email so callers can confirm where the code went.
func (e *Engine) ForgotPassword(ctx context.Context, identifier string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", fmt.Errorf("%w: identifier required", ErrInvalidInput)
	}

	acct, _, err := e.resolveAccount(ctx, identifier)
	if err != nil {
		return "", err
	}

	code, issuedAt, expiresAt, err := e.issueCode()
	if err != nil {
		return "", err
	}
	rec := &store.ResetRequest{
		AccountID:     acct.AccountID,
		Code:          code,
		CodeIssuedAt:  issuedAt.Unix(),
		CodeExpiresAt: expiresAt.Unix(),
	}
	if err := e.accounts.SaveReset(ctx, rec); err != nil {
		return "", err
	}

	e.notify(ctx, acct.Email, "Password reset code",
		fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, int(e.config.Code.TTL.Minutes())))
	e.metrics.inc(MetricPasswordResetRequested)
	e.emitAudit(ctx, auditEventPasswordForgot, acct.AccountID, acct.Role, "", true, nil, nil)

	return acct.Email, nil
}

// ResetPassword consumes the reset code for the account behind email and
// replaces its password. The consume is conditional on the code record still
// existing, so a code changes the password at most once no matter how many
// callers race with it.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" {
		return fmt.Errorf("%w: email and code required", ErrInvalidInput)
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	acct, err := e.accounts.FindByEmail(ctx, email)
	if err != nil {
		return mapStoreErr(err)
	}

	if _, err := e.accounts.ConsumeReset(ctx, acct.AccountID, code, e.now()); err != nil {
		mapped := mapStoreErr(err)
		if errors.Is(mapped, ErrCodeInvalid) || errors.Is(mapped, ErrCodeExpired) {
			e.metrics.inc(MetricCodeRejected)
		}
		e.emitAudit(ctx, auditEventPasswordReset, acct.AccountID, acct.Role, "", false, mapped, nil)
		return mapped
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.accounts.SetPasswordHash(ctx, acct.AccountID, newHash); err != nil {
		return mapStoreErr(err)
	}

	e.notify(ctx, acct.Email, "Password changed",
		"Your password was just changed. If this was not you, contact support immediately.")
	e.metrics.inc(MetricPasswordReset)
	e.emitAudit(ctx, auditEventPasswordReset, acct.AccountID, acct.Role, "", true, nil, nil)
	return nil
}
