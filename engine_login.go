package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/patientalert/authcore/store"
	"github.com/patientalert/authcore/token"
)

// Login authenticates by account id or email plus password, opens a tracking
// session, and returns a bearer token. Unknown identifiers and wrong
// passwords are indistinguishable to the caller.
func (e *Engine) Login(ctx context.Context, identifier, pass string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || pass == "" {
		return nil, fmt.Errorf("%w: identifier and password required", ErrInvalidInput)
	}

	acct, method, err := e.resolveAccount(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metrics.inc(MetricLoginFailed)
			e.emitAudit(ctx, auditEventLogin, "", "", "", false, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := e.hasher.Verify(pass, acct.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metrics.inc(MetricLoginFailed)
		e.emitAudit(ctx, auditEventLogin, acct.AccountID, acct.Role, "", false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}
	if acct.Status != store.StatusActive {
		e.metrics.inc(MetricLoginFailed)
		e.emitAudit(ctx, auditEventLogin, acct.AccountID, acct.Role, "", false, ErrAccountNotActive, nil)
		return nil, ErrAccountNotActive
	}

	e.rehashIfNeeded(ctx, acct, pass)

	tok, err := e.tokens.Issue(acct.AccountID, acct.Role, acct.Username, acct.Email, e.now())
	if err != nil {
		return nil, err
	}

	sessionID, err := e.sessions.Start(ctx, acct.AccountID, acct.Role, acct.Username, e.now())
	if err != nil {
		return nil, err
	}

	complete := isProfileComplete(acct)
	if _, err := e.sessions.LogActivity(ctx, acct.AccountID, "login", map[string]any{
		"login_method":     method,
		"profile_complete": complete,
	}, sessionID, originFromContext(ctx), e.now()); err != nil {
		e.logger.Warn("login activity not recorded", zap.String("account_id", acct.AccountID), zap.Error(err))
	}

	e.metrics.inc(MetricLogin)
	e.emitAudit(ctx, auditEventLogin, acct.AccountID, acct.Role, sessionID, true, nil, map[string]string{"login_method": method})

	return &LoginResult{
		AccountID:         acct.AccountID,
		Username:          acct.Username,
		Email:             acct.Email,
		Role:              Role(acct.Role),
		Token:             tok,
		SessionID:         sessionID,
		IsProfileComplete: complete,
	}, nil
}

// resolveAccount tries the identifier as an account id first, then as an
// email address. method reports which form matched.
func (e *Engine) resolveAccount(ctx context.Context, identifier string) (*store.Account, string, error) {
	acct, err := e.accounts.FindByID(ctx, identifier)
	if err == nil {
		return acct, "account_id", nil
	}
	if !errors.Is(err, store.ErrAccountNotFound) {
		return nil, "", err
	}
	acct, err = e.accounts.FindByEmail(ctx, identifier)
	if err != nil {
		return nil, "", mapStoreErr(err)
	}
	return acct, "email", nil
}

// rehashIfNeeded upgrades a stored hash whose cost parameters lag the
// current configuration. Best effort: a failed upgrade never fails the
// login that triggered it.
func (e *Engine) rehashIfNeeded(ctx context.Context, acct *store.Account, pass string) {
	stale, err := e.hasher.NeedsRehash(acct.PasswordHash)
	if err != nil || !stale {
		return
	}
	newHash, err := e.hasher.Hash(pass)
	if err != nil {
		return
	}
	if err := e.accounts.SetPasswordHash(ctx, acct.AccountID, newHash); err != nil {
		e.logger.Warn("password rehash not persisted", zap.String("account_id", acct.AccountID), zap.Error(err))
	}
}

// Logout ends one session when sessionID is given, or every active session
// for the account when it is empty. A logout activity is recorded first so
// it lands in the session being closed. Returns the number of sessions
// actually ended; ending an already-ended session is a no-op, not an error.
func (e *Engine) Logout(ctx context.Context, accountID, sessionID string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return 0, fmt.Errorf("%w: account id required", ErrInvalidInput)
	}

	if _, err := e.sessions.LogActivity(ctx, accountID, "logout", nil, sessionID, originFromContext(ctx), e.now()); err != nil {
		e.logger.Warn("logout activity not recorded", zap.String("account_id", accountID), zap.Error(err))
	}

	ended, err := e.sessions.End(ctx, accountID, sessionID, e.now())
	if err != nil {
		return 0, err
	}

	e.metrics.inc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, accountID, "", sessionID, true, nil, map[string]string{"ended": fmt.Sprintf("%d", ended)})
	return ended, nil
}

// VerifyToken checks the bearer token's signature and expiry and returns its
// claims. The claims are the sole source of the caller's account identity;
// account ids supplied alongside a token are never trusted.
func (e *Engine) VerifyToken(tokenStr string) (*token.Claims, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	claims, err := e.tokens.Verify(tokenStr)
	if err != nil {
		e.metrics.inc(MetricTokenRejected)
		switch {
		case errors.Is(err, token.ErrExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenInvalid
		}
	}
	e.metrics.inc(MetricTokenVerified)
	return claims, nil
}
