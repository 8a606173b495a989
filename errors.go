package authcore

import "errors"

var (
	// ErrInvalidInput is returned when a request is missing required fields
	// or carries malformed values. Nothing has touched storage yet.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned for unknown identifiers and wrong
	// passwords alike, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned when no account matches the identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountNotActive is returned when the account exists but is not in
	// the active state.
	ErrAccountNotActive = errors.New("account not active")
	// ErrPendingNotFound is returned when no pending registration exists for
	// the email.
	ErrPendingNotFound = errors.New("no pending signup for email")
	// ErrSessionNotFound is returned when the session id does not resolve.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCodeInvalid is returned when a submitted one-time code does not
	// match the stored one. The stored record is left intact for a retry.
	ErrCodeInvalid = errors.New("invalid verification code")
	// ErrCodeExpired is returned when the stored code is past its validity
	// window, regardless of whether the submitted code matched.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrTokenExpired is returned by VerifyToken for a structurally valid,
	// correctly signed token whose expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrStoreUnavailable wraps storage transport failures. The engine never
	// retries; retry policy belongs to the storage layer.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned when an Engine is used before Build
	// wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ConflictError reports a uniqueness violation on signup. Field names the
// first colliding attribute in the fixed check order username, email, mobile.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " already exists"
}

// AsConflict returns the ConflictError carried by err, or nil.
func AsConflict(err error) *ConflictError {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// Category maps an engine error to its stable taxonomy string: "validation",
// "conflict", "not_found", "auth", "expired", or "internal". Clients decide
// control flow from the category alone, never from the message text.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "validation"
	case AsConflict(err) != nil:
		return "conflict"
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrPendingNotFound),
		errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountNotActive),
		errors.Is(err, ErrCodeInvalid),
		errors.Is(err, ErrTokenInvalid):
		return "auth"
	case errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "internal"
	}
}
