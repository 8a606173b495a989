package authcore

import (
	"time"

	"github.com/patientalert/authcore/internal"
)

// issueCode mints a fresh one-time code together with its issue and expiry
// instants. Every issued code carries the full configured validity window;
// reissuing replaces any code still outstanding.
func (e *Engine) issueCode() (code string, issuedAt, expiresAt time.Time, err error) {
	code, err = internal.NewCode(e.config.Code.Digits)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	issuedAt = e.now().UTC()
	return code, issuedAt, issuedAt.Add(e.config.Code.TTL), nil
}
