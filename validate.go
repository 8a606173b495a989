package authcore

import (
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const minPasswordLength = 8

func validateSignup(req *SignupRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Mobile = strings.TrimSpace(req.Mobile)

	switch req.Role {
	case "":
		req.Role = RolePatient
	case RolePatient, RoleDoctor:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}

	if req.Username == "" {
		return fmt.Errorf("%w: username required", ErrInvalidInput)
	}
	if !emailPattern.MatchString(req.Email) {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if err := validateMobile(req.Mobile); err != nil {
		return err
	}
	if len(req.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}

// validateMobile accepts an optional leading + followed by 10 to 15 digits.
func validateMobile(mobile string) error {
	digits := strings.TrimPrefix(mobile, "+")
	if len(digits) < 10 || len(digits) > 15 {
		return fmt.Errorf("%w: mobile must be 10 to 15 digits", ErrInvalidInput)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: mobile must contain only digits", ErrInvalidInput)
		}
	}
	return nil
}
