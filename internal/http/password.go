package http

import (
	"errors"
	"strings"
	"unicode"
)

const minPasswordLength = 12

// validatePassword is the server-side password policy. Clients run the
// same checks for instant feedback, but this is the authoritative gate.
func validatePassword(password, email string) error {
	if len(password) < minPasswordLength {
		return errors.New("password must be at least 12 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	switch {
	case !hasUpper:
		return errors.New("password must contain an uppercase letter")
	case !hasLower:
		return errors.New("password must contain a lowercase letter")
	case !hasDigit:
		return errors.New("password must contain a digit")
	case !hasSpecial:
		return errors.New("password must contain a special character")
	}

	if email != "" {
		local := email
		if at := strings.Index(email, "@"); at > 0 {
			local = email[:at]
		}
		if local != "" && strings.Contains(strings.ToLower(password), strings.ToLower(local)) {
			return errors.New("password must not contain your email address")
		}
	}
	return nil
}
