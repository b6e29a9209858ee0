package authflow

import (
	"strings"
	"unicode"
)

// MinPasswordLength mirrors the server policy; the checklist exists for
// instant feedback while the user types.
const MinPasswordLength = 12

var commonPasswords = map[string]struct{}{
	"password":      {},
	"password123":   {},
	"password1234!": {},
	"qwerty123456!": {},
	"letmein12345!": {},
	"welcome12345!": {},
}

// Check is one checklist row on the change-password screen.
type Check struct {
	Label string
	OK    bool
}

// EvaluatePassword runs every rule so the UI can render the full
// checklist, the confirmation match included. identifier is the username
// or email of the account the password is for.
func EvaluatePassword(password, confirm, identifier string) []Check {
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

	_, common := commonPasswords[strings.ToLower(password)]

	return []Check{
		{Label: "At least 12 characters", OK: len(password) >= MinPasswordLength},
		{Label: "An uppercase letter", OK: hasUpper},
		{Label: "A lowercase letter", OK: hasLower},
		{Label: "A digit", OK: hasDigit},
		{Label: "A special character", OK: hasSpecial},
		{Label: "Does not contain your username", OK: !containsIdentifier(password, identifier)},
		{Label: "Not a commonly used password", OK: !common},
		{Label: "Matches the confirmation", OK: password != "" && password == confirm},
	}
}

// PasswordOK reports whether every rule passes.
func PasswordOK(password, confirm, identifier string) bool {
	for _, check := range EvaluatePassword(password, confirm, identifier) {
		if !check.OK {
			return false
		}
	}
	return true
}

// containsIdentifier checks the password against the username, or the
// local part when the identifier is an email address, case-insensitively.
func containsIdentifier(password, identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return false
	}
	if at := strings.Index(identifier, "@"); at > 0 {
		identifier = identifier[:at]
	}
	return strings.Contains(strings.ToLower(password), strings.ToLower(identifier))
}
