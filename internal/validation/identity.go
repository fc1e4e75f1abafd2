// Package validation enforces the constraints on player-supplied identity
// fields. Validators are pure: they inspect a value and return nil or an
// AppError carrying the failure kind.
package validation

import (
	"regexp"

	"warhorse/internal/i18n"
	"warhorse/internal/models"
)

// Field limits. Lengths are measured in bytes.
const (
	PasswordMinLength = 8
	NameMinLength     = 3
	NameMaxLength     = 20
	EmailMaxLength    = 254
)

// emailPattern is the WHATWG HTML living-standard email regex.
var emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

// Password checks the minimum password length.
func Password(password string) error {
	if len(password) < PasswordMinLength {
		return models.Fail(i18n.CodeInvalidPassword)
	}
	return nil
}

// AccountName checks the account-name length bounds.
func AccountName(name string) error {
	if len(name) < NameMinLength || len(name) > NameMaxLength {
		return models.Fail(i18n.CodeInvalidAccountName)
	}
	return nil
}

// DisplayName checks the display-name length bounds.
func DisplayName(name string) error {
	if len(name) < NameMinLength || len(name) > NameMaxLength {
		return models.Fail(i18n.CodeInvalidDisplayName)
	}
	return nil
}

// Email checks the address against the HTML living-standard pattern and the
// overall length cap.
func Email(email string) error {
	if len(email) == 0 || len(email) > EmailMaxLength {
		return models.Fail(i18n.CodeInvalidEmail)
	}
	if !emailPattern.MatchString(email) {
		return models.Fail(i18n.CodeInvalidEmail)
	}
	return nil
}
