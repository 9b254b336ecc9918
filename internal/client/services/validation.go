package services

import (
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
	ResetCodeLength   = 6
)

// The validators below return every violated rule, in field order, and
// never touch the network. Lengths are counted in characters.

func ValidateSignUp(username, email, password string) []Violation {
	var v []Violation
	v = append(v, checkUsername(username)...)
	v = append(v, checkEmail("email", email)...)
	v = append(v, checkPassword("password", messages.PasswordTooShort, password)...)
	return v
}

func ValidateLogin(username, password string) []Violation {
	var v []Violation
	v = append(v, checkUsername(username)...)
	v = append(v, checkPassword("password", messages.PasswordTooShort, password)...)
	return v
}

func ValidateChangePassword(oldPassword, newPassword, confirm string) []Violation {
	var v []Violation
	if oldPassword == "" {
		v = append(v, Violation{Field: "old_password", Rule: messages.OldPasswordRequired})
	}
	v = append(v, checkPassword("new_password", messages.NewPasswordTooShort, newPassword)...)
	v = append(v, checkConfirm(newPassword, confirm)...)
	return v
}

func ValidateChangeEmail(newEmail string) []Violation {
	return checkEmail("new_email", newEmail)
}

func ValidateForgotPassword(username string) []Violation {
	return checkUsername(username)
}

// ValidateResetPassword requires a code of exactly six characters, all of
// them ASCII digits. Length and digit rules are reported separately.
func ValidateResetPassword(username, code, newPassword, confirm string) []Violation {
	var v []Violation
	v = append(v, checkUsername(username)...)
	if utf8.RuneCountInString(code) != ResetCodeLength {
		v = append(v, Violation{Field: "reset_code", Rule: messages.ResetCodeLength})
	}
	if code != "" && !isDigits(code) {
		v = append(v, Violation{Field: "reset_code", Rule: messages.ResetCodeDigits})
	}
	v = append(v, checkPassword("new_password", messages.NewPasswordTooShort, newPassword)...)
	v = append(v, checkConfirm(newPassword, confirm)...)
	return v
}

func checkUsername(username string) []Violation {
	var v []Violation
	if strings.TrimSpace(username) == "" {
		v = append(v, Violation{Field: "username", Rule: messages.UsernameRequired})
	}
	if utf8.RuneCountInString(username) < MinUsernameLength {
		v = append(v, Violation{Field: "username", Rule: messages.UsernameTooShort})
	}
	return v
}

func checkPassword(field string, rule messages.Key, password string) []Violation {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return []Violation{{Field: field, Rule: rule}}
	}
	return nil
}

func checkEmail(field, email string) []Violation {
	if !strings.Contains(email, "@") {
		return []Violation{{Field: field, Rule: messages.EmailInvalid}}
	}
	return nil
}

func checkConfirm(password, confirm string) []Violation {
	if password != confirm {
		return []Violation{{Field: "confirm_password", Rule: messages.PasswordMismatch}}
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validationError localizes violations; it returns nil for an empty list.
func validationError(msgs *messages.Catalog, violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	out := make([]string, len(violations))
	for i, v := range violations {
		out[i] = msgs.Text(v.Rule)
	}
	return &ValidationError{Violations: violations, Messages: out}
}
