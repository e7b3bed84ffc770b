package http

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/kodasoftware/example-api/internal/common"
)

const (
	minPasswordLength = 12
	minUserNameLength = 3
	maxNameLength     = 255
)

func invalid(msg string) error {
	return common.E(common.KindValidation, "http.validate", msg)
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return invalid("email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return invalid("password must be at least 12 characters")
	}
	return nil
}

// validateName checks an account name.
func validateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 {
		return invalid("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return invalid("name must be at most 255 characters")
	}
	return nil
}

// validateUserName is validateName with a minimum of three characters.
func validateUserName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if utf8.RuneCountInString(strings.TrimSpace(name)) < minUserNameLength {
		return invalid("name must be at least 3 characters")
	}
	return nil
}
