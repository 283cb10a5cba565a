package service

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dtroode/regicide-accounts/internal/model"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	passHashPattern = regexp.MustCompile(`^(?:[A-Za-z0-9+/]{4})*(?:[A-Za-z0-9+/]{2}==|[A-Za-z0-9+/]{3}=)?$`)
)

// ValidateUsername checks length and alphabet of a username.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < model.UsernameMinLength || n > model.UsernameMaxLength {
		return fmt.Errorf("%w: length must be between %d and %d",
			model.ErrInvalidUsername, model.UsernameMinLength, model.UsernameMaxLength)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: only letters, digits, '_' and '-' are allowed", model.ErrInvalidUsername)
	}
	return nil
}

// ValidateDisplayName checks length, control characters and surrounding whitespace.
func ValidateDisplayName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < model.DisplayNameMinLength || n > model.DisplayNameMaxLength {
		return fmt.Errorf("%w: length must be between %d and %d",
			model.ErrInvalidDisplayName, model.DisplayNameMinLength, model.DisplayNameMaxLength)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: leading or trailing whitespace", model.ErrInvalidDisplayName)
	}
	for _, r := range name {
		if unicode.Is(unicode.C, r) {
			return fmt.Errorf("%w: control or unassigned characters", model.ErrInvalidDisplayName)
		}
	}
	return nil
}

// ValidateEmail checks length and the presence of '@'.
func ValidateEmail(email string) error {
	n := utf8.RuneCountInString(email)
	if n < model.EmailMinLength || n > model.EmailMaxLength {
		return fmt.Errorf("%w: length must be between %d and %d",
			model.ErrInvalidEmail, model.EmailMinLength, model.EmailMaxLength)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: missing '@'", model.ErrInvalidEmail)
	}
	return nil
}

// ValidatePassHash checks that the client password hash is long enough standard base64.
func ValidatePassHash(passHash string) error {
	if len(passHash) < model.PassHashMinLength {
		return fmt.Errorf("%w: must be at least %d characters", model.ErrBadPassHash, model.PassHashMinLength)
	}
	if !passHashPattern.MatchString(passHash) {
		return fmt.Errorf("%w: not standard base64", model.ErrBadPassHash)
	}
	if _, err := base64.StdEncoding.DecodeString(passHash); err != nil {
		return fmt.Errorf("%w: %w", model.ErrBadPassHash, err)
	}
	return nil
}

// ValidateRegistration checks every registration field, stopping at the first failure.
func ValidateRegistration(req model.RegisterRequest) error {
	if err := ValidateUsername(req.Username); err != nil {
		return err
	}
	if err := ValidatePassHash(req.PassHash); err != nil {
		return err
	}
	if err := ValidateDisplayName(req.DispName); err != nil {
		return err
	}
	return ValidateEmail(req.Email)
}

// ValidateLogin checks the login request shape. Every failure is ErrInvalidRequest.
func ValidateLogin(req model.LoginRequest) error {
	if err := ValidateUsername(req.Username); err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}
	if err := ValidatePassHash(req.PassHash); err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}
	return nil
}
