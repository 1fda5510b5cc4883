package auth

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 31
	minPasswordLength = 6
	maxPasswordLength = 255
)

const (
	msgInvalidUsername     = "Invalid username"
	msgInvalidPassword     = "Invalid password"
	msgUsernameTaken       = "Username already taken"
	msgInvalidCredentials  = "Incorrect username or password"
	msgUnauthorized        = "Unauthorized"
	msgInvalidRequest      = "Invalid request body"
	msgInternalServerError = "An unknown error occurred"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ErrInvalidCredentials is returned by Login for an unknown username or a
// wrong password. Both cases return this same error.
var ErrInvalidCredentials = errors.New("incorrect username or password")

// ValidationError is a user-facing input error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateUsername checks length and charset of a username
func ValidateUsername(username string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength ||
		!usernamePattern.MatchString(username) {
		return &ValidationError{Message: msgInvalidUsername}
	}
	return nil
}

// ValidatePassword checks the length of a password in characters
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		return &ValidationError{Message: msgInvalidPassword}
	}
	return nil
}

func validateCredentials(username, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	return ValidatePassword(password)
}
