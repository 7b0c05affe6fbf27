// Package user defines the identity of a signed-in chat user. Accounts are
// owned by the external identity provider; CogniChat only carries them.
package user

import (
	"errors"
	"net/mail"
	"strings"
)

// User is the identity returned by the provider after sign-in or sign-up.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SignUpRequest is the input for registering a new account.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	Name     string `json:"name"`
}

// Validate checks that the SignUpRequest has all required fields.
// Password policy is left to the identity provider.
func (r *SignUpRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// SignInRequest is the input for password authentication.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the SignInRequest has all required fields.
func (r *SignInRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// Credentials is what the provider hands back for an authenticated user.
type Credentials struct {
	User        User   `json:"user"`
	AccessToken string `json:"-"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("invalid email format")
	}
	return nil
}
