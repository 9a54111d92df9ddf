// Package auth checks the credential a controller attaches to its connection
// request frame.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator validates the auth bytes of a request frame.
type Validator interface {
	Validate(token []byte) error
}

// StaticToken accepts exactly one shared token.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token []byte) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), token) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(token []byte) error

func (f FuncValidator) Validate(token []byte) error {
	return f(token)
}

// Optional returns a StaticToken for token, or nil when token is blank and
// requests go unchecked.
func Optional(token string) Validator {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return StaticToken{Token: token}
}
