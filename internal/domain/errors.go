// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates malformed input that must not reach a backend.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized indicates a missing or expired session.
var ErrUnauthorized = errors.New("unauthorized")

// ErrIdentity wraps errors reported by the identity provider. The wrapped
// message is safe to show to the user verbatim.
var ErrIdentity = errors.New("identity provider")
