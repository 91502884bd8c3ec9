package auth

import "errors"

var (
	// ErrUnauthenticated covers a missing, malformed, forged or expired token.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidCredentials is the only login failure callers ever see.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("insufficient permissions")
)
