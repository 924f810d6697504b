package auth

import "errors"

var (
	ErrMissingToken   = errors.New("session token is required")
	ErrMalformedToken = errors.New("malformed session token")
	ErrUserNotFound   = errors.New("user not found")
	ErrSessionInvalid = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")

	// ErrStoreUnavailable wraps failures of the user or session store.
	ErrStoreUnavailable = errors.New("session store unavailable")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)
