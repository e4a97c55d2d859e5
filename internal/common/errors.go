package common

import "errors"

var (
	// repository specific errors
	ErrNotFound = errors.New("not found")

	// auth specific errors
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidInput       = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProviderDisabled   = errors.New("authentication provider is not configured")
)
