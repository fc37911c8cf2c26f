package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: user not found")
	ErrConflict           = errors.New("auth: email already registered")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrMissingToken    = errors.New("auth: missing token")
	ErrInvalidToken    = errors.New("auth: invalid token")
	ErrTokenExpired    = errors.New("auth: token expired")
	ErrAccountDisabled = errors.New("auth: account disabled")
	ErrForbidden       = errors.New("auth: admin access required")
)
