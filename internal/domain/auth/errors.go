package auth

import "errors"

var (
	ErrNotFound            = errors.New("account not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountInactive     = errors.New("account is not active")
	ErrWeakPassword        = errors.New("password must be at least 8 characters and include upper, lower case letters and a number")
	ErrUnknownRole         = errors.New("unknown role")
	ErrMFARequired         = errors.New("mfa code required")
	ErrMFAInvalid          = errors.New("invalid mfa code")
	ErrMFANotConfigured    = errors.New("mfa setup required")
	ErrMFAUnavailable      = errors.New("mfa requires an encryption key")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenReused  = errors.New("refresh token reuse detected")
)
