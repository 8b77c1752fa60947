package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrOTPNotFound        = errors.New("auth: otp not found")
	ErrOTPMismatch        = errors.New("auth: otp mismatch")
	ErrOTPExpired         = errors.New("auth: otp expired")
)
