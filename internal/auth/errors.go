package auth

import "errors"

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, wrong
	// signing algorithms and tokens whose user no longer exists. Callers
	// surface all of these identically so nothing is revealed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is a token or session past its expiry.
	ErrExpiredToken = errors.New("token has expired")

	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password, so login failures cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
