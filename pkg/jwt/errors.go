package jwt

import (
	"errors"
)

var (
	// ErrInvalidToken is returned when a token fails verification,
	// covering disallowed algorithms, signature mismatches, and
	// claims that do not meet the configured requirements.
	ErrInvalidToken = errors.New("invalid token")

	// ErrNoClaimSet is returned when a token is created without
	// any claims.
	ErrNoClaimSet = errors.New("no claim set")
)
