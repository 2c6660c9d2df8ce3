package auth

import (
	"errors"
	"strings"
)

// Bearer extraction errors. Each malformed-header shape gets a distinct
// sentinel so callers can report it precisely.
var (
	ErrNoAuthHeader  = errors.New("missing Authorization header")
	ErrBadAuthFormat = errors.New("authorization header must be in \"Bearer <token>\" format")
	ErrEmptyToken    = errors.New("bearer token is empty")
)

// ExtractBearer pulls the token out of an Authorization header value.
// The header must be exactly two space-separated parts with the first
// literally "Bearer". Shared by the validator middleware and logout so
// the two cannot drift in how they parse the header.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrNoAuthHeader
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrBadAuthFormat
	}
	if parts[1] == "" {
		return "", ErrEmptyToken
	}
	return parts[1], nil
}
