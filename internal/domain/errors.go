package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAccessDenied  = errors.New("access denied")
	ErrNoCredentials = errors.New("no platform credentials stored")
	ErrEmptyReply    = errors.New("reply text is empty")
	ErrInvalidInput  = errors.New("invalid input")
	ErrFetch         = errors.New("review store unavailable")
	// ErrClassifierUnavailable is returned when no generative-language key is configured.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
)
