package entity

import "errors"

var (
	// ErrNotFound is returned when a link with the specified short code cannot be found.
	ErrNotFound = errors.New("url not found")
	// ErrConflict is returned when attempting to insert a link with a short code that already exists.
	ErrConflict = errors.New("short code exists")
	// ErrExhausted is returned when no free short code was found within the retry cap.
	ErrExhausted = errors.New("maximum retries exceeded for generating short code")
	// ErrUnauthorized is returned when a bearer credential is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller does not own the requested link.
	ErrForbidden = errors.New("forbidden")
	// ErrEnrichmentUnavailable is returned by lookup providers that failed to answer.
	// It never leaves the enrichment layer.
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")
)
