package domain

import "errors"

// Error taxonomy for API reads. NotFound and Unauthorized are permanent and
// surface immediately; Transport and RateLimited are transient and eligible
// for a single automatic retry. Callers check with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrTransport    = errors.New("transport failure")
)

// ErrInvalidSelection is returned when a navigation intent has no drillable
// target in the current view, e.g. drilling into a job detail. It is fatal
// to the call, never to the session.
var ErrInvalidSelection = errors.New("invalid selection")

// Transient reports whether err is worth retrying once.
func Transient(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrRateLimited)
}
