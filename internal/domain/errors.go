package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingLocation marks an event without a raw location. Such events
	// are skipped without writes.
	ErrMissingLocation = errors.New("event has no raw location")

	// ErrResolutionFailed is returned when no address tier could be resolved
	// from the provider's candidates.
	ErrResolutionFailed = errors.New("location not resolved: no address component matched")
)

// ProviderError is a failed call to the geocoding provider.
type ProviderError struct {
	Provider   string
	Status     string // provider status, e.g. OVER_QUERY_LIMIT
	StatusCode int    // HTTP status, 0 when the request never completed
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Provider + " geocoding failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Status != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a provider throttling response.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.StatusCode == http.StatusTooManyRequests || pe.Status == "OVER_QUERY_LIMIT"
}

// FetchError is a failed query for unresolved events. It aborts the run.
type FetchError struct {
	Index string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch unresolved events from %s: %v", e.Index, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
