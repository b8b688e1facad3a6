package domain

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultGeocodeDelay is the pause taken before every provider call.
const DefaultGeocodeDelay = 200 * time.Millisecond

// LocationLookup calls the geocoding provider at a bounded rate and resolves
// the result. Every call pays the delay: there is no caching and no batching,
// so duplicate locations in one run are geocoded again.
type LocationLookup struct {
	geocoder Geocoder
	resolver *AddressResolver
	delay    time.Duration
	clock    clockwork.Clock
}

// NewLocationLookup creates a lookup. A nil clock uses the real clock.
func NewLocationLookup(geocoder Geocoder, resolver *AddressResolver, delay time.Duration, clock clockwork.Clock) *LocationLookup {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LocationLookup{
		geocoder: geocoder,
		resolver: resolver,
		delay:    delay,
		clock:    clock,
	}
}

// Lookup waits for the configured delay and then geocodes raw. Provider
// failures are returned as *ProviderError.
func (l *LocationLookup) Lookup(ctx context.Context, raw string) ([]GeocodeCandidate, error) {
	if l.delay > 0 {
		l.clock.Sleep(l.delay)
	}

	candidates, err := l.geocoder.Search(ctx, raw)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &ProviderError{Provider: "geocoder", Err: err}
	}
	return candidates, nil
}

// Locate looks up raw and resolves the candidates into an address. It returns
// a *ProviderError or ErrResolutionFailed on failure.
func (l *LocationLookup) Locate(ctx context.Context, raw string) (ResolvedAddress, error) {
	candidates, err := l.Lookup(ctx, raw)
	if err != nil {
		return ResolvedAddress{}, err
	}
	return l.resolver.Resolve(candidates)
}
