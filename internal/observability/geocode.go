package observability

import (
	"time"

	"github.com/couchcryptid/geo-reverse-search/internal/domain"
)

// Geocode request outcomes.
const (
	GeocodeSuccess     = "success"
	GeocodeEmpty       = "empty"
	GeocodeError       = "error"
	GeocodeRateLimited = "rate_limited"
)

// GeocodeOutcome classifies a provider call for the request counter.
func GeocodeOutcome(candidates int, err error) string {
	switch {
	case domain.IsRateLimited(err):
		return GeocodeRateLimited
	case err != nil:
		return GeocodeError
	case candidates == 0:
		return GeocodeEmpty
	default:
		return GeocodeSuccess
	}
}

// ObserveGeocode records duration and outcome of one provider call.
func (m *Metrics) ObserveGeocode(provider string, start time.Time, candidates int, err error) {
	m.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	m.GeocodeRequests.WithLabelValues(provider, GeocodeOutcome(candidates, err)).Inc()
}
