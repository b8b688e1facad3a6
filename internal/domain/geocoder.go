package domain

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// Geocoder turns a raw location into address candidates.
type Geocoder interface {
	// Search geocodes free text, or reverse geocodes a "lat,lng" string.
	// An empty result with a nil error means the provider found nothing.
	Search(ctx context.Context, query string) ([]GeocodeCandidate, error)
}

// ParseCoordinates recognizes a "lat,lng" raw location.
func ParseCoordinates(raw string) (lat, lon float64, ok bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}
