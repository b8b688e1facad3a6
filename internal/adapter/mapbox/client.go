package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/geo-reverse-search/internal/domain"
	"github.com/couchcryptid/geo-reverse-search/internal/observability"
)

const (
	providerName   = "mapbox"
	defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	resultLimit    = "5"
)

// nativeTypePrefix marks Mapbox's own feature types so they never collide
// with the mapped component types ("locality" exists in both vocabularies).
const nativeTypePrefix = "mapbox:"

// componentTypes maps Mapbox feature types onto the address component types
// used by the resolver.
var componentTypes = map[string]string{
	"place":    "locality",
	"locality": "sublocality",
	"district": "administrative_area_level_2",
	"region":   "administrative_area_level_1",
	"country":  "country",
}

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Search geocodes a free-text location. A "lat,lng" query is reverse geocoded.
func (c *Client) Search(ctx context.Context, query string) ([]domain.GeocodeCandidate, error) {
	params := url.Values{"access_token": {c.token}}

	var u string
	if lat, lon, ok := domain.ParseCoordinates(query); ok {
		// Mapbox uses lon,lat order.
		u = fmt.Sprintf("%s/%s,%s.json", c.baseURL, formatCoord(lon), formatCoord(lat))
	} else {
		u = fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
		params.Set("limit", resultLimit)
	}

	start := time.Now()
	candidates, err := c.doRequest(ctx, u+"?"+params.Encode())
	c.metrics.ObserveGeocode(providerName, start, len(candidates), err)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("geocoded", "provider", providerName, "query", query, "candidates", len(candidates))
	return candidates, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.GeocodeCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &domain.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("mapbox API error: %s", body),
		}
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("decode response: %w", err)}
	}

	out := make([]domain.GeocodeCandidate, 0, len(mapboxResp.Features))
	for _, f := range mapboxResp.Features {
		out = append(out, f.candidate())
	}
	return out, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID        string        `json:"id"` // "<type>.<n>"
	PlaceType []string      `json:"place_type"`
	PlaceName string        `json:"place_name"`
	Text      string        `json:"text"`
	ShortCode string        `json:"short_code"`
	Context   []contextItem `json:"context"`
}

type contextItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	ShortCode string `json:"short_code"`
}

// candidate flattens a feature and its context hierarchy into address
// components, most specific first.
func (f feature) candidate() domain.GeocodeCandidate {
	cand := domain.GeocodeCandidate{FormattedAddress: f.PlaceName}

	selfTypes := f.PlaceType
	if len(selfTypes) == 0 {
		selfTypes = []string{featureType(f.ID)}
	}
	cand.Components = append(cand.Components, component(f.Text, f.ShortCode, selfTypes...))

	for _, ci := range f.Context {
		cand.Components = append(cand.Components, component(ci.Text, ci.ShortCode, featureType(ci.ID)))
	}
	return cand
}

func component(text, shortCode string, mapboxTypes ...string) domain.AddressComponent {
	short := shortCode
	if short == "" {
		short = text
	}
	var types []string
	for _, t := range mapboxTypes {
		if mapped, ok := componentTypes[t]; ok {
			types = append(types, mapped)
		}
		types = append(types, nativeTypePrefix+t)
	}
	return domain.AddressComponent{LongName: text, ShortName: short, Types: types}
}

func featureType(id string) string {
	t, _, _ := strings.Cut(id, ".")
	return t
}
