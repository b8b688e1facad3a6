package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/geo-reverse-search/internal/domain"
	"github.com/couchcryptid/geo-reverse-search/internal/observability"
)

const (
	providerName   = "google"
	defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"
)

// Response statuses.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// Client implements domain.Geocoder using the Google Geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Google geocoding client.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Search geocodes a free-text address. A "lat,lng" query is reverse geocoded.
func (c *Client) Search(ctx context.Context, query string) ([]domain.GeocodeCandidate, error) {
	params := url.Values{"key": {c.apiKey}}
	if lat, lon, ok := domain.ParseCoordinates(query); ok {
		params.Set("latlng", formatCoord(lat)+","+formatCoord(lon))
	} else {
		params.Set("address", query)
	}

	start := time.Now()
	candidates, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
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
			Err:        errors.New(string(body)),
		}
	}

	var gr response
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("decode response: %w", err)}
	}

	switch gr.Status {
	case statusOK:
		return gr.candidates(), nil
	case statusZeroResults:
		return nil, nil
	default:
		pe := &domain.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Status: gr.Status}
		if gr.ErrorMessage != "" {
			pe.Err = errors.New(gr.ErrorMessage)
		}
		return nil, pe
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Google API response types.

type response struct {
	Results      []result `json:"results"`
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
}

type result struct {
	FormattedAddress  string      `json:"formatted_address"`
	AddressComponents []component `json:"address_components"`
}

type component struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

func (r response) candidates() []domain.GeocodeCandidate {
	out := make([]domain.GeocodeCandidate, 0, len(r.Results))
	for _, res := range r.Results {
		cand := domain.GeocodeCandidate{FormattedAddress: res.FormattedAddress}
		for _, comp := range res.AddressComponents {
			cand.Components = append(cand.Components, domain.AddressComponent{
				LongName:  comp.LongName,
				ShortName: comp.ShortName,
				Types:     comp.Types,
			})
		}
		out = append(out, cand)
	}
	return out
}
