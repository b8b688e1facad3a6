package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/geo-reverse-search/internal/domain"
	"github.com/couchcryptid/geo-reverse-search/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func mountainViewFeature() feature {
	return feature{
		ID:        "address.123",
		PlaceType: []string{"address"},
		PlaceName: "1600 Amphitheatre Parkway, Mountain View, California 94043, United States",
		Text:      "Amphitheatre Parkway",
		Context: []contextItem{
			{ID: "postcode.1", Text: "94043"},
			{ID: "place.2", Text: "Mountain View"},
			{ID: "district.3", Text: "Santa Clara County"},
			{ID: "region.4", Text: "California", ShortCode: "US-CA"},
			{ID: "country.5", Text: "United States", ShortCode: "us"},
		},
	}
}

func TestClient_Search_Forward(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1600 Amphitheatre Pkwy.json", r.URL.Path)
		assert.Equal(t, resultLimit, r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{mountainViewFeature()}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	got, err := c.Search(context.Background(), "1600 Amphitheatre Pkwy")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1600 Amphitheatre Parkway, Mountain View, California 94043, United States", got[0].FormattedAddress)

	wantRegion := domain.AddressComponent{
		LongName:  "California",
		ShortName: "US-CA",
		Types:     []string{"administrative_area_level_1", "mapbox:region"},
	}
	if diff := cmp.Diff(wantRegion, got[0].Components[4]); diff != "" {
		t.Errorf("region component mismatch (-want +got):\n%s", diff)
	}

	addr, err := domain.NewAddressResolver(domain.DefaultComponentMapping()).Resolve(got)
	require.NoError(t, err)
	assert.Equal(t, "Mountain View", *addr.Locality)
	assert.Equal(t, "Santa Clara County", *addr.District)
	assert.Equal(t, "California", *addr.State)
	assert.Equal(t, "United States", *addr.Country)

	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(providerName, observability.GeocodeSuccess)), 0)
}

func TestClient_Search_Reverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/-97.743100,30.267200.json", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("limit"))

		resp := response{Features: []feature{{
			ID:        "place.9",
			PlaceType: []string{"place"},
			PlaceName: "Austin, Texas, United States",
			Text:      "Austin",
			Context: []contextItem{
				{ID: "region.1", Text: "Texas", ShortCode: "US-TX"},
				{ID: "country.2", Text: "United States", ShortCode: "us"},
			},
		}}}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Search(context.Background(), "30.2672,-97.7431")
	require.NoError(t, err)
	require.Len(t, got, 1)

	addr, err := domain.NewAddressResolver(domain.DefaultComponentMapping()).Resolve(got)
	require.NoError(t, err)
	assert.Equal(t, "Austin", *addr.Locality)
	assert.Nil(t, addr.District)
	assert.Equal(t, "Texas", *addr.State)
}

func TestClient_Search_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	got, err := c.Search(context.Background(), "NONEXISTENT")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(providerName, observability.GeocodeEmpty)), 0)
}

func TestClient_Search_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.token = "bad-token"

	_, err := c.Search(context.Background(), "AUSTIN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, providerName, pe.Provider)
	assert.False(t, domain.IsRateLimited(err))
}

func TestClient_Search_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Search(context.Background(), "AUSTIN")
	assert.True(t, domain.IsRateLimited(err))
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(providerName, observability.GeocodeRateLimited)), 0)
}

func TestClient_Search_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Search(context.Background(), "AUSTIN")
	require.Error(t, err)
}

func TestFeature_Candidate_FallsBackToIDType(t *testing.T) {
	f := feature{ID: "country.8", Text: "India", ShortCode: "in"}

	got := f.candidate()
	want := domain.GeocodeCandidate{Components: []domain.AddressComponent{
		{LongName: "India", ShortName: "in", Types: []string{"country", "mapbox:country"}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidate mismatch (-want +got):\n%s", diff)
	}
}

func TestFeature_Candidate_PlaceWinsLocalityOverMapboxLocality(t *testing.T) {
	f := feature{
		ID:        "address.1",
		PlaceType: []string{"address"},
		Text:      "Bedford Avenue",
		Context: []contextItem{
			{ID: "neighborhood.1", Text: "North Side"},
			{ID: "locality.2", Text: "Williamsburg"},
			{ID: "place.3", Text: "New York"},
			{ID: "region.4", Text: "New York", ShortCode: "US-NY"},
			{ID: "country.5", Text: "United States", ShortCode: "us"},
		},
	}

	cand := f.candidate()
	assert.Equal(t, []string{"sublocality", "mapbox:locality"}, cand.Components[2].Types)

	addr, err := domain.NewAddressResolver(domain.DefaultComponentMapping()).Resolve([]domain.GeocodeCandidate{cand})
	require.NoError(t, err)
	require.NotNil(t, addr.Locality)
	assert.Equal(t, "New York", *addr.Locality)
	assert.Nil(t, addr.District)
}
