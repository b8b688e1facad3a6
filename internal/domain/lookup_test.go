package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	candidates []GeocodeCandidate
	err        error
	queries    []string
	calledAt   []time.Time
	clock      clockwork.Clock
}

func (m *mockGeocoder) Search(_ context.Context, query string) ([]GeocodeCandidate, error) {
	m.queries = append(m.queries, query)
	if m.clock != nil {
		m.calledAt = append(m.calledAt, m.clock.Now())
	}
	return m.candidates, m.err
}

func mountainView() []GeocodeCandidate {
	return []GeocodeCandidate{{
		Components: []AddressComponent{
			component("Mountain View", "locality"),
			component("California", "administrative_area_level_1"),
			component("United States", "country"),
		},
	}}
}

// --- tests ---

func TestLookup_WaitsBeforeCallingProvider(t *testing.T) {
	fc := clockwork.NewFakeClock()
	start := fc.Now()
	geo := &mockGeocoder{candidates: mountainView(), clock: fc}
	lookup := NewLocationLookup(geo, newTestResolver(), 200*time.Millisecond, fc)

	done := make(chan error, 1)
	go func() {
		_, err := lookup.Lookup(context.Background(), "1600 Amphitheatre Pkwy")
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))

	select {
	case <-done:
		t.Fatal("lookup returned before the delay elapsed")
	default:
	}

	fc.Advance(200 * time.Millisecond)
	require.NoError(t, <-done)

	require.Len(t, geo.calledAt, 1)
	assert.Equal(t, 200*time.Millisecond, geo.calledAt[0].Sub(start))
}

func TestLookup_DelayAppliesOnProviderError(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("connection refused")}
	lookup := NewLocationLookup(geo, newTestResolver(), 30*time.Millisecond, clockwork.NewRealClock())

	start := time.Now()
	_, err := lookup.Lookup(context.Background(), "somewhere")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "geocoder", pe.Provider)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLookup_KeepsProviderErrorFromAdapter(t *testing.T) {
	geo := &mockGeocoder{err: &ProviderError{Provider: "google", Status: "OVER_QUERY_LIMIT"}}
	lookup := NewLocationLookup(geo, newTestResolver(), 0, nil)

	_, err := lookup.Lookup(context.Background(), "somewhere")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "google", pe.Provider)
	assert.True(t, IsRateLimited(err))
}

func TestLookup_NoCachingOfDuplicates(t *testing.T) {
	geo := &mockGeocoder{candidates: mountainView()}
	lookup := NewLocationLookup(geo, newTestResolver(), 0, nil)

	for range 3 {
		_, err := lookup.Lookup(context.Background(), "Mountain View")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Mountain View", "Mountain View", "Mountain View"}, geo.queries)
}

func TestLocate_Resolves(t *testing.T) {
	geo := &mockGeocoder{candidates: mountainView()}
	lookup := NewLocationLookup(geo, newTestResolver(), 0, nil)

	addr, err := lookup.Locate(context.Background(), "1600 Amphitheatre Pkwy")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"locality": "Mountain View",
		"state":    "California",
		"country":  "United States",
	}, addr.Fields())
}

func TestLocate_EmptyProviderResultFails(t *testing.T) {
	geo := &mockGeocoder{}
	lookup := NewLocationLookup(geo, newTestResolver(), 0, nil)

	_, err := lookup.Locate(context.Background(), "nowhere")
	require.ErrorIs(t, err, ErrResolutionFailed)
}
