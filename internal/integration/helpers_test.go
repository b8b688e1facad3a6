//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/geo-reverse-search/internal/domain"
	es "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcelastic "github.com/testcontainers/testcontainers-go/modules/elasticsearch"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	elasticImage = "docker.elastic.co/elasticsearch/elasticsearch:7.17.10"
	kafkaImage   = "confluentinc/confluent-local:7.5.0"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startElasticsearch runs a single-node 7.x cluster and returns its address.
func startElasticsearch(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tcelastic.Run(ctx, elasticImage)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start elasticsearch container")
	return ctr.Settings.Address
}

// startKafka runs a single KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("reverse-search-it"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// rawClient is used to inspect documents independently of the adapter.
func rawClient(t *testing.T, addr string) *es.Client {
	t.Helper()
	c, err := es.NewClient(es.Config{Addresses: []string{addr}})
	require.NoError(t, err)
	return c
}

func getSource(ctx context.Context, t *testing.T, c *es.Client, index, docType, id string) map[string]any {
	t.Helper()
	res, err := esapi.GetRequest{Index: index, DocumentType: docType, DocumentID: id}.Do(ctx, c)
	require.NoError(t, err)
	defer res.Body.Close()
	require.False(t, res.IsError(), res.String())

	var doc struct {
		Source map[string]any `json:"_source"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&doc))
	return doc.Source
}

func searchAll(ctx context.Context, t *testing.T, c *es.Client, index string) []map[string]any {
	t.Helper()
	res, err := esapi.SearchRequest{Index: []string{index}}.Do(ctx, c)
	require.NoError(t, err)
	defer res.Body.Close()
	require.False(t, res.IsError(), res.String())

	var sr struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&sr))

	out := make([]map[string]any, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		out = append(out, h.Source)
	}
	return out
}

// fakeGeocoder answers from a fixed table keyed by query.
type fakeGeocoder map[string][]domain.GeocodeCandidate

func (f fakeGeocoder) Search(_ context.Context, query string) ([]domain.GeocodeCandidate, error) {
	return f[query], nil
}

func mountainViewCandidates() []domain.GeocodeCandidate {
	return []domain.GeocodeCandidate{{
		FormattedAddress: "1600 Amphitheatre Pkwy, Mountain View, CA 94043, USA",
		Components: []domain.AddressComponent{
			{LongName: "Mountain View", ShortName: "Mountain View", Types: []string{"locality", "political"}},
			{LongName: "Santa Clara County", ShortName: "Santa Clara County", Types: []string{"administrative_area_level_2", "political"}},
			{LongName: "California", ShortName: "CA", Types: []string{"administrative_area_level_1", "political"}},
			{LongName: "United States", ShortName: "US", Types: []string{"country", "political"}},
		},
	}}
}
