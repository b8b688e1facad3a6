package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/geo-reverse-search/internal/config"
	"github.com/couchcryptid/geo-reverse-search/internal/domain"
	es "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/google/uuid"
)

// Client reads unresolved events from and writes enrichment results to
// Elasticsearch. It implements pipeline.EventSource, pipeline.EventUpdater and
// pipeline.DeviceLoader.
type Client struct {
	es     *es.Client
	logger *slog.Logger

	sourceIndex          string
	sourceType           string
	eventMarker          string
	resolvedCountryField string

	deviceIndex string
	deviceType  string

	newID func() string
}

// NewClient creates an Elasticsearch client for the configured cluster, source
// and device indices.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	esClient, err := es.NewClient(es.Config{
		Addresses: cfg.ESAddresses,
		Username:  cfg.ESUsername,
		Password:  cfg.ESPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Client{
		es:                   esClient,
		logger:               logger,
		sourceIndex:          cfg.SourceIndex,
		sourceType:           cfg.SourceType,
		eventMarker:          cfg.EventMarker,
		resolvedCountryField: cfg.ResolvedCountryField,
		deviceIndex:          cfg.DeviceIndex,
		deviceType:           cfg.DeviceType,
		newID:                uuid.NewString,
	}, nil
}

// FetchUnresolved returns up to size marker events whose resolved country
// field is missing or null. Only one page is read.
func (c *Client) FetchUnresolved(ctx context.Context, size int) ([]domain.RawEvent, error) {
	body, err := json.Marshal(unresolvedQuery(c.eventMarker, c.resolvedCountryField))
	if err != nil {
		return nil, &domain.FetchError{Index: c.sourceIndex, Err: err}
	}

	req := esapi.SearchRequest{
		Index:        []string{c.sourceIndex},
		DocumentType: optionalTypes(c.sourceType),
		Body:         bytes.NewReader(body),
		Size:         &size,
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, &domain.FetchError{Index: c.sourceIndex, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, &domain.FetchError{Index: c.sourceIndex, Err: responseError(res)}
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, &domain.FetchError{Index: c.sourceIndex, Err: fmt.Errorf("decode search response: %w", err)}
	}

	events := make([]domain.RawEvent, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		ev := h.toRawEvent(c.sourceType)
		if ev.DecodeErr != nil {
			c.logger.Warn("malformed hit", "index", h.Index, "doc_id", h.ID, "error", ev.DecodeErr)
		}
		events = append(events, ev)
	}
	return events, nil
}

// UpdateLocation sets the resolved tiers on edata.eks of the source document
// with a partial update. Absent tiers are left untouched.
func (c *Client) UpdateLocation(ctx context.Context, ref domain.DocumentRef, addr domain.ResolvedAddress) error {
	body, err := json.Marshal(locationUpdate(addr))
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}

	req := esapi.UpdateRequest{
		Index:        ref.Index,
		DocumentType: typeless(ref.Type),
		DocumentID:   ref.ID,
		Body:         bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", ref.Index, ref.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("update %s/%s: %w", ref.Index, ref.ID, responseError(res))
	}
	c.logger.Debug("event updated", "index", ref.Index, "doc_id", ref.ID, "result", readResult(res.Body))
	return nil
}

// LoadDevice indexes a device record into the device index under a fresh id.
func (c *Client) LoadDevice(ctx context.Context, rec domain.DeviceRecord) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode device record: %w", err)
	}

	id := c.newID()
	if err := c.index(ctx, c.deviceIndex, c.deviceType, id, body); err != nil {
		return "", err
	}
	return id, nil
}

// IndexEvent stores a raw event document, used to seed development clusters.
func (c *Client) IndexEvent(ctx context.Context, index string, doc json.RawMessage) (string, error) {
	id := c.newID()
	if err := c.index(ctx, index, c.sourceType, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Refresh makes recent writes to index visible to search.
func (c *Client) Refresh(ctx context.Context, index string) error {
	req := esapi.IndicesRefreshRequest{Index: []string{index}}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("refresh %s: %w", index, responseError(res))
	}
	return nil
}

func (c *Client) index(ctx context.Context, index, docType, id string, body []byte) error {
	req := esapi.IndexRequest{
		Index:        index,
		DocumentType: typeless(docType),
		DocumentID:   id,
		Body:         bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index into %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index into %s: %w", index, responseError(res))
	}
	return nil
}

// typeless drops the implicit "_doc" type so requests use typeless endpoints.
func typeless(docType string) string {
	if docType == "_doc" {
		return ""
	}
	return docType
}

func optionalTypes(docType string) []string {
	if t := typeless(docType); t != "" {
		return []string{t}
	}
	return nil
}

func responseError(res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("elasticsearch error: status %d: %s", res.StatusCode, bytes.TrimSpace(body))
}

func readResult(r io.Reader) string {
	var ack struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(r).Decode(&ack); err != nil {
		return ""
	}
	return ack.Result
}
