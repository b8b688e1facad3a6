package elasticsearch

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/geo-reverse-search/internal/domain"
)

// unresolvedQuery selects marker events whose resolved country field is
// missing or null.
func unresolvedQuery(marker, countryField string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"eid": marker}},
				},
				"must_not": []any{
					map[string]any{"exists": map[string]any{"field": countryField}},
				},
			},
		},
	}
}

// locationUpdate is the partial document written onto a resolved event.
func locationUpdate(addr domain.ResolvedAddress) map[string]any {
	return map[string]any{
		"doc": map[string]any{
			"edata": map[string]any{
				"eks": addr.Fields(),
			},
		},
	}
}

// Search response types.

type searchResponse struct {
	Hits struct {
		Hits []hit `json:"hits"`
	} `json:"hits"`
}

type hit struct {
	Index  string          `json:"_index"`
	Type   string          `json:"_type"`
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

type eventSource struct {
	TS        json.RawMessage `json:"ts"`
	Timestamp json.RawMessage `json:"@timestamp"`
	DID       string          `json:"did"`
	EData     struct {
		EKS struct {
			Loc   string          `json:"loc"`
			DSpec json.RawMessage `json:"dspec"`
		} `json:"eks"`
	} `json:"edata"`
}

// toRawEvent maps one hit. A source that does not fit the event shape sets
// DecodeErr instead of failing the page.
func (h hit) toRawEvent(defaultType string) domain.RawEvent {
	docType := h.Type
	if docType == "" {
		docType = defaultType
	}
	ev := domain.RawEvent{Ref: domain.DocumentRef{Index: h.Index, Type: docType, ID: h.ID}}

	var src eventSource
	if err := json.Unmarshal(h.Source, &src); err != nil {
		ev.DecodeErr = fmt.Errorf("decode source of %s/%s: %w", h.Index, h.ID, err)
		return ev
	}

	ev.Location = src.EData.EKS.Loc
	ev.TS = src.TS
	ev.Timestamp = src.Timestamp
	ev.DeviceID = src.DID
	ev.DeviceSpec = src.EData.EKS.DSpec
	return ev
}
