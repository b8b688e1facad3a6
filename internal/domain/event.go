package domain

import "encoding/json"

// DocumentRef identifies a document in the search index.
type DocumentRef struct {
	Index string
	Type  string
	ID    string
}

// RawEvent is the typed view of one search hit selected for enrichment.
// It is a read-only snapshot for the duration of a run.
type RawEvent struct {
	Ref DocumentRef

	Location   string          // edata.eks.loc; empty when absent
	TS         json.RawMessage // ts, copied verbatim
	Timestamp  json.RawMessage // @timestamp, copied verbatim
	DeviceID   string          // did
	DeviceSpec json.RawMessage // edata.eks.dspec, copied verbatim

	// DecodeErr is set when the hit's source could not be mapped. Only Ref
	// is meaningful then.
	DecodeErr error
}

// HasLocation reports whether the event carries a raw location to resolve.
func (e RawEvent) HasLocation() bool {
	return e.Location != ""
}

// DeviceRecord is the derived document summarizing one enrichment outcome.
// LData is nil when resolution failed and the fallback record was emitted.
type DeviceRecord struct {
	TS         json.RawMessage  `json:"ts"`
	Timestamp  json.RawMessage  `json:"@timestamp"`
	DeviceID   string           `json:"did"`
	Location   string           `json:"loc"`
	LData      *ResolvedAddress `json:"ldata"`
	DeviceSpec json.RawMessage  `json:"dspec"`
}

// NewDeviceRecord derives a device record from a source event and its
// resolved address. Pass nil for addr on the fallback path.
func NewDeviceRecord(e RawEvent, addr *ResolvedAddress) DeviceRecord {
	return DeviceRecord{
		TS:         nullIfEmpty(e.TS),
		Timestamp:  nullIfEmpty(e.Timestamp),
		DeviceID:   e.DeviceID,
		Location:   e.Location,
		LData:      addr,
		DeviceSpec: nullIfEmpty(e.DeviceSpec),
	}
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
