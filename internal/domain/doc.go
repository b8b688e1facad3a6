// Package domain models the geographic identity enrichment of telemetry events.
//
// # Records
//
// Source events are GE_GENIE_START telemetry documents stored in the
// ecosystem-* indices. The fields the job reads are:
//
//	eid              event marker, must equal the configured sentinel
//	did              device identifier
//	ts, @timestamp   capture time and ingest time, copied verbatim
//	edata.eks.loc    raw location: free text ("1600 Amphitheatre Pkwy") or "lat,lng"
//	edata.eks.dspec  device specification blob, copied verbatim
//
// # Resolution
//
// A raw location is sent to a geocoding provider which returns an ordered list
// of candidates. Each candidate carries address components tagged with
// Google-style semantic types. [AddressResolver] runs four independent scans,
// one per tier:
//
//	locality  → "locality"
//	district  → "administrative_area_level_2"
//	state     → "administrative_area_level_1"
//	country   → "country"
//
// For each tier the first candidate (in provider order) holding a component of
// the mapped type wins, and the first such component's long name is used. A
// tier without a match is absent. Resolution fails only when all four tiers are
// absent ([ErrResolutionFailed]); partial results are valid.
//
// # Output
//
// A resolved address is written back onto edata.eks of the source document and
// a [DeviceRecord] is indexed into the identities index:
//
//	{ts, "@timestamp", did, loc, ldata: {locality, district, state, country}, dspec}
package domain
