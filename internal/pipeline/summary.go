package pipeline

import (
	"log/slog"
	"time"
)

// Outcome is the result of processing one event.
type Outcome string

const (
	// OutcomeEnriched: address written back and device record emitted.
	OutcomeEnriched Outcome = "enriched"
	// OutcomeSkipped: event had no raw location; nothing written.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFallback: location unresolved, device record emitted without address.
	OutcomeFallback Outcome = "fallback"
	// OutcomeDropped: location unresolved and fallback emission disabled.
	OutcomeDropped Outcome = "dropped"
	// OutcomeFailed: a write to the search index failed.
	OutcomeFailed Outcome = "failed"
)

// Summary reports what a run did with its page of events.
type Summary struct {
	Total             int
	Enriched          int
	SkippedNoLocation int
	Fallback          int
	Dropped           int
	Failed            int
	Interrupted       bool
	Duration          time.Duration
}

// Processed returns the number of events that reached an outcome.
func (s Summary) Processed() int {
	return s.Enriched + s.SkippedNoLocation + s.Fallback + s.Dropped + s.Failed
}

func (s *Summary) add(o Outcome) {
	switch o {
	case OutcomeEnriched:
		s.Enriched++
	case OutcomeSkipped:
		s.SkippedNoLocation++
	case OutcomeFallback:
		s.Fallback++
	case OutcomeDropped:
		s.Dropped++
	case OutcomeFailed:
		s.Failed++
	}
}

// LogValue implements slog.LogValuer.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("total", s.Total),
		slog.Int("enriched", s.Enriched),
		slog.Int("skipped_no_location", s.SkippedNoLocation),
		slog.Int("fallback", s.Fallback),
		slog.Int("dropped", s.Dropped),
		slog.Int("failed", s.Failed),
		slog.Bool("interrupted", s.Interrupted),
		slog.Duration("duration", s.Duration),
	)
}
