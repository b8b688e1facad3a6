package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/geo-reverse-search/internal/domain"
	"github.com/couchcryptid/geo-reverse-search/internal/observability"
	"github.com/jonboulle/clockwork"
)

// EventSource returns one page of events that still lack a resolved country.
type EventSource interface {
	FetchUnresolved(ctx context.Context, size int) ([]domain.RawEvent, error)
}

// EventUpdater writes resolved address fields back onto a source document.
type EventUpdater interface {
	UpdateLocation(ctx context.Context, ref domain.DocumentRef, addr domain.ResolvedAddress) error
}

// DeviceLoader writes a derived device record and returns its document id.
type DeviceLoader interface {
	LoadDevice(ctx context.Context, rec domain.DeviceRecord) (string, error)
}

// DevicePublisher mirrors written device records to a secondary sink.
type DevicePublisher interface {
	PublishDevice(ctx context.Context, rec domain.DeviceRecord) error
}

// Locator resolves a raw location into an address.
type Locator interface {
	Locate(ctx context.Context, raw string) (domain.ResolvedAddress, error)
}

// Options tunes a Job.
type Options struct {
	// SourceIndex names the queried index pattern in logs and fetch errors.
	SourceIndex string
	// PageSize bounds the single page fetched per run.
	PageSize int
	// EmitOnResolutionFailure writes a device record with no address when
	// the location cannot be resolved. When false the record is dropped.
	EmitOnResolutionFailure bool
	// RecordTimeout bounds the writes of one record, which outlive
	// cancellation of the run. Zero means no bound.
	RecordTimeout time.Duration
}

// Job is one enrichment run over the unresolved events: fetch a page, resolve
// each record's location, write it back and emit a device record. Records are
// processed sequentially and a failing record never aborts the run.
type Job struct {
	source    EventSource
	updater   EventUpdater
	loader    DeviceLoader
	locator   Locator
	publisher DevicePublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	opts      Options
}

// NewJob creates a Job with the given collaborators.
func NewJob(source EventSource, updater EventUpdater, loader DeviceLoader, locator Locator, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Job {
	return &Job{
		source:  source,
		updater: updater,
		loader:  loader,
		locator: locator,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
		opts:    opts,
	}
}

// WithPublisher mirrors every written device record to p.
func (j *Job) WithPublisher(p DevicePublisher) *Job {
	j.publisher = p
	return j
}

// WithClock replaces the time source used for run durations.
func (j *Job) WithClock(c clockwork.Clock) *Job {
	j.clock = c
	return j
}

// Run processes a single page of unresolved events. It returns a
// *domain.FetchError if the page cannot be fetched; per-record failures are
// logged and counted in the summary. Cancelling ctx stops the run before the
// next record; the record in flight completes its writes.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	start := j.clock.Now()
	j.metrics.JobRunning.Set(1)
	defer j.metrics.JobRunning.Set(0)

	j.logger.Info("reverse search started", "index", j.opts.SourceIndex, "page_size", j.opts.PageSize)

	events, err := j.source.FetchUnresolved(ctx, j.opts.PageSize)
	if err != nil {
		var fe *domain.FetchError
		if !errors.As(err, &fe) {
			err = &domain.FetchError{Index: j.opts.SourceIndex, Err: err}
		}
		j.metrics.Runs.WithLabelValues("aborted").Inc()
		j.logger.Error("reverse search aborted", "error", err)
		return Summary{}, err
	}

	j.metrics.HitsFetched.Set(float64(len(events)))
	j.logger.Info("found unresolved events", "hits", len(events))

	summary := Summary{Total: len(events)}
	for _, event := range events {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		outcome := j.processDetached(ctx, event)
		summary.add(outcome)
		j.metrics.Records.WithLabelValues(string(outcome)).Inc()
	}
	summary.Duration = j.clock.Since(start)

	j.metrics.RunDuration.Observe(summary.Duration.Seconds())
	if summary.Interrupted {
		j.metrics.Runs.WithLabelValues("interrupted").Inc()
		j.logger.Warn("reverse search interrupted", "reason", context.Cause(ctx), "summary", summary)
		return summary, nil
	}
	j.metrics.Runs.WithLabelValues("completed").Inc()
	j.metrics.LastRunSuccess.Set(float64(j.clock.Now().Unix()))
	j.logger.Info("reverse search finished", "summary", summary)
	return summary, nil
}

// processDetached runs one record on a context that ignores run cancellation
// but still carries the record deadline.
func (j *Job) processDetached(ctx context.Context, event domain.RawEvent) Outcome {
	recordCtx := context.WithoutCancel(ctx)
	if j.opts.RecordTimeout > 0 {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(recordCtx, j.opts.RecordTimeout)
		defer cancel()
	}
	return j.processRecord(recordCtx, event)
}

func (j *Job) processRecord(ctx context.Context, event domain.RawEvent) Outcome {
	log := j.logger.With("index", event.Ref.Index, "doc_id", event.Ref.ID)

	if event.DecodeErr != nil {
		log.Error("malformed event", "error", event.DecodeErr)
		return OutcomeFailed
	}

	if !event.HasLocation() {
		log.Debug("skipping event", "reason", domain.ErrMissingLocation)
		return OutcomeSkipped
	}

	log.Debug("resolving location", "loc", event.Location)
	addr, err := j.locator.Locate(ctx, event.Location)
	if err != nil {
		log.Warn("location not resolved", "loc", event.Location, "error", err)
		if !j.opts.EmitOnResolutionFailure {
			return OutcomeDropped
		}
		if !j.emitDevice(ctx, log, domain.NewDeviceRecord(event, nil)) {
			return OutcomeFailed
		}
		return OutcomeFallback
	}
	log.Debug("location resolved", "loc", event.Location, "ldata", addr.Fields())

	if err := j.updater.UpdateLocation(ctx, event.Ref, addr); err != nil {
		// The record stays unresolved and is selected again next run.
		log.Error("write-back failed", "loc", event.Location, "error", err)
		return OutcomeFailed
	}

	if !j.emitDevice(ctx, log, domain.NewDeviceRecord(event, &addr)) {
		return OutcomeFailed
	}
	return OutcomeEnriched
}

// emitDevice writes the device record and mirrors it when a publisher is set.
// Mirror failures do not fail the record.
func (j *Job) emitDevice(ctx context.Context, log *slog.Logger, rec domain.DeviceRecord) bool {
	id, err := j.loader.LoadDevice(ctx, rec)
	if err != nil {
		log.Error("device record write failed", "did", rec.DeviceID, "error", err)
		return false
	}
	log.Info("device record written", "did", rec.DeviceID, "device_doc_id", id, "resolved", rec.LData != nil)

	if j.publisher == nil {
		return true
	}
	if err := j.publisher.PublishDevice(ctx, rec); err != nil {
		j.metrics.DevicePublishErrors.Inc()
		log.Warn("device record mirror failed", "did", rec.DeviceID, "error", err)
		return true
	}
	j.metrics.DevicesPublished.Inc()
	return true
}
