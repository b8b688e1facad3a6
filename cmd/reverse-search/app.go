package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/geo-reverse-search/internal/adapter/elasticsearch"
	"github.com/couchcryptid/geo-reverse-search/internal/adapter/google"
	kafkaadapter "github.com/couchcryptid/geo-reverse-search/internal/adapter/kafka"
	"github.com/couchcryptid/geo-reverse-search/internal/adapter/mapbox"
	"github.com/couchcryptid/geo-reverse-search/internal/config"
	"github.com/couchcryptid/geo-reverse-search/internal/domain"
	"github.com/couchcryptid/geo-reverse-search/internal/observability"
	"github.com/couchcryptid/geo-reverse-search/internal/pipeline"
)

// app holds the collaborators shared by all subcommands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	metrics   *observability.Metrics
	es        *elasticsearch.Client
	writer    *kafkaadapter.Writer
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := observability.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	es, err := elasticsearch.NewClient(cfg, logger)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		logCloser: logCloser,
		metrics:   observability.NewMetrics(),
		es:        es,
	}
	if cfg.KafkaEnabled() {
		a.writer = kafkaadapter.NewWriter(cfg, logger)
		logger.Info("device mirror enabled", "topic", cfg.KafkaDeviceTopic, "brokers", cfg.KafkaBrokers)
	}
	return a, nil
}

func (a *app) newJob() *pipeline.Job {
	lookup := domain.NewLocationLookup(
		newGeocoder(a.cfg, a.metrics, a.logger),
		domain.NewAddressResolver(domain.DefaultComponentMapping()),
		a.cfg.GeocodeDelay,
		nil,
	)

	job := pipeline.NewJob(a.es, a.es, a.es, lookup, a.logger, a.metrics, pipeline.Options{
		SourceIndex:             a.cfg.SourceIndex,
		PageSize:                a.cfg.PageSize,
		EmitOnResolutionFailure: a.cfg.EmitOnResolutionFailure(),
		RecordTimeout:           a.cfg.RecordTimeout,
	})
	if a.writer != nil {
		job.WithPublisher(a.writer)
	}
	return job
}

func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	if cfg.GeocoderProvider == config.ProviderMapbox {
		logger.Info("geocoding with mapbox", "timeout", cfg.GeocoderTimeout)
		return mapbox.NewClient(cfg.MapboxToken, cfg.GeocoderTimeout, metrics, logger)
	}
	logger.Info("geocoding with google", "timeout", cfg.GeocoderTimeout)
	return google.NewClient(cfg.GoogleMapsAPIKey, cfg.GeocoderTimeout, metrics, logger)
}

func (a *app) Close() {
	if a.writer != nil {
		if err := a.writer.Close(); err != nil {
			a.logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := a.logCloser.Close(); err != nil {
		a.logger.Error("log file close error", "error", err)
	}
}
