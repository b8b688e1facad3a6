package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Geocoding providers.
const (
	ProviderGoogle = "google"
	ProviderMapbox = "mapbox"
)

// Fallback policies applied when a location cannot be resolved.
const (
	FallbackEmit = "emit"
	FallbackSkip = "skip"
)

// Destination indices for derived device records.
const (
	TestDeviceIndex       = "test-identities"
	ProductionDeviceIndex = "ecosystem-identities"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	Env string

	ESAddresses []string
	ESUsername  string
	ESPassword  string

	SourceIndex          string
	SourceType           string
	EventMarker          string
	ResolvedCountryField string
	PageSize             int

	DeviceIndex string
	DeviceType  string

	GeocoderProvider  string
	GoogleMapsAPIKey  string
	MapboxToken       string
	GeocoderTimeout   time.Duration
	GeocodeDelay      time.Duration
	ResolutionFailure string

	KafkaBrokers     []string
	KafkaDeviceTopic string

	LogDir    string
	LogLevel  string
	LogFormat string

	HTTPAddr         string
	ScheduleInterval time.Duration
	RunTimeout       time.Duration
	RecordTimeout    time.Duration
	ShutdownTimeout  time.Duration
	PushgatewayURL   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	scheduleInterval, err := parsePositiveDuration("SCHEDULE_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	runTimeout, err := parsePositiveDuration("RUN_TIMEOUT", "10m")
	if err != nil {
		return nil, err
	}
	recordTimeout, err := parsePositiveDuration("RECORD_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	geocodeDelay, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODE_DELAY", "200ms"))
	if err != nil || geocodeDelay < 0 {
		return nil, errors.New("invalid GEOCODE_DELAY")
	}

	pageSize, err := parsePageSize()
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	env := os.Getenv("ENV")

	cfg := &Config{
		Env: env,

		ESAddresses: parseAddresses(sharedcfg.EnvOrDefault("ES_HOST", "localhost:9200")),
		ESUsername:  os.Getenv("ES_USERNAME"),
		ESPassword:  os.Getenv("ES_PASSWORD"),

		SourceIndex:          sharedcfg.EnvOrDefault("SOURCE_INDEX", "ecosystem-*"),
		SourceType:           sharedcfg.EnvOrDefault("SOURCE_TYPE", "events_v1"),
		EventMarker:          sharedcfg.EnvOrDefault("EVENT_MARKER", "GE_GENIE_START"),
		ResolvedCountryField: sharedcfg.EnvOrDefault("RESOLVED_COUNTRY_FIELD", "edata.eks.country"),
		PageSize:             pageSize,

		DeviceIndex: DeviceIndexFor(env),
		DeviceType:  sharedcfg.EnvOrDefault("DEVICE_TYPE", "devices_v1"),

		GeocoderProvider:  strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderGoogle)),
		GoogleMapsAPIKey:  os.Getenv("GOOGLE_MAPS_API_KEY"),
		MapboxToken:       os.Getenv("MAPBOX_TOKEN"),
		GeocoderTimeout:   geocoderTimeout,
		GeocodeDelay:      geocodeDelay,
		ResolutionFailure: strings.ToLower(sharedcfg.EnvOrDefault("DEVICE_ON_RESOLUTION_FAILURE", FallbackEmit)),

		KafkaBrokers:     brokers,
		KafkaDeviceTopic: sharedcfg.EnvOrDefault("KAFKA_DEVICE_TOPIC", "device-identities"),

		LogDir:    os.Getenv("EP_LOG_DIR"),
		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),

		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ScheduleInterval: scheduleInterval,
		RunTimeout:       runTimeout,
		RecordTimeout:    recordTimeout,
		ShutdownTimeout:  shutdownTimeout,
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DeviceIndexFor selects the device destination index for a deployment
// environment.
func DeviceIndexFor(env string) string {
	if env == "test" {
		return TestDeviceIndex
	}
	return ProductionDeviceIndex
}

// EmitOnResolutionFailure reports whether a device record is written when the
// location could not be resolved.
func (c *Config) EmitOnResolutionFailure() bool {
	return c.ResolutionFailure == FallbackEmit
}

// KafkaEnabled reports whether device records are mirrored to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) validate() error {
	if len(c.ESAddresses) == 0 {
		return errors.New("ES_HOST is required")
	}
	if c.SourceIndex == "" {
		return errors.New("SOURCE_INDEX is required")
	}
	if c.EventMarker == "" {
		return errors.New("EVENT_MARKER is required")
	}
	if c.ResolvedCountryField == "" {
		return errors.New("RESOLVED_COUNTRY_FIELD is required")
	}

	switch c.GeocoderProvider {
	case ProviderGoogle:
		if c.GoogleMapsAPIKey == "" {
			return errors.New("GOOGLE_MAPS_API_KEY is required when GEOCODER_PROVIDER=google")
		}
	case ProviderMapbox:
		if c.MapboxToken == "" {
			return errors.New("MAPBOX_TOKEN is required when GEOCODER_PROVIDER=mapbox")
		}
	default:
		return fmt.Errorf("invalid GEOCODER_PROVIDER %q", c.GeocoderProvider)
	}

	switch c.ResolutionFailure {
	case FallbackEmit, FallbackSkip:
	default:
		return fmt.Errorf("invalid DEVICE_ON_RESOLUTION_FAILURE %q", c.ResolutionFailure)
	}

	if c.KafkaEnabled() && c.KafkaDeviceTopic == "" {
		return errors.New("KAFKA_DEVICE_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePageSize() (int, error) {
	s := sharedcfg.EnvOrDefault("PAGE_SIZE", "1000")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 10000 {
		return 0, errors.New("invalid PAGE_SIZE: must be between 1 and 10000")
	}
	return n, nil
}

// parseAddresses splits a comma-separated host list and adds an http scheme
// where none is given.
func parseAddresses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		host := strings.TrimSpace(part)
		if host == "" {
			continue
		}
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		out = append(out, host)
	}
	return out
}
