package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/geo-reverse-search/internal/config"
	"github.com/couchcryptid/geo-reverse-search/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer mirrors device records to a Kafka topic.
// It implements pipeline.DevicePublisher.
type Writer struct {
	writer      *kafkago.Writer
	sourceIndex string
	logger      *slog.Logger
}

// NewWriter creates a Kafka producer for the configured device topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaDeviceTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, sourceIndex: cfg.SourceIndex, logger: logger}
}

// PublishDevice serializes a device record and publishes it keyed by device
// id, so records of one device stay on one partition.
func (w *Writer) PublishDevice(ctx context.Context, rec domain.DeviceRecord) error {
	msg, err := serializeToMessage(rec, w.sourceIndex)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish device %s: %w", rec.DeviceID, err)
	}
	return nil
}

// Close flushes pending messages and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a DeviceRecord into a Kafka message.
func serializeToMessage(rec domain.DeviceRecord, sourceIndex string) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize device record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.DeviceID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "ldata_resolved", Value: []byte(strconv.FormatBool(rec.LData != nil))},
			{Key: "source_index", Value: []byte(sourceIndex)},
		},
	}, nil
}
