package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/citation-lookup-service/internal/config"
	"github.com/helixir/citation-lookup-service/internal/domain"
	"github.com/helixir/citation-lookup-service/internal/observability"
)

// Kafka message header keys.
const (
	HeaderEventType = "event_type"
	HeaderRequestID = "request_id"
)

// MessageWriter is the subset of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a writer for the lookup events topic. Messages are
// keyed by lookup ID, so the hash balancer keeps one lookup on one partition.
func NewKafkaWriter(cfg config.KafkaConfig, logger zerolog.Logger) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
		Logger:                 observability.NewPrintfLogger(logger, "kafka_writer", zerolog.DebugLevel),
		ErrorLogger:            observability.NewPrintfLogger(logger, "kafka_writer", zerolog.ErrorLevel),
	}
}

// KafkaSink publishes a citation_lookup.completed event for every lookup outcome.
type KafkaSink struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaSink creates a sink publishing through writer. A positive timeout
// bounds each publish.
func NewKafkaSink(writer MessageWriter, timeout time.Duration) *KafkaSink {
	return &KafkaSink{writer: writer, timeout: timeout}
}

// Name implements Sink.
func (s *KafkaSink) Name() string { return "kafka" }

// Store implements Sink.
func (s *KafkaSink) Store(ctx context.Context, result *domain.LookupResult) error {
	event, err := domain.NewLookupCompletedEvent(result)
	if err != nil {
		return fmt.Errorf("building lookup event: %w", err)
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding lookup event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
		},
	}
	if requestID := observability.RequestIDFromContext(ctx); requestID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: HeaderRequestID, Value: []byte(requestID)})
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing lookup event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
