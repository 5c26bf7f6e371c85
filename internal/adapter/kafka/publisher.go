package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/ticket-metrics/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces one summary message per run to a Kafka topic.
// It implements pipeline.Sink.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the summary topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

func (p *Publisher) Name() string { return "kafka" }

// Deliver publishes the metrics bundle keyed by run ID.
func (p *Publisher) Deliver(ctx context.Context, r domain.Report) error {
	msg, err := serializeToMessage(r.Bundle)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	p.logger.Debug("summary published", "topic", p.writer.Topic, "run_id", r.Bundle.RunID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a MetricsBundle into a Kafka message.
func serializeToMessage(b domain.MetricsBundle) (kafkago.Message, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize metrics bundle: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(b.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(b.RunID)},
			{Key: "generated_at", Value: []byte(b.GeneratedAt.Format(time.RFC3339))},
			{Key: "ticket_count", Value: []byte(strconv.Itoa(b.TotalTickets))},
		},
	}, nil
}
