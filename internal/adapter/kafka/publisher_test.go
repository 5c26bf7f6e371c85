package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/ticket-metrics/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 15, 9, 30, 0, 0, time.UTC)
	bundle := domain.MetricsBundle{
		BundleMeta: domain.BundleMeta{RunID: "run-1", GeneratedAt: now, Source: "tickets.csv"},
		Stats:      domain.Stats{TotalTickets: 42},
		Weather:    &domain.WeatherSnapshot{Location: "Hosur", Description: "clear sky"},
	}

	msg, err := serializeToMessage(bundle)
	require.NoError(t, err)

	assert.Equal(t, []byte("run-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"total_tickets":42`)
	assert.Contains(t, string(msg.Value), `"description":"clear sky"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
	assert.Equal(t, "ticket_count", msg.Headers[2].Key)
	assert.Equal(t, []byte("42"), msg.Headers[2].Value)
}

func TestPublisher_Config(t *testing.T) {
	p := NewPublisher([]string{"b1:9092", "b2:9092"}, "summaries", slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, "kafka", p.Name())
	assert.Equal(t, "summaries", p.writer.Topic)
}

func TestPublisher_DeliverCancelled(t *testing.T) {
	p := NewPublisher([]string{"127.0.0.1:1"}, "summaries", slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Deliver(ctx, domain.Report{Bundle: domain.MetricsBundle{BundleMeta: domain.BundleMeta{RunID: "r"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish summary")
}
