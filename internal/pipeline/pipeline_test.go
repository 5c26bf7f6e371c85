package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/ticket-metrics/internal/domain"
	"github.com/couchcryptid/ticket-metrics/internal/observability"
	"github.com/couchcryptid/ticket-metrics/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSource struct {
	rows  []domain.RawRecord
	err   error
	calls atomic.Int64
}

func (m *mockSource) Name() string { return "mock.csv" }

func (m *mockSource) LoadRows(_ context.Context) ([]domain.RawRecord, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

type mockWeather struct {
	snapshot *domain.WeatherSnapshot
	mu       sync.Mutex
	gotKey   string
	gotLoc   string
}

func (m *mockWeather) Lookup(_ context.Context, apiKey, location string) *domain.WeatherSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gotKey, m.gotLoc = apiKey, location
	return m.snapshot
}

type mockSink struct {
	name      string
	err       error
	delivered []domain.Report
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Deliver(_ context.Context, r domain.Report) error {
	m.delivered = append(m.delivered, r)
	return m.err
}

var testNow = time.Date(2024, time.April, 15, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(id, priority, status, created, resolved, agent string) domain.RawRecord {
	return domain.RawRecord{
		"ticket_id":     id,
		"customer_id":   "C1",
		"subject":       "Login failure",
		"description":   "Cannot sign in to the portal",
		"priority":      priority,
		"status":        status,
		"created_date":  created,
		"resolved_date": resolved,
		"assigned_to":   agent,
	}
}

func sampleRows() []domain.RawRecord {
	return []domain.RawRecord{
		row("T1", "High", "Resolved", "2024-04-01", "2024-04-03", "alice"),
		row("T2", "Low", "Open", "2024-04-02", "", "bob"),
		row("T3", "Medium", "Open", "2024-13-01", "", "bob"),
		row("T4", "Critical", "In Progress", "2024-04-10", "", "alice"),
	}
}

type fixture struct {
	source  *mockSource
	weather *mockWeather
	sinks   []*mockSink
	metrics *observability.Metrics
	clock   *clockwork.FakeClock
	p       *pipeline.Pipeline
}

func newFixture(src *mockSource, sinks ...*mockSink) *fixture {
	f := &fixture{
		source:  src,
		weather: &mockWeather{snapshot: &domain.WeatherSnapshot{Location: "Hosur", Description: "clear sky", TemperatureCelsius: 21.5}},
		sinks:   sinks,
		metrics: observability.NewMetricsForTesting(),
		clock:   clockwork.NewFakeClockAt(testNow),
	}
	ps := make([]pipeline.Sink, len(sinks))
	for i, s := range sinks {
		ps[i] = s
	}
	analyzer := domain.NewAnalyzer(domain.DefaultOptions(), f.clock)
	f.p = pipeline.New(src, analyzer, f.weather, ps, discardLogger(), f.metrics, pipeline.Settings{
		WeatherKey: "key",
		Location:   "Hosur",
		Clock:      f.clock,
	})
	return f
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	sink := &mockSink{name: "report"}
	f := newFixture(&mockSource{rows: sampleRows()}, sink)

	report, err := f.p.Run(context.Background())
	require.NoError(t, err)

	b := report.Bundle
	assert.NotEmpty(t, b.RunID)
	assert.Equal(t, testNow, b.GeneratedAt)
	assert.Equal(t, "mock.csv", b.Source)
	assert.Equal(t, 3, b.TotalTickets)
	assert.Equal(t, 1, b.InvalidRows)
	require.Len(t, b.ValidationErrors, 1)
	assert.Equal(t, 4, b.ValidationErrors[0].Row)
	assert.Equal(t, "T3", b.ValidationErrors[0].TicketID)
	require.NotNil(t, b.Weather)
	assert.Equal(t, "clear sky", b.Weather.Description)
	assert.Contains(t, report.Executive, "Total Tickets: 3")

	assert.Equal(t, "key", f.weather.gotKey)
	assert.Equal(t, "Hosur", f.weather.gotLoc)

	require.Len(t, sink.delivered, 1)
	assert.Equal(t, b.RunID, sink.delivered[0].Bundle.RunID)
}

func TestPipeline_Run_Metrics(t *testing.T) {
	f := newFixture(&mockSource{rows: sampleRows()}, &mockSink{name: "report"})

	_, err := f.p.Run(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 3, testutil.ToFloat64(f.metrics.RowsProcessed.WithLabelValues("valid")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.RowsProcessed.WithLabelValues("invalid")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.TicketsByState.WithLabelValues("Open")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.TicketsByState.WithLabelValues("In Progress")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(f.metrics.TicketsByState.WithLabelValues("Closed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.PipelineReady), 0)
	assert.InDelta(t, float64(testNow.Unix()), testutil.ToFloat64(f.metrics.LastRunTime), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.SinkDeliveries.WithLabelValues("report", "success")), 0)
}

func TestPipeline_Run_SourceError(t *testing.T) {
	sink := &mockSink{name: "report"}
	f := newFixture(&mockSource{err: errors.New("disk gone")}, sink)

	_, err := f.p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load rows")
	assert.Contains(t, err.Error(), "disk gone")

	assert.Empty(t, sink.delivered)
	assert.Error(t, f.p.CheckReadiness(context.Background()))
	_, ok := f.p.Latest()
	assert.False(t, ok)
}

func TestPipeline_Run_SinkFailureDoesNotStopOthers(t *testing.T) {
	broken := &mockSink{name: "kafka", err: errors.New("broker down")}
	report := &mockSink{name: "report"}
	f := newFixture(&mockSource{rows: sampleRows()}, broken, report)

	_, err := f.p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, broken.delivered, 1)
	assert.Len(t, report.delivered, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.SinkDeliveries.WithLabelValues("kafka", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.SinkDeliveries.WithLabelValues("report", "success")), 0)
}

func TestPipeline_Run_WithoutWeather(t *testing.T) {
	src := &mockSource{rows: sampleRows()}
	clock := clockwork.NewFakeClockAt(testNow)
	p := pipeline.New(src, domain.NewAnalyzer(domain.DefaultOptions(), clock), nil, nil,
		discardLogger(), observability.NewMetricsForTesting(), pipeline.Settings{Clock: clock})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.Bundle.Weather)
	assert.NotContains(t, report.Executive, "Weather at")
}

func TestPipeline_Run_EmptyInput(t *testing.T) {
	f := newFixture(&mockSource{rows: []domain.RawRecord{}})

	report, err := f.p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Bundle.TotalTickets)
	assert.NotNil(t, report.Bundle.ValidationErrors)
	assert.Empty(t, report.Bundle.ValidationErrors)
}

func TestPipeline_ReadinessAndLatest(t *testing.T) {
	f := newFixture(&mockSource{rows: sampleRows()})

	require.Error(t, f.p.CheckReadiness(context.Background()))
	_, ok := f.p.Latest()
	require.False(t, ok)

	report, err := f.p.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.p.CheckReadiness(context.Background()))
	latest, ok := f.p.Latest()
	require.True(t, ok)
	assert.Equal(t, report.Bundle.RunID, latest.RunID)
}

func TestPipeline_Run_UniqueRunIDs(t *testing.T) {
	f := newFixture(&mockSource{rows: sampleRows()})

	first, err := f.p.Run(context.Background())
	require.NoError(t, err)
	second, err := f.p.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Bundle.RunID, second.Bundle.RunID)
}

func TestPipeline_Loop_RerunsEveryInterval(t *testing.T) {
	src := &mockSource{rows: sampleRows()}
	f := newFixture(src)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		f.p.Loop(ctx, time.Hour)
		close(done)
	}()

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(0), src.calls.Load(), "first run waits one interval")

	f.clock.Advance(time.Hour)
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(1), src.calls.Load())

	f.clock.Advance(time.Hour)
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(2), src.calls.Load())

	cancel()
	<-done
}

func TestPipeline_Loop_BacksOffOnFailure(t *testing.T) {
	src := &mockSource{err: errors.New("file locked")}
	f := newFixture(src)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		f.p.Loop(ctx, time.Hour)
		close(done)
	}()

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(time.Hour)
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(1), src.calls.Load())

	f.clock.Advance(200 * time.Millisecond)
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(2), src.calls.Load())

	// Backoff doubled: 200ms is no longer enough.
	f.clock.Advance(200 * time.Millisecond)
	assert.Equal(t, int64(2), src.calls.Load())
	f.clock.Advance(200 * time.Millisecond)
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(3), src.calls.Load())

	cancel()
	<-done
}

func TestPipeline_Loop_NonPositiveInterval(t *testing.T) {
	src := &mockSource{rows: sampleRows()}
	f := newFixture(src)

	f.p.Loop(context.Background(), 0)
	assert.Equal(t, int64(0), src.calls.Load())
}
