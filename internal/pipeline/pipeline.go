package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/ticket-metrics/internal/domain"
	"github.com/couchcryptid/ticket-metrics/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Source loads the raw rows of one ticket export.
type Source interface {
	Name() string
	LoadRows(ctx context.Context) ([]domain.RawRecord, error)
}

// WeatherLookup returns the snapshot to attach to a report, or nil.
type WeatherLookup interface {
	Lookup(ctx context.Context, apiKey, location string) *domain.WeatherSnapshot
}

// Sink receives every completed report.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, r domain.Report) error
}

// Settings are per-run inputs that are not collaborators.
type Settings struct {
	WeatherKey string
	Location   string
	Clock      clockwork.Clock
}

// Pipeline orchestrates load, validate, aggregate and deliver.
type Pipeline struct {
	source   Source
	analyzer *domain.Analyzer
	weather  WeatherLookup
	sinks    []Sink
	logger   *slog.Logger
	metrics  *observability.Metrics
	settings Settings
	clock    clockwork.Clock
	ready    atomic.Bool
	latest   atomic.Pointer[domain.Report]
}

// New creates a Pipeline. weather may be nil to skip enrichment.
func New(src Source, analyzer *domain.Analyzer, weather WeatherLookup, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, settings Settings) *Pipeline {
	clock := settings.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		source:   src,
		analyzer: analyzer,
		weather:  weather,
		sinks:    sinks,
		logger:   logger,
		metrics:  metrics,
		settings: settings,
		clock:    clock,
	}
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no analysis run has completed yet")
	}
	return nil
}

// Latest returns the bundle of the most recent completed run.
func (p *Pipeline) Latest() (domain.MetricsBundle, bool) {
	r := p.latest.Load()
	if r == nil {
		return domain.MetricsBundle{}, false
	}
	return r.Bundle, true
}

// Run performs one analysis pass. Only a source failure is returned as an
// error; invalid rows, weather failures and sink failures are logged.
func (p *Pipeline) Run(ctx context.Context) (domain.Report, error) {
	start := p.clock.Now()
	p.logger.Info("run started", "source", p.source.Name())

	rows, err := p.source.LoadRows(ctx)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load rows: %w", err)
	}

	tickets, invalid := domain.ValidateRows(rows)
	p.recordValidation(tickets, invalid)

	var (
		stats    domain.Stats
		snapshot *domain.WeatherSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats = p.analyzer.Compute(tickets)
		return nil
	})
	g.Go(func() error {
		if p.weather != nil {
			snapshot = p.weather.Lookup(gctx, p.settings.WeatherKey, p.settings.Location)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Report{}, err
	}

	meta := domain.BundleMeta{
		RunID:       uuid.NewString(),
		GeneratedAt: p.clock.Now().UTC(),
		Source:      p.source.Name(),
	}
	bundle := domain.Assemble(meta, stats, invalid, snapshot)
	report := domain.Report{Bundle: bundle, Executive: domain.RenderExecutive(bundle)}

	p.latest.Store(&report)
	p.ready.Store(true)
	p.metrics.PipelineReady.Set(1)

	p.deliver(ctx, report)

	elapsed := p.clock.Since(start)
	p.metrics.RunDuration.Observe(elapsed.Seconds())
	p.metrics.LastRunTime.Set(float64(p.clock.Now().Unix()))
	p.logger.Info("run finished",
		"run_id", meta.RunID,
		"tickets", len(tickets),
		"invalid_rows", len(invalid),
		"weather", snapshot != nil,
		"duration", elapsed,
	)
	return report, nil
}

// Loop re-runs the analysis every interval until ctx is cancelled. The first
// run happens one interval after the call. A failed run is retried with
// exponential backoff capped at interval. A non-positive interval returns
// immediately.
func (p *Pipeline) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	const initialBackoff = 200 * time.Millisecond
	backoff := initialBackoff
	wait := interval

	for {
		if !p.sleep(ctx, wait) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return
		}
		if _, err := p.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("run failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = nextBackoff(backoff, interval)
			continue
		}
		wait = interval
		backoff = initialBackoff
	}
}

func (p *Pipeline) recordValidation(tickets []domain.Ticket, invalid []domain.ValidationError) {
	for _, ve := range invalid {
		p.logger.Warn("invalid row", "row", ve.Row, "ticket_id", ve.TicketID, "errors", ve.Errors)
	}
	p.metrics.RowsProcessed.WithLabelValues("valid").Add(float64(len(tickets)))
	p.metrics.RowsProcessed.WithLabelValues("invalid").Add(float64(len(invalid)))

	byStatus := make(map[domain.Status]int, len(domain.Statuses))
	for _, t := range tickets {
		byStatus[t.Status]++
	}
	for _, s := range domain.Statuses {
		p.metrics.TicketsByState.WithLabelValues(string(s)).Set(float64(byStatus[s]))
	}
}

// deliver hands the report to every sink; a failing sink does not stop the others.
func (p *Pipeline) deliver(ctx context.Context, r domain.Report) {
	for _, s := range p.sinks {
		if err := s.Deliver(ctx, r); err != nil {
			p.logger.Warn("sink delivery failed", "sink", s.Name(), "run_id", r.Bundle.RunID, "error", err)
			p.metrics.SinkDeliveries.WithLabelValues(s.Name(), "error").Inc()
			continue
		}
		p.metrics.SinkDeliveries.WithLabelValues(s.Name(), "success").Inc()
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
