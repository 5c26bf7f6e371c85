// Package weather caches the weather snapshot attached to ticket reports.
//
// A [Gate] answers from its [Store] while the stored entry is younger than the
// TTL and names the requested location (case-insensitive). Otherwise it makes
// one provider call; any failure there yields no weather rather than an error.
package weather

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/ticket-metrics/internal/domain"
	"github.com/couchcryptid/ticket-metrics/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultLocation is used when no location is configured.
const DefaultLocation = "hosur"

// Fetcher retrieves current weather from a provider.
type Fetcher interface {
	Fetch(ctx context.Context, apiKey, location string) (domain.WeatherSnapshot, error)
}

// Gate is a time-boxed cache in front of a Fetcher.
type Gate struct {
	store   Store
	fetcher Fetcher
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewGate creates a Gate. A nil clock uses real time.
func NewGate(store Store, fetcher Fetcher, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Gate {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gate{
		store:   store,
		fetcher: fetcher,
		ttl:     ttl,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Lookup returns the weather for location, or nil when no API key is set or
// the provider call fails. It makes at most one provider call.
func (g *Gate) Lookup(ctx context.Context, apiKey, location string) *domain.WeatherSnapshot {
	if apiKey == "" {
		return nil
	}
	if location == "" {
		location = DefaultLocation
	}

	if snap, ok := g.cached(ctx, location); ok {
		g.metrics.WeatherCache.WithLabelValues("hit").Inc()
		g.logger.Debug("weather cache hit", "location", location)
		return &snap
	}
	g.metrics.WeatherCache.WithLabelValues("miss").Inc()

	snap, err := g.fetcher.Fetch(ctx, apiKey, location)
	if err != nil {
		g.logger.Warn("weather fetch failed, continuing without weather",
			"location", location,
			"error", err,
		)
		return nil
	}

	now := g.clock.Now()
	snap.FetchedAt = now
	if snap.Location == "" {
		snap.Location = location
	}

	if err := g.store.Put(ctx, location, Entry{StoredAt: now, Snapshot: snap}); err != nil {
		g.logger.Warn("weather cache write failed", "location", location, "error", err)
	}
	return &snap
}

func (g *Gate) cached(ctx context.Context, location string) (domain.WeatherSnapshot, bool) {
	e, err := g.store.Get(ctx, location)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			g.logger.Debug("weather cache unreadable, treating as miss", "error", err)
		}
		return domain.WeatherSnapshot{}, false
	}
	if g.clock.Since(e.StoredAt) >= g.ttl {
		return domain.WeatherSnapshot{}, false
	}
	if !strings.EqualFold(e.Snapshot.Location, location) {
		return domain.WeatherSnapshot{}, false
	}
	return e.Snapshot, true
}

// SeedMock stores a fixed snapshot for location so a later Lookup hits the
// cache without a provider call. It returns the placeholder key to use. A nil
// clock uses real time.
func SeedMock(ctx context.Context, store Store, clock clockwork.Clock, location string) (string, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if location == "" {
		location = DefaultLocation
	}
	now := clock.Now()
	err := store.Put(ctx, location, Entry{
		StoredAt: now,
		Snapshot: domain.WeatherSnapshot{
			FetchedAt:          now,
			Location:           location,
			Description:        "clear sky",
			TemperatureCelsius: 21.5,
		},
	})
	if err != nil {
		return "", err
	}
	return MockAPIKey, nil
}

// MockAPIKey is the placeholder key used with SeedMock.
const MockAPIKey = "MOCK_KEY"
