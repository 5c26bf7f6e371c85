// Command analyze validates a support-ticket CSV, computes the metrics bundle,
// optionally attaches cached weather, and writes the summary JSON and
// executive text. With -serve it keeps the HTTP surface up after the run.
//
// Usage:
//
//	go run ./cmd/analyze -csv tickets.csv -location Hosur -mock-weather
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/couchcryptid/ticket-metrics/internal/adapter/csvfile"
	"github.com/couchcryptid/ticket-metrics/internal/adapter/email"
	httpadapter "github.com/couchcryptid/ticket-metrics/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/ticket-metrics/internal/adapter/kafka"
	"github.com/couchcryptid/ticket-metrics/internal/adapter/openweather"
	"github.com/couchcryptid/ticket-metrics/internal/adapter/report"
	"github.com/couchcryptid/ticket-metrics/internal/config"
	"github.com/couchcryptid/ticket-metrics/internal/domain"
	"github.com/couchcryptid/ticket-metrics/internal/observability"
	"github.com/couchcryptid/ticket-metrics/internal/pipeline"
	"github.com/couchcryptid/ticket-metrics/internal/weather"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCSV = "tickets.csv"
	sampleCSV  = "tickets_sample.csv"
)

type flags struct {
	csv          string
	config       string
	outPrefix    string
	weatherKey   string
	location     string
	mockWeather  bool
	forceRefresh bool
	serve        bool
	interval     time.Duration
}

func main() {
	var f flags
	flag.StringVar(&f.csv, "csv", "", "path to tickets CSV (default TICKETS_CSV or tickets.csv)")
	flag.StringVar(&f.config, "config", "", "path to YAML/JSON config file")
	flag.StringVar(&f.outPrefix, "out-prefix", "", "report path prefix (default REPORT_PREFIX)")
	flag.StringVar(&f.weatherKey, "weather-key", "", "OpenWeather API key")
	flag.StringVar(&f.location, "location", "", "weather location")
	flag.BoolVar(&f.mockWeather, "mock-weather", false, "seed the cache with a fixed snapshot instead of calling the API")
	flag.BoolVar(&f.forceRefresh, "force-refresh", false, "clear the weather cache and previous reports before running")
	flag.BoolVar(&f.serve, "serve", false, "keep serving /healthz, /readyz, /metrics and /summary after the run")
	flag.DurationVar(&f.interval, "interval", 0, "with -serve, re-run the analysis at this interval")
	flag.Parse()

	cfg, err := config.Load(f.config)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	applyFlags(cfg, f)

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, logger, metrics); err != nil {
		logger.Error("analysis failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// applyFlags overlays non-empty flags onto the loaded configuration. When
// neither -csv nor TICKETS_CSV names an input, a local sample file is
// preferred over the default path.
func applyFlags(cfg *config.Config, f flags) {
	_, csvFromEnv := os.LookupEnv("TICKETS_CSV")
	if f.csv != "" {
		cfg.TicketsCSV = f.csv
	}
	if f.csv == "" && !csvFromEnv && cfg.TicketsCSV == defaultCSV {
		if _, err := os.Stat(sampleCSV); err == nil {
			cfg.TicketsCSV = sampleCSV
		}
	}
	if f.outPrefix != "" {
		cfg.ReportPrefix = f.outPrefix
	}
	if f.weatherKey != "" {
		cfg.WeatherAPIKey = f.weatherKey
	}
	if f.location != "" {
		cfg.Location = f.location
	}
}

func run(ctx context.Context, cfg *config.Config, f flags, logger *slog.Logger, metrics *observability.Metrics) error {
	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	writer := report.NewWriter(cfg.ReportPrefix)

	if f.forceRefresh {
		if err := store.Clear(ctx, cfg.Location); err != nil {
			logger.Warn("clear weather cache failed", "error", err)
		}
		if err := writer.Remove(); err != nil {
			logger.Warn("remove previous reports failed", "error", err)
		}
		logger.Info("previous cache and reports removed", "prefix", cfg.ReportPrefix)
	}

	if f.mockWeather {
		key, err := weather.SeedMock(ctx, store, nil, cfg.Location)
		if err != nil {
			return err
		}
		cfg.WeatherAPIKey = key
		logger.Info("mock weather seeded", "location", cfg.Location)
	}

	client := openweather.NewClient(cfg.WeatherBaseURL, cfg.WeatherTimeout, metrics, logger)
	gate := weather.NewGate(store, client, cfg.WeatherTTL, nil, logger, metrics)

	sinks := []pipeline.Sink{writer}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaSummaryTopic, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		sinks = append(sinks, publisher)
		logger.Info("kafka summary publishing enabled", "topic", cfg.KafkaSummaryTopic)
	}
	if cfg.EmailOnExec {
		sinks = append(sinks, newEmailSink(cfg, logger))
	}

	opts := domain.DefaultOptions()
	opts.IdleThreshold = cfg.IdleThreshold
	opts.OverloadThreshold = cfg.OverloadThreshold
	opts.OpenDays = cfg.OpenDays
	opts.BacklogDays = cfg.BacklogDays
	opts.NGramSize = cfg.NGramSize
	opts.TopSubjectWords = cfg.TopSubjectWords

	p := pipeline.New(
		csvfile.NewSource(cfg.TicketsCSV),
		domain.NewAnalyzer(opts, nil),
		gate,
		sinks,
		logger,
		metrics,
		pipeline.Settings{WeatherKey: cfg.WeatherAPIKey, Location: cfg.Location},
	)

	rep, err := p.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("reports written",
		"summary", writer.SummaryPath(),
		"executive", writer.ExecutivePath(),
		"tickets", rep.Bundle.TotalTickets,
		"invalid_rows", rep.Bundle.InvalidRows,
	)
	writeTextfile(cfg, logger)

	if !f.serve {
		return nil
	}
	serve(ctx, cfg, p, f.interval, logger)
	writeTextfile(cfg, logger)
	return nil
}

// newStore builds the configured weather cache backend. The returned func
// releases any connection it holds.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (weather.Store, func(), error) {
	switch cfg.WeatherCacheBackend {
	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := weather.NewRedisStore(client, cfg.WeatherTTL)
		if err := store.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, weather lookups will miss", "addr", cfg.RedisAddr, "error", err)
		}
		return store, func() { _ = client.Close() }, nil
	case config.CacheBackendMemory:
		return weather.NewMemoryStore(64), func() {}, nil
	default:
		if dir := filepath.Dir(cfg.WeatherCacheFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, err
			}
		}
		return weather.NewFileStore(cfg.WeatherCacheFile), func() {}, nil
	}
}

func newEmailSink(cfg *config.Config, logger *slog.Logger) pipeline.Sink {
	if cfg.SMTPHost == "" {
		return email.NewLogSender(cfg.EmailTo, logger)
	}
	return email.NewSMTPSender(email.Settings{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.EmailFrom,
		To:       cfg.EmailTo,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	}, logger)
}

func serve(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, interval time.Duration, logger *slog.Logger) {
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if interval > 0 {
		go p.Loop(ctx, interval)
		logger.Info("periodic analysis enabled", "interval", interval)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func writeTextfile(cfg *config.Config, logger *slog.Logger) {
	if cfg.MetricsTextfile == "" {
		return
	}
	if err := observability.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Warn("write metrics textfile failed", "path", cfg.MetricsTextfile, "error", err)
	}
}
