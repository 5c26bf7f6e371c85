package main

import (
	"os"
	"testing"

	"github.com/couchcryptid/ticket-metrics/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFlags_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := config.Defaults()

	applyFlags(cfg, flags{csv: "in.csv", outPrefix: "out/r", weatherKey: "k", location: "Pune"})

	assert.Equal(t, "in.csv", cfg.TicketsCSV)
	assert.Equal(t, "out/r", cfg.ReportPrefix)
	assert.Equal(t, "k", cfg.WeatherAPIKey)
	assert.Equal(t, "Pune", cfg.Location)
}

func TestApplyFlags_PrefersSample(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(sampleCSV, []byte("ticket_id\n"), 0o600))

	cfg := config.Defaults()
	applyFlags(cfg, flags{})
	assert.Equal(t, sampleCSV, cfg.TicketsCSV)

	cfg = config.Defaults()
	applyFlags(cfg, flags{csv: "other.csv"})
	assert.Equal(t, "other.csv", cfg.TicketsCSV, "explicit path wins")
}

func TestApplyFlags_ExplicitDefaultFromEnvKept(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(sampleCSV, []byte("ticket_id\n"), 0o600))
	t.Setenv("TICKETS_CSV", defaultCSV)

	cfg := config.Defaults()
	applyFlags(cfg, flags{})
	assert.Equal(t, defaultCSV, cfg.TicketsCSV)

	cfg = config.Defaults()
	applyFlags(cfg, flags{csv: defaultCSV})
	assert.Equal(t, defaultCSV, cfg.TicketsCSV, "explicit flag wins")
}

func TestApplyFlags_NoSample(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := config.Defaults()

	applyFlags(cfg, flags{})
	assert.Equal(t, defaultCSV, cfg.TicketsCSV)
}
