package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/studio-api/internal/model"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("WORKERS", "mira:Mira,jovana:Jovana")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "UTC", cfg.Business.Timezone)
	assert.Equal(t, 7*time.Minute, cfg.Reminder.Tolerance())
	assert.Equal(t, 2*time.Hour, cfg.Reminder.Horizon())
	assert.Equal(t, 5*time.Minute, cfg.Reminder.SweepInterval())
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Len(t, cfg.Business.Workers, 2)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("WORKERS", "mira:Mira")
	t.Setenv("BUSINESS_TIMEZONE", "Europe/Belgrade")
	t.Setenv("REMINDER_TOLERANCE_MINUTES", "5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "Europe/Belgrade", cfg.Business.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.Reminder.Tolerance())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Belgrade", loc.String())
}

func TestParseWorkersEnvRejectsMalformedEntry(t *testing.T) {
	t.Setenv("WORKERS", "mira:Mira,broken")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRegistry(t *testing.T) {
	cfg := &Config{
		Business: BusinessConfig{
			Workers: []WorkerConfig{
				{ID: "mira", Name: "Mira"},
				{ID: "jovana", Name: "Jovana"},
			},
		},
	}

	registry := cfg.Registry()
	assert.True(t, registry.Contains(model.WorkerID("mira")))
	assert.False(t, registry.Contains(model.WorkerID("dragan")))
	assert.Len(t, registry.List(), 2)
}

func TestLocationInvalidTimezone(t *testing.T) {
	cfg := &Config{Business: BusinessConfig{Timezone: "Nowhere/Nothing"}}
	_, err := cfg.Location()
	require.Error(t, err)
}
