package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("MEDIA_ROOT", "/srv/media")
	t.Setenv("APP_ENV", "development")

	cfg := LoadEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Snapshot.Enabled)
	assert.Equal(t, time.Second, cfg.Snapshot.Delay)
	assert.Equal(t, "/srv/media", cfg.Storage.MediaRoot)
	assert.Empty(t, cfg.Snapshot.Path, "resolved under the media root at startup")
	assert.Equal(t, "0.05", cfg.Pricing.FeePercent.String())
	assert.Equal(t, "0.7", cfg.Pricing.FixedFee.String())
	assert.Equal(t, "To List", cfg.Listing.ExportStatus)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("CSV_SYNC_ENABLED", "false")
	t.Setenv("CSV_SYNC_DELAY", "250ms")
	t.Setenv("FEE_PERCENT", "0.1")
	t.Setenv("FIXED_FEE", "not-a-number")
	t.Setenv("DB_MAX_OPEN_CONNS", "x")

	cfg := LoadEnv()

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.Snapshot.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Snapshot.Delay)
	assert.Equal(t, "0.1", cfg.Pricing.FeePercent.String())
	// Unparseable values keep the default.
	assert.Equal(t, "0.7", cfg.Pricing.FixedFee.String())
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
}
