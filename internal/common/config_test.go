package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "data/events", config.Storage.Events.Path)
	assert.Equal(t, 24*time.Hour, config.Server.GetRefreshInterval())
	assert.Equal(t, 30*time.Second, config.Clients.EODHD.GetTimeout())
	assert.False(t, config.IsProduction())
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folio.toml")
	content := `
environment = "production"
symbol_blacklist = ["SIVB", "twtr"]

[server]
port = 9090
refresh_interval = "6h"

[storage.events]
path = "/var/folio/events"

[clients.eodhd]
api_key = "demo"
rate_limit = 4

[[importer.sources]]
brokerage = "schwab"
dir = "exports/schwab"
account_type = "taxable"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, config.IsProduction())
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 6*time.Hour, config.Server.GetRefreshInterval())
	assert.Equal(t, "/var/folio/events", config.Storage.Events.Path)
	assert.Equal(t, "data/history", config.Storage.History.Path, "untouched sections keep defaults")
	assert.Equal(t, "demo", config.Clients.EODHD.APIKey)
	assert.Equal(t, 4, config.Clients.EODHD.RateLimit)
	require.Len(t, config.Importer.Sources, 1)
	assert.Equal(t, "schwab", config.Importer.Sources[0].Brokerage)
}

func TestLoadConfigSkipsMissingFiles(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"), "")
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FOLIO_ENV", "production")
	t.Setenv("FOLIO_PORT", "7001")
	t.Setenv("FOLIO_LOG_LEVEL", "debug")
	t.Setenv("FOLIO_DATA_PATH", "/srv/folio")
	t.Setenv("FOLIO_EODHD_API_KEY", "from-env")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, config.IsProduction())
	assert.Equal(t, 7001, config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, filepath.Join("/srv/folio", "events"), config.Storage.Events.Path)
	assert.Equal(t, filepath.Join("/srv/folio", "history"), config.Storage.History.Path)
	assert.Equal(t, "from-env", config.Clients.EODHD.APIKey)
}

func TestIsBlacklisted(t *testing.T) {
	config := NewDefaultConfig()
	config.SymbolBlacklist = []string{"SIVB", "twtr"}

	assert.True(t, config.IsBlacklisted("SIVB"))
	assert.True(t, config.IsBlacklisted("sivb"))
	assert.True(t, config.IsBlacklisted("TWTR"), "blacklist matching is case-insensitive")
	assert.False(t, config.IsBlacklisted("MSFT"))
}
