package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOLSYNC_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "https://api.omg.lol", cfg.API.BaseURL)
	assert.Equal(t, 10, cfg.API.Burst)
	assert.True(t, cfg.Automation.AutoLoad)
	assert.Equal(t, 60*time.Second, cfg.Automation.Reload)

	prefs := cfg.Automation.Preferences()
	require.NotNil(t, prefs.ReloadDuration)
	assert.Equal(t, 60*time.Second, *prefs.ReloadDuration)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
blocklist = ["spam"]

[database]
driver = "postgres"
dsn = "postgres://localhost/lolsync"

[account]
address = "alice"
addresses = ["alice", "alice2"]

[automation]
auto_load = false
reload = "0s"
`), 0o600))
	t.Setenv("LOLSYNC_API_TOKEN", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/lolsync", cfg.Database.DSN)
	assert.Equal(t, "alice", cfg.Account.Address)
	assert.Equal(t, []string{"alice", "alice2"}, cfg.Account.Addresses)
	assert.Equal(t, []string{"spam"}, cfg.Blocklist)
	assert.Equal(t, "secret", cfg.API.Token)

	prefs := cfg.Automation.Preferences()
	assert.False(t, prefs.AutoLoad)
	assert.Nil(t, prefs.ReloadDuration)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[database\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
