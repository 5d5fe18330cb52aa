// Package config loads lolsync configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bryan-buckman/lolsync/internal/model"
)

// Config holds application configuration.
type Config struct {
	Database   DatabaseConfig
	API        APIConfig
	Account    AccountConfig
	Automation AutomationConfig
	Server     ServerConfig
	Log        LogConfig
	// Blocklist is hidden from every view in addition to the user's blocks.
	Blocklist []string
}

// DatabaseConfig selects the cache backend.
type DatabaseConfig struct {
	// Driver is sqlite, postgres or memory.
	Driver string
	Path   string
	DSN    string
}

// APIConfig holds remote API settings.
type APIConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	WeblogURL string `mapstructure:"weblog_url"`
	Token     string
	Rate      float64
	Burst     int
}

// AccountConfig names the acting identity.
type AccountConfig struct {
	Address   string
	Addresses []string
}

// AutomationConfig controls background refreshes.
type AutomationConfig struct {
	AutoLoad bool `mapstructure:"auto_load"`
	// Reload is the TTL. Zero means fetch once.
	Reload time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Preferences converts the automation settings.
func (a AutomationConfig) Preferences() model.AutomationPreferences {
	prefs := model.Once()
	if a.Reload > 0 {
		prefs = model.Every(a.Reload)
	}
	prefs.AutoLoad = a.AutoLoad
	return prefs
}

// DefaultPath returns the config file used when LOLSYNC_CONFIG is unset.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "lolsync", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix LOLSYNC_.
// An explicit path wins over LOLSYNC_CONFIG.
func Load(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "lolsync", "cache.db"))
	v.SetDefault("database.dsn", "")
	v.SetDefault("api.base_url", "https://api.omg.lol")
	v.SetDefault("api.weblog_url", "https://%s.weblog.lol/rss.xml")
	v.SetDefault("api.token", "")
	v.SetDefault("api.rate", 5.0)
	v.SetDefault("api.burst", 10)
	v.SetDefault("account.address", "")
	v.SetDefault("account.addresses", []string{})
	v.SetDefault("automation.auto_load", true)
	v.SetDefault("automation.reload", model.DefaultReloadDuration)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("blocklist", []string{})

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("LOLSYNC_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LOLSYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing file is fine; a malformed one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
