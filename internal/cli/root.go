// Package cli implements the lolsync command line.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bryan-buckman/lolsync/internal/config"
	"github.com/bryan-buckman/lolsync/internal/database"
	"github.com/bryan-buckman/lolsync/internal/fetch"
	"github.com/bryan-buckman/lolsync/internal/logger"
	"github.com/bryan-buckman/lolsync/internal/remote"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "lolsync",
	Short: "Offline cache for omg.lol address data",
	Long: `lolsync mirrors omg.lol addresses, statuses, weblogs and more into a local
database and serves filtered, sorted views of the cache.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $LOLSYNC_CONFIG or "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the wiring shared by every command.
type app struct {
	cfg     config.Config
	env     fetch.Env
	account fetch.Account
	log     *logrus.Logger
}

func (a *app) Close() error { return a.env.Store.Close() }

func (a *app) now() time.Time {
	if a.env.Now != nil {
		return a.env.Now()
	}
	return time.Now()
}

// openApp loads configuration and opens the store and API client.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Verbose: verbose,
		Output:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	store, err := database.Open(cfg.Database.Driver, cfg.Database.Path, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.WithField("backend", store.DatabaseType()).Debug("database open")

	client := remote.NewClient(remote.Options{
		BaseURL:           cfg.API.BaseURL,
		WeblogURL:         cfg.API.WeblogURL,
		Token:             cfg.API.Token,
		RequestsPerSecond: cfg.API.Rate,
		Burst:             cfg.API.Burst,
		Logger:            log,
	})

	return &app{
		cfg: cfg,
		env: fetch.Env{
			API:   client,
			Store: store,
			Prefs: cfg.Automation.Preferences(),
			Log:   log,
		},
		account: fetch.Account{
			Token:     cfg.API.Token,
			Me:        cfg.Account.Address,
			Mine:      cfg.Account.Addresses,
			Blocklist: cfg.Blocklist,
		},
		log: log,
	}, nil
}
