package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/lolsync/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cache over HTTP and keep it fresh",
	Long: `Starts the JSON API and, when automation.auto_load is set, a background
poller refreshing the directory, garden, status log and your own address.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.New(context.Background(), a.env, a.account)
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err = <-errCh:
	case s := <-sig:
		a.log.Infof("Received %s, shutting down", s)
	}
	srv.Stop()
	return err
}
