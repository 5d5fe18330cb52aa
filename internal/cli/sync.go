package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/lolsync/internal/fetch"
)

var syncForce bool

var syncCmd = &cobra.Command{
	Use:   "sync [directory|garden|statuslog]",
	Short: "Mirror remote collections into the cache",
	Long: `Mirrors the named collection, or all of them when none is given.
The directory sync runs at most once per calendar day.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "ignore the refresh interval")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	directory := fetch.NewDirectorySync(a.env)
	syncs := map[string]fetch.Updater{
		fetch.DirectorySync: directory,
		fetch.GardenSync:    fetch.NewGardenFetcher(a.env),
		fetch.StatusLogSync: fetch.NewStatusLogFetcher(a.env),
	}
	names := []string{fetch.DirectorySync, fetch.GardenSync, fetch.StatusLogSync}
	if len(args) > 0 {
		if _, ok := syncs[args[0]]; !ok {
			return fmt.Errorf("unknown sync %q", args[0])
		}
		names = args[:1]
	}

	ctx := context.Background()
	failed := 0
	for _, name := range names {
		cmd.Printf("Synchronising %s...\n", name)
		if err := syncs[name].UpdateIfNeeded(ctx, syncForce); err != nil {
			cmd.PrintErrf("%s failed: %v\n", name, err)
			failed++
			continue
		}
		if name == fetch.DirectorySync {
			res := directory.LastResult()
			if res.Skipped {
				cmd.Println("Directory already synchronised today.")
			} else {
				cmd.Printf("Synchronised %d addresses (%d placeholders).\n", res.Members, res.Placeholders)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d syncs failed", failed, len(names))
	}
	return nil
}
