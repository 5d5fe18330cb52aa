package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/lolsync/internal/fetch"
)

var refreshForce bool

var refreshCmd = &cobra.Command{
	Use:   "refresh <address>",
	Short: "Fetch everything about an address",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshForce, "force", true, "refetch the address even when fresh")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	book, err := fetch.LoadAddressBook(ctx, a.env, a.account)
	if err != nil {
		return err
	}
	f := fetch.NewAddressFetcher(a.env, args[0], book)
	if err := f.UpdateIfNeeded(ctx, refreshForce); err != nil {
		return fmt.Errorf("refresh %s: %w", args[0], err)
	}

	states := f.States()
	cmd.Printf("%-10s %s\n", "address", states["address"])
	for _, name := range f.ChildNames() {
		child, _ := f.Child(name)
		line := fmt.Sprintf("%-10s %s", name, states[name])
		if err := child.Snapshot().Err; err != nil {
			line += ": " + err.Error()
		}
		cmd.Println(line)
	}
	return nil
}
