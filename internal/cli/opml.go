package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/lolsync/internal/fetch"
	"github.com/bryan-buckman/lolsync/internal/opml"
)

var importOPMLCmd = &cobra.Command{
	Use:   "import-opml <file>",
	Short: "Pin every omg.lol address found in an OPML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportOPML,
}

var exportOPMLCmd = &cobra.Command{
	Use:   "export-opml",
	Short: "Write followed and pinned weblogs as OPML to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExportOPML,
}

func init() {
	rootCmd.AddCommand(importOPMLCmd)
	rootCmd.AddCommand(exportOPMLCmd)
}

func runImportOPML(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()
	entries, err := opml.Parse(file)
	if err != nil {
		return err
	}

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
	found := opml.Addresses(entries)
	if err := fetch.SetPinned(ctx, a.env.Store, append(append([]string(nil), book.Pinned...), found...)); err != nil {
		return err
	}
	cmd.Printf("Pinned %d addresses from %d feeds.\n", len(found), len(entries))
	return nil
}

func runExportOPML(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	book, err := fetch.LoadAddressBook(context.Background(), a.env, a.account)
	if err != nil {
		return err
	}
	data, err := opml.ExportFollowing(book, a.now())
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
