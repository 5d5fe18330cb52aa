package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/lolsync/internal/database"
	"github.com/bryan-buckman/lolsync/internal/fetch"
	"github.com/bryan-buckman/lolsync/internal/model"
	"github.com/bryan-buckman/lolsync/internal/query"
)

var (
	listFilters []string
	listSort    string
	listLimit   int
)

var listCmd = &cobra.Command{
	Use:   "list <table>",
	Short: "Print cached records as JSON lines",
	Long: `Prints the cached records of a table, one JSON document per line.
Filters use the canonical tokens, e.g. --filter following --filter recent.86400.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	var names []string
	for _, t := range model.Tables {
		names = append(names, t.Name)
	}
	listCmd.Long += "\n\nTables: " + strings.Join(names, ", ")
	listCmd.Flags().StringArrayVar(&listFilters, "filter", nil, "filter token (repeatable)")
	listCmd.Flags().StringVar(&listSort, "sort", string(query.NewestFirst), "alphabet, newestFirst, oldestFirst or shuffle")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of records (0 for all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	table, ok := model.TableByName(args[0])
	if !ok {
		return fmt.Errorf("unknown table %q", args[0])
	}
	filters, ok := query.ParseFilters(listFilters)
	if !ok {
		return fmt.Errorf("invalid filter in %q", listFilters)
	}
	order, ok := query.ParseSort(listSort)
	if !ok {
		return fmt.Errorf("invalid sort %q", listSort)
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
	rows, err := a.env.Store.Select(ctx, database.Query{
		Table: table,
		Where: query.Compile(filters, book, table, a.now()),
		Order: order,
		Limit: listLimit,
	})
	if err != nil {
		return err
	}
	for _, row := range rows {
		cmd.Println(string(row))
	}
	return nil
}
