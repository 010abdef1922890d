// Package fetchcmd implements the Fetch slice of the command surface (spec
// §6): start (options + topics), get-status, is-fetching, cancel,
// get-history, delete-history-entry. "start" runs synchronously and prints
// the final FetchStatus snapshot plus every intermediate one emitted along
// the way — a terminal has no long-lived IPC channel to stream through, so
// each snapshot is written as its own JSON line instead.
package fetchcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperfuse/core/internal/commands/app"
	"github.com/paperfuse/core/internal/fetchmanager"
	"github.com/paperfuse/core/internal/types"
)

// Cmd is the "fetch" command group.
var Cmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run and control the fetch-and-analyze pipeline",
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func withApp(fn func(*app.App) error) error {
	a, err := app.Open()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

var (
	fetchByID bool
	ids       []string
	historyLimit int
)

func init() {
	startCmd.Flags().BoolVar(&fetchByID, "by-id", false, "fetch specific ArXiv ids instead of a category search")
	startCmd.Flags().StringSliceVar(&ids, "ids", nil, "ArXiv ids to fetch (requires --by-id)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum history rows to return")

	Cmd.AddCommand(startCmd, statusCmd, isFetchingCmd, cancelCmd, historyCmd, deleteHistoryCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a fetch using the persisted settings as defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			opts := a.Config.ToFetchOptions()
			opts.FetchByID = fetchByID
			opts.FetchByIDGate = fetchByID
			if fetchByID {
				opts.IDs = ids
			}

			emit := func(s types.FetchStatus) {
				_ = printJSON(s)
			}

			agg, err := a.Manager.FetchPapers(context.Background(), opts, a.Config.Topics,
				types.TriggerManual, a.Config.Retry, a.LatexDir, emit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
				return err
			}
			return printJSON(agg)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current FetchStatus: an idle snapshot, or is_fetching=true if one is already running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			if a.Manager.IsFetching() {
				return printJSON(map[string]bool{"is_fetching": true})
			}
			return printJSON(fetchmanager.Status())
		})
	},
}

var isFetchingCmd = &cobra.Command{
	Use:   "is-fetching",
	Short: "Exit 0 if a fetch is in progress, 1 otherwise",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			if !a.Manager.IsFetching() {
				os.Exit(1)
			}
			return nil
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the in-progress fetch, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return a.Manager.Cancel()
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent FetchHistory rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			rows, err := a.History.Recent(historyLimit)
			if err != nil {
				return err
			}
			return printJSON(rows)
		})
	},
}

var deleteHistoryCmd = &cobra.Command{
	Use:   "delete-history <history-id>",
	Short: "Delete a single FetchHistory row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return a.History.Delete(args[0])
		})
	},
}
