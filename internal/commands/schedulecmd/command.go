// Package schedulecmd implements the Schedule slice of the command surface
// (spec §6 and §4.H/§4.I): enable, disable, get-status, trigger-now,
// get-history. "trigger-now" runs a fetch synchronously with the persisted
// schedule defaults and records the outcome as a ScheduleRun, the same
// path the Headless Worker takes, applying the same auto-disable check on
// failure.
package schedulecmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/paperfuse/core/internal/commands/app"
	"github.com/paperfuse/core/internal/scheduler"
	"github.com/paperfuse/core/internal/types"
)

// Cmd is the "schedule" command group.
var Cmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the recurring fetch schedule",
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

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum run rows to return")
	Cmd.AddCommand(enableCmd, disableCmd, statusCmd, triggerNowCmd, historyCmd)
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Validate preconditions and turn the recurring schedule on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			if err := scheduler.ValidateEnable(scheduler.EnableConfig{
				Frequency: a.Config.Schedule.Frequency,
				TimeOfDay: a.Config.Schedule.TimeOfDay,
				Weekdays:  a.Config.Schedule.Weekdays,
				Topics:    a.Config.Topics,
				HasAPIKey: a.HasAPIKey(),
			}, a.ConsecutiveFailures()); err != nil {
				return err
			}
			a.Config.Schedule.Enabled = true
			return a.SaveConfig()
		})
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn the recurring schedule off",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			a.Config.Schedule.Enabled = false
			return a.SaveConfig()
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print schedule config, next run time, and consecutive failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			type status struct {
				Enabled             bool      `json:"enabled"`
				Frequency           string    `json:"frequency"`
				TimeOfDay           string    `json:"time_of_day"`
				Weekdays            []int     `json:"weekdays,omitempty"`
				ConsecutiveFailures int       `json:"consecutive_failures"`
				NextRun             *string   `json:"next_run,omitempty"`
			}
			out := status{
				Enabled:             a.Config.Schedule.Enabled,
				Frequency:           string(a.Config.Schedule.Frequency),
				TimeOfDay:           a.Config.Schedule.TimeOfDay,
				Weekdays:            a.Config.Schedule.Weekdays,
				ConsecutiveFailures: a.ConsecutiveFailures(),
			}
			if a.Config.Schedule.Enabled {
				if next, err := scheduler.NextRunTime(time.Now().UTC(), a.Config.Schedule.Frequency, a.Config.Schedule.TimeOfDay, a.Config.Schedule.Weekdays); err == nil {
					s := next.Format("2006-01-02T15:04:05Z07:00")
					out.NextRun = &s
				}
			}
			return printJSON(out)
		})
	},
}

var triggerNowCmd = &cobra.Command{
	Use:   "trigger-now",
	Short: "Run a fetch immediately using schedule/fetch defaults, recording a ScheduleRun",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			runID, err := a.Schedule.StartRun()
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to start schedule run: %v\n", err)
			}

			opts := a.Config.ToFetchOptions()
			agg, ferr := a.Manager.FetchPapers(context.Background(), opts, a.Config.Topics,
				types.TriggerScheduled, a.Config.Retry, a.LatexDir, nil)

			status := types.RunCompleted
			errMsg := ""
			if ferr != nil {
				status = types.RunFailed
				errMsg = ferr.Error()
			}
			if runID != "" {
				if cerr := a.Schedule.CompleteRun(runID, status, agg.Counters.Found, agg.Counters.Saved, errMsg); cerr != nil {
					fmt.Fprintf(os.Stderr, "failed to complete schedule run: %v\n", cerr)
				}
			}
			if ferr != nil {
				if scheduler.ShouldAutoDisable(a.ConsecutiveFailures()) {
					a.Config.Schedule.Enabled = false
					if serr := a.SaveConfig(); serr != nil {
						fmt.Fprintf(os.Stderr, "failed to persist auto-disable: %v\n", serr)
					}
				}
				return ferr
			}
			return printJSON(agg)
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent ScheduleRun rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			rows, err := a.Schedule.RecentRuns(historyLimit)
			if err != nil {
				return err
			}
			return printJSON(rows)
		})
	},
}
