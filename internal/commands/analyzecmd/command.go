// Package analyzecmd implements the Analysis slice of the command surface
// (spec §6): analyze-single (paperId + mode), batch-analyze. Both forward
// directly to fetchmanager.Manager's AnalyzeSingle/BatchAnalyze, which run
// Phase 2 deep analysis against an already-stored paper independent of the
// fetch pipeline's relevance gate (spec §4.G.2 step 8 describes the same
// analysis the fetch pipeline runs inline; this is its standalone form).
package analyzecmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperfuse/core/internal/commands/app"
)

// Cmd is the "analyze" command group.
var Cmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run deep analysis against already-stored papers",
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
	mode     string
	language string
)

func init() {
	singleCmd.Flags().StringVar(&mode, "mode", "standard", `analysis mode: "standard" or "full"`)
	singleCmd.Flags().StringVar(&language, "language", "en", `response language: "en" or "zh"`)
	batchCmd.Flags().StringVar(&mode, "mode", "standard", `analysis mode: "standard" or "full"`)
	batchCmd.Flags().StringVar(&language, "language", "en", `response language: "en" or "zh"`)

	Cmd.AddCommand(singleCmd, batchCmd)
}

var singleCmd = &cobra.Command{
	Use:   "single <paper-id>",
	Short: "Deep-analyze one paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			p, err := a.Manager.AnalyzeSingle(context.Background(), args[0], mode, a.Config.Topics, a.LatexDir, language)
			if err != nil {
				return err
			}
			return printJSON(p)
		})
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <paper-id>...",
	Short: "Deep-analyze multiple papers, collecting per-paper errors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			results := a.Manager.BatchAnalyze(context.Background(), args, mode, a.Config.Topics, a.LatexDir, language)
			out := make(map[string]string, len(results))
			for id, err := range results {
				if err != nil {
					out[id] = err.Error()
				} else {
					out[id] = "ok"
				}
			}
			return printJSON(out)
		})
	},
}
