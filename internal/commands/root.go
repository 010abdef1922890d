// Package commands implements the host-application command surface (spec
// §6): thin cobra adapters forwarding to the fetch-and-analyze pipeline's
// core operations. Per spec §1 this layer is explicitly out of core scope
// ("thin adapters forwarding to core operations") — it exists only so the
// core is reachable from a terminal the same way a host UI would reach it
// over IPC; all of the non-trivial engineering lives in the internal
// packages these commands call into.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "paperfuse",
	Short: "paperfuse drives the research-paper fetch-and-analyze pipeline",
	Long: `paperfuse is the command-line surface for the research-paper
ingestion and analysis pipeline: it pulls paper metadata from ArXiv,
enriches candidates with a two-phase AI analysis, and persists results to
a local store. This binary is a thin adapter over that pipeline, the same
role a host UI's IPC layer plays.`,
}

// AddCommand adds a subcommand to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
