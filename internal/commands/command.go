package commands

import (
	"github.com/paperfuse/core/internal/commands/analyzecmd"
	"github.com/paperfuse/core/internal/commands/fetchcmd"
	mcpcmd "github.com/paperfuse/core/internal/commands/mcp"
	"github.com/paperfuse/core/internal/commands/papers"
	"github.com/paperfuse/core/internal/commands/schedulecmd"
	"github.com/paperfuse/core/internal/commands/settingscmd"
)

func init() {
	rootCmd.AddCommand(papers.Cmd)
	rootCmd.AddCommand(fetchcmd.Cmd)
	rootCmd.AddCommand(schedulecmd.Cmd)
	rootCmd.AddCommand(settingscmd.Cmd)
	rootCmd.AddCommand(analyzecmd.Cmd)
	rootCmd.AddCommand(mcpcmd.Cmd)
}
