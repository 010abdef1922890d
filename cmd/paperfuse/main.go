// Command paperfuse is the interactive command-surface entrypoint (spec
// §6): a thin cobra CLI, and an MCP tool server reachable via its "mcp"
// subcommand, both forwarding to the fetch-and-analyze pipeline. The
// scheduled, non-interactive counterpart is cmd/paperfuse-worker.
package main

import "github.com/paperfuse/core/internal/commands"

func main() {
	commands.Execute()
}
