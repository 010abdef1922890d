// Package mcp exposes the command surface (spec §6) as a Model Context
// Protocol tool server over stdio, so an MCP-capable host can drive the
// fetch-and-analyze pipeline the same way the "paperfuse" cobra tree does.
// Grounded on the teacher's internal/commands/mcp/command.go — the
// server.NewMCPServer/mcp.NewTool/AddTool/ServeStdio shape is kept exactly;
// only the registered tools change, from memory-item save/retrieve to the
// paper/fetch/schedule/settings/analyze operations this spec defines.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/paperfuse/core/internal/commands/app"
	"github.com/paperfuse/core/internal/fetchmanager"
	"github.com/paperfuse/core/internal/scheduler"
	"github.com/paperfuse/core/internal/types"
)

// Cmd starts the MCP server over stdio.
var Cmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over stdio",
	Long:  `Start a Model Context Protocol (MCP) server that communicates over stdio, exposing the paper/fetch/schedule/settings/analyze command surface as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMcpServer()
	},
}

func runMcpServer() error {
	s := server.NewMCPServer(
		"paperfuse",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(mcp.NewTool("papers_list",
		mcp.WithDescription("List saved, non-spam papers, most recent first."),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Rows to skip (default 0)")),
	), handlePapersList)

	s.AddTool(mcp.NewTool("papers_search",
		mcp.WithDescription("Full-text search over title, summary, ai_summary, topics, tags, and authors."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 20)")),
	), handlePapersSearch)

	s.AddTool(mcp.NewTool("papers_get",
		mcp.WithDescription("Fetch a single paper by its ArXiv id."),
		mcp.WithString("paper_id", mcp.Required()),
	), handlePapersGet)

	s.AddTool(mcp.NewTool("papers_delete",
		mcp.WithDescription("Delete a single paper by its ArXiv id."),
		mcp.WithString("paper_id", mcp.Required()),
	), handlePapersDelete)

	s.AddTool(mcp.NewTool("papers_toggle_spam",
		mcp.WithDescription("Set or clear a paper's spam flag."),
		mcp.WithString("paper_id", mcp.Required()),
		mcp.WithBoolean("spam", mcp.Required()),
	), handlePapersToggleSpam)

	s.AddTool(mcp.NewTool("fetch_start",
		mcp.WithDescription("Start a fetch synchronously using the persisted settings as defaults, returning the final counters."),
		mcp.WithBoolean("by_id", mcp.Description("Fetch specific ArXiv ids instead of a category search")),
		mcp.WithString("ids", mcp.Description("Comma-separated ArXiv ids, used when by_id is true")),
	), handleFetchStart)

	s.AddTool(mcp.NewTool("fetch_status",
		mcp.WithDescription("Report whether a fetch is currently in progress."),
	), handleFetchStatus)

	s.AddTool(mcp.NewTool("fetch_cancel",
		mcp.WithDescription("Cancel the in-progress fetch, if any."),
	), handleFetchCancel)

	s.AddTool(mcp.NewTool("schedule_status",
		mcp.WithDescription("Report the recurring schedule's configuration, next run time, and consecutive-failure count."),
	), handleScheduleStatus)

	s.AddTool(mcp.NewTool("schedule_enable",
		mcp.WithDescription("Validate preconditions and turn the recurring schedule on."),
	), handleScheduleEnable)

	s.AddTool(mcp.NewTool("schedule_disable",
		mcp.WithDescription("Turn the recurring schedule off."),
	), handleScheduleDisable)

	s.AddTool(mcp.NewTool("settings_get",
		mcp.WithDescription("Return the full persisted settings document as JSON."),
	), handleSettingsGet)

	s.AddTool(mcp.NewTool("settings_cache_stats",
		mcp.WithDescription("Return classification-cache statistics (total/unique papers/unique configs/oldest/newest)."),
	), handleSettingsCacheStats)

	s.AddTool(mcp.NewTool("analyze_single",
		mcp.WithDescription("Run Phase 2 deep analysis against an already-stored paper."),
		mcp.WithString("paper_id", mcp.Required()),
		mcp.WithString("mode", mcp.Description(`"standard" or "full" (default "standard")`)),
	), handleAnalyzeSingle)

	return server.ServeStdio(s)
}

func asJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func intArg(args map[string]any, key string, fallback int) int {
	if v, ok := args[key]; ok {
		if f, ok := v.(float64); ok {
			return int(f)
		}
	}
	return fallback
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func handlePapersList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	rows, err := a.Papers.List(intArg(args, "limit", 50), intArg(args, "offset", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return asJSON(rows)
}

func handlePapersSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	query := stringArg(args, "query")
	if query == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	rows, err := a.Papers.Search(query, intArg(args, "limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return asJSON(rows)
}

func handlePapersGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id := stringArg(args, "paper_id")
	if id == "" {
		return mcp.NewToolResultError("missing required parameter: paper_id"), nil
	}
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	p, err := a.Papers.Get(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return asJSON(p)
}

func handlePapersDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id := stringArg(args, "paper_id")
	if id == "" {
		return mcp.NewToolResultError("missing required parameter: paper_id"), nil
	}
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	if err := a.Papers.Delete(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("deleted"), nil
}

func handlePapersToggleSpam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id := stringArg(args, "paper_id")
	if id == "" {
		return mcp.NewToolResultError("missing required parameter: paper_id"), nil
	}
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	if err := a.Papers.ToggleSpam(id, boolArg(args, "spam")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func handleFetchStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	opts := a.Config.ToFetchOptions()
	if boolArg(args, "by_id") {
		opts.FetchByID = true
		opts.FetchByIDGate = true
		if idsStr := stringArg(args, "ids"); idsStr != "" {
			opts.IDs = splitCSV(idsStr)
		}
	}

	agg, ferr := a.Manager.FetchPapers(ctx, opts, a.Config.Topics, types.TriggerManual, a.Config.Retry, a.LatexDir, nil)
	if ferr != nil {
		return mcp.NewToolResultError(ferr.Error()), nil
	}
	return asJSON(agg)
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func handleFetchStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()
	if a.Manager.IsFetching() {
		return asJSON(map[string]bool{"is_fetching": true})
	}
	return asJSON(fetchmanager.Status())
}

func handleFetchCancel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()
	if err := a.Manager.Cancel(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("cancelled"), nil
}

func handleScheduleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	failures := a.ConsecutiveFailures()
	out := map[string]any{
		"enabled":              a.Config.Schedule.Enabled,
		"frequency":            a.Config.Schedule.Frequency,
		"time_of_day":          a.Config.Schedule.TimeOfDay,
		"weekdays":             a.Config.Schedule.Weekdays,
		"consecutive_failures": failures,
	}
	if a.Config.Schedule.Enabled {
		if next, err := scheduler.NextRunTime(time.Now().UTC(), a.Config.Schedule.Frequency, a.Config.Schedule.TimeOfDay, a.Config.Schedule.Weekdays); err == nil {
			out["next_run"] = next.Format(time.RFC3339)
		}
	}
	return asJSON(out)
}

func handleScheduleEnable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	if err := scheduler.ValidateEnable(scheduler.EnableConfig{
		Frequency: a.Config.Schedule.Frequency,
		TimeOfDay: a.Config.Schedule.TimeOfDay,
		Weekdays:  a.Config.Schedule.Weekdays,
		Topics:    a.Config.Topics,
		HasAPIKey: a.HasAPIKey(),
	}, a.ConsecutiveFailures()); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a.Config.Schedule.Enabled = true
	if err := a.SaveConfig(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("enabled"), nil
}

func handleScheduleDisable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	a.Config.Schedule.Enabled = false
	if err := a.SaveConfig(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("disabled"), nil
}

func handleSettingsGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()
	return asJSON(a.Config)
}

func handleSettingsCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	stats, err := a.Cache.Stats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return asJSON(stats)
}

func handleAnalyzeSingle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id := stringArg(args, "paper_id")
	if id == "" {
		return mcp.NewToolResultError("missing required parameter: paper_id"), nil
	}
	mode := stringArg(args, "mode")
	if mode == "" {
		mode = types.AnalysisModeStandard
	}

	a, err := app.Open()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer a.Close()

	p, err := a.Manager.AnalyzeSingle(ctx, id, mode, a.Config.Topics, a.LatexDir, "en")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return asJSON(p)
}
