// Package settingscmd implements the Settings slice of the command surface
// (spec §6): get/save all settings, list/add/remove topics, get cache
// stats, clear cache. No command reads or writes one settings field on
// its own; "save" replaces the whole document. Settings here are a thin cobra front end over
// internal/config (load/save) and internal/cache (stats/clear) — the host
// UI that normally drives this surface is out of scope per spec §1, so
// these commands read/write the same JSON document a UI would send over
// IPC, taking it from stdin for "save" and a topic sub-command for the
// one structured field (topics) a terminal can reasonably edit by hand.
package settingscmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperfuse/core/internal/commands/app"
	"github.com/paperfuse/core/internal/types"
)

// Cmd is the "settings" command group.
var Cmd = &cobra.Command{
	Use:   "settings",
	Short: "View and edit persisted settings",
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
	topicCategories []string
	topicKeywords   []string
	topicEnabled    bool
)

func init() {
	addTopicCmd.Flags().StringSliceVar(&topicCategories, "categories", nil, "ArXiv categories this topic matches")
	addTopicCmd.Flags().StringSliceVar(&topicKeywords, "keywords", nil, "relevance-gate keywords")
	addTopicCmd.Flags().BoolVar(&topicEnabled, "enabled", true, "whether the topic is active")

	Cmd.AddCommand(getCmd, saveCmd, listTopicsCmd, addTopicCmd, removeTopicCmd,
		cacheStatsCmd, cacheClearCmd)
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the full settings document",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return printJSON(a.Config)
		})
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Replace the settings document with JSON read from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			if err := json.Unmarshal(data, a.Config); err != nil {
				return fmt.Errorf("parse settings: %w", err)
			}
			return a.SaveConfig()
		})
	},
}

var listTopicsCmd = &cobra.Command{
	Use:   "list-topics",
	Short: "List configured topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return printJSON(a.Config.Topics)
		})
	},
}

var addTopicCmd = &cobra.Command{
	Use:   "add-topic <key> <label>",
	Short: "Add or replace a topic by key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			t := types.TopicConfig{
				Key:             args[0],
				Label:           args[1],
				Enabled:         topicEnabled,
				ArxivCategories: topicCategories,
				Keywords:        topicKeywords,
			}
			replaced := false
			for i, existing := range a.Config.Topics {
				if existing.Key == t.Key {
					a.Config.Topics[i] = t
					replaced = true
					break
				}
			}
			if !replaced {
				a.Config.Topics = append(a.Config.Topics, t)
			}
			return a.SaveConfig()
		})
	},
}

var removeTopicCmd = &cobra.Command{
	Use:   "remove-topic <key>",
	Short: "Remove a topic by key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			out := a.Config.Topics[:0]
			for _, existing := range a.Config.Topics {
				if existing.Key != args[0] {
					out = append(out, existing)
				}
			}
			a.Config.Topics = out
			return a.SaveConfig()
		})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "cache-stats",
	Short: "Print classification cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			stats, err := a.Cache.Stats()
			if err != nil {
				return err
			}
			return printJSON(stats)
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "cache-clear",
	Short: "Clear the entire classification cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			n, err := a.Cache.ClearAll()
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		})
	},
}
