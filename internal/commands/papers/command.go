// Package papers implements the Papers and Collections slices of the
// command surface (spec §6): get/list/search/by-tag/save/delete/
// batch-delete/toggle-spam/count, spam listing/count, download-PDF/
// get-PDF-local-path/open-local-file, and collection CRUD plus
// paper-membership. Every handler is a thin adapter over
// internal/paperstore and internal/pdf — no business logic lives here.
package papers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperfuse/core/internal/commands/app"
	"github.com/paperfuse/core/internal/pdf"
)

// Cmd is the "papers" command group.
var Cmd = &cobra.Command{
	Use:   "papers",
	Short: "Query and manage saved papers",
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
	limit        int
	offset       int
	spamFlagTrue bool
)

func init() {
	listCmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to return")
	listCmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	searchCmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to return")

	byTagCmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to return")
	byTagCmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	toggleSpamCmd.Flags().BoolVar(&spamFlagTrue, "spam", true, "spam flag to set")

	Cmd.AddCommand(listCmd, spamListCmd, countCmd, spamCountCmd, getCmd, searchCmd,
		byTagCmd, toggleSpamCmd, deleteCmd, batchDeleteCmd, downloadPDFCmd,
		pdfPathCmd, openFileCmd, collectionsCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved papers (spam excluded, per internal/paperstore.List)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			rows, err := a.Papers.List(limit, offset)
			if err != nil {
				return err
			}
			return printJSON(rows)
		})
	},
}

var spamListCmd = &cobra.Command{
	Use:   "list-spam",
	Short: "List papers marked as spam",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			rows, err := a.Papers.ListSpam(limit, offset)
			if err != nil {
				return err
			}
			return printJSON(rows)
		})
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count saved papers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			n, err := a.Papers.Count()
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		})
	},
}

var spamCountCmd = &cobra.Command{
	Use:   "count-spam",
	Short: "Count papers marked as spam",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			n, err := a.Papers.CountSpam()
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <paper-id>",
	Short: "Fetch a single paper by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			p, err := a.Papers.Get(args[0])
			if err != nil {
				return err
			}
			return printJSON(p)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over title, summary, ai_summary, topics, tags, authors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			rows, err := a.Papers.Search(args[0], limit)
			if err != nil {
				return err
			}
			return printJSON(rows)
		})
	},
}

var byTagCmd = &cobra.Command{
	Use:   "by-tag <tag>",
	Short: "List papers carrying a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			rows, err := a.Papers.ByTag(args[0], limit, offset)
			if err != nil {
				return err
			}
			return printJSON(rows)
		})
	},
}

var toggleSpamCmd = &cobra.Command{
	Use:   "toggle-spam <paper-id>",
	Short: "Set or clear a paper's spam flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return a.Papers.ToggleSpam(args[0], spamFlagTrue)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <paper-id>",
	Short: "Delete a single paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return a.Papers.Delete(args[0])
		})
	},
}

var batchDeleteCmd = &cobra.Command{
	Use:   "batch-delete <paper-id>...",
	Short: "Delete multiple papers, continuing past individual failures",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			errs := map[string]string{}
			for _, id := range args {
				if err := a.Papers.Delete(id); err != nil {
					errs[id] = err.Error()
				}
			}
			return printJSON(errs)
		})
	},
}

var downloadPDFCmd = &cobra.Command{
	Use:   "download-pdf <paper-id>",
	Short: "Download and cache a paper's PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			p, err := a.Papers.Get(args[0])
			if err != nil {
				return err
			}
			path, err := a.PDF.Download(context.Background(), p.ArxivID, p.PDFURL, a.PDFDir)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		})
	},
}

var pdfPathCmd = &cobra.Command{
	Use:   "pdf-path <arxiv-id>",
	Short: "Print the local cache path for a paper's PDF, without downloading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			fmt.Println(pdf.LocalPath(a.PDFDir, args[0]))
			return nil
		})
	},
}

var openFileCmd = &cobra.Command{
	Use:   "open-file <path>",
	Short: "Open a local file in the OS default handler",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pdf.OpenLocalFile(args[0])
	},
}
