package papers

import (
	"github.com/spf13/cobra"

	"github.com/paperfuse/core/internal/commands/app"
	"github.com/paperfuse/core/internal/types"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage named paper collections",
}

var collectionDesc string

func init() {
	collCreateCmd.Flags().StringVar(&collectionDesc, "description", "", "collection description")
	collUpdateCmd.Flags().StringVar(&collectionDesc, "description", "", "collection description")
	collectionsCmd.AddCommand(collCreateCmd, collListCmd, collGetCmd, collUpdateCmd, collDeleteCmd,
		collAddPaperCmd, collRemovePaperCmd, collPapersCmd, collForPaperCmd)
}

var collCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			c, err := a.Papers.CreateCollection(types.Collection{Name: args[0], Description: collectionDesc})
			if err != nil {
				return err
			}
			return printJSON(c)
		})
	},
}

var collListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			cs, err := a.Papers.ListCollections()
			if err != nil {
				return err
			}
			return printJSON(cs)
		})
	},
}

var collGetCmd = &cobra.Command{
	Use:   "get <collection-id>",
	Short: "Fetch a single collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			c, err := a.Papers.GetCollection(args[0])
			if err != nil {
				return err
			}
			return printJSON(c)
		})
	},
}

var collUpdateCmd = &cobra.Command{
	Use:   "update <collection-id> <name>",
	Short: "Rename/redescribe a collection",
	Args:  cobra.RangeArgs(2, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return a.Papers.UpdateCollection(args[0], args[1], collectionDesc)
		})
	},
}

var collDeleteCmd = &cobra.Command{
	Use:   "delete <collection-id>",
	Short: "Delete a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return a.Papers.DeleteCollection(args[0])
		})
	},
}

var collAddPaperCmd = &cobra.Command{
	Use:   "add-paper <collection-id> <paper-id>",
	Short: "Add a paper to a collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return a.Papers.AddPaperToCollection(args[0], args[1])
		})
	},
}

var collRemovePaperCmd = &cobra.Command{
	Use:   "remove-paper <collection-id> <paper-id>",
	Short: "Remove a paper from a collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return a.Papers.RemovePaperFromCollection(args[0], args[1])
		})
	},
}

var collPapersCmd = &cobra.Command{
	Use:   "papers <collection-id>",
	Short: "List papers belonging to a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			rows, err := a.Papers.PapersInCollection(args[0])
			if err != nil {
				return err
			}
			return printJSON(rows)
		})
	},
}

var collForPaperCmd = &cobra.Command{
	Use:   "for-paper <paper-id>",
	Short: "List collections a paper belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			rows, err := a.Papers.CollectionsForPaper(args[0])
			if err != nil {
				return err
			}
			return printJSON(rows)
		})
	},
}
