package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmercier/parcours/internal/export"
	"github.com/pmercier/parcours/internal/history"
	"github.com/pmercier/parcours/internal/session"
)

// NewHistoryCommand creates and returns the history subcommand with its
// list, show, and prune children.
func NewHistoryCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded wizard sessions",
		Long: `Work with the local session history database: list completed
sessions, show one session's answers and outcomes, or prune old entries.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", ".parcours/history.db", "path to the session history database")

	cmd.AddCommand(newHistoryListCommand(&dbPath))
	cmd.AddCommand(newHistoryShowCommand(&dbPath))
	cmd.AddCommand(newHistoryPruneCommand(&dbPath))

	return cmd
}

func newHistoryListCommand(dbPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewStore(*dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListSessions(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded sessions.")
				return nil
			}

			for _, rec := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d answers, %d outcomes\n",
					rec.ID,
					rec.CompletedAt.Format("2006-01-02 15:04:05"),
					rec.QuestionsAnswered,
					len(rec.Conclusions)+len(rec.Documents))
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of sessions to list (0 = all)")
	return cmd
}

func newHistoryShowCommand(dbPath *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's answers and outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewStore(*dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.GetSession(args[0])
			if err != nil {
				return err
			}

			results := &session.Results{Conclusions: rec.Conclusions, Documents: rec.Documents}
			summary := export.BuildSummary(rec.ID, rec.CompletedAt, rec.Answers, results)
			if format == "json" {
				return summary.WriteJSON(cmd.OutOrStdout())
			}
			return summary.WriteText(cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

func newHistoryPruneCommand(dbPath *string) *cobra.Command {
	var keepDays int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewStore(*dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			deleted, err := store.Prune(keepDays)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d session(s) older than %d days.\n", deleted, keepDays)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().IntVar(&keepDays, "keep-days", 90, "retention window in days")
	return cmd
}
