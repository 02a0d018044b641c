package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for parcours
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parcours",
		Short: "Social-aid eligibility wizard and rules engine",
		Long: `Parcours runs citizen eligibility questionnaires from declarative
YAML catalogs and derives the aid conclusions and document requirements
that apply to the recorded answers.

It provides an interactive wizard, a non-interactive derivation mode for
testing rule catalogs against canned answers, catalog validation, and a
local history of completed sessions.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewDeriveCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
