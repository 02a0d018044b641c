package cmd

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pmercier/parcours/internal/catalog"
	"github.com/pmercier/parcours/internal/condition"
	"github.com/pmercier/parcours/internal/derivation"
	"github.com/pmercier/parcours/internal/export"
	"github.com/pmercier/parcours/internal/logger"
	"github.com/pmercier/parcours/internal/session"
)

// deriveOptions holds the flags of the derive command.
type deriveOptions struct {
	questionsPath   string
	conclusionsPath string
	documentsPath   string
	answersPath     string
	outputPath      string
	format          string
	logLevel        string
}

// NewDeriveCommand creates and returns the derive subcommand.
// Derive is the non-interactive harness for rule authors: it evaluates the
// rule catalogs against a canned answer file instead of walking the
// questionnaire, so condition changes can be checked in seconds.
func NewDeriveCommand() *cobra.Command {
	opts := &deriveOptions{}

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive outcomes from a canned answer file",
		Long: `Evaluate the aid-conclusion and document-requirement catalogs against
a YAML answer file, without running the interactive questionnaire.

The answer file maps question keys to textual answers:

  answers:
    q_residence_lux: opt_oui
    q_age: "34"

Exit code: 0 on success, 1 on catalog or answer errors`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(cmd, opts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&opts.questionsPath, "questions", "", "path to the question catalog (required)")
	cmd.Flags().StringVar(&opts.conclusionsPath, "conclusions", "", "path to the aid-conclusion rule catalog")
	cmd.Flags().StringVar(&opts.documentsPath, "documents", "", "path to the document-requirement rule catalog")
	cmd.Flags().StringVar(&opts.answersPath, "answers", "", "path to the YAML answer file (required)")
	cmd.Flags().StringVar(&opts.outputPath, "output", "", "write the summary to this file instead of stdout")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text or json")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log verbosity: trace, debug, info, warn, error")
	cmd.MarkFlagRequired("questions")
	cmd.MarkFlagRequired("answers")

	return cmd
}

func runDerive(cmd *cobra.Command, opts *deriveOptions) error {
	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), opts.logLevel)

	catalogs, err := loadCatalogs(opts.questionsPath, opts.conclusionsPath, opts.documentsPath, log)
	if err != nil {
		return err
	}

	answers, err := catalog.LoadAnswers(opts.answersPath, catalogs.Questions)
	if err != nil {
		return err
	}

	eval := condition.NewEvaluator(condition.FailClosed, log)
	results := &session.Results{
		Conclusions: derivation.Derive(catalogs.Conclusions, answers, eval),
		Documents:   derivation.Derive(catalogs.Documents, catalogs.Tokens.Resolve(answers), eval),
	}

	summary := export.BuildSummary(uuid.New().String(), time.Now(), answers, results)
	if opts.outputPath != "" {
		return summary.WriteFile(opts.outputPath, opts.format)
	}
	if opts.format == "json" {
		return summary.WriteJSON(cmd.OutOrStdout())
	}
	return summary.WriteText(cmd.OutOrStdout())
}
