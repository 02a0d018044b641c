package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmercier/parcours/internal/catalog"
	"github.com/pmercier/parcours/internal/config"
	"github.com/pmercier/parcours/internal/derivation"
	"github.com/pmercier/parcours/internal/display"
	"github.com/pmercier/parcours/internal/export"
	"github.com/pmercier/parcours/internal/history"
	"github.com/pmercier/parcours/internal/logger"
	"github.com/pmercier/parcours/internal/models"
	"github.com/pmercier/parcours/internal/session"
	"github.com/pmercier/parcours/internal/traversal"
)

// runOptions holds the flags of the run command.
type runOptions struct {
	questionsPath   string
	conclusionsPath string
	documentsPath   string
	configPath      string
	logLevel        string
	exportPath      string
	exportFormat    string
	historyDB       string
}

// NewRunCommand creates and returns the run subcommand
func NewRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the interactive eligibility wizard",
		Long: `Load the question and rule catalogs, walk through the questionnaire
one question at a time, and print the aid conclusions and document
requirements that apply to the recorded answers.

Exit code: 0 on completion, 1 on catalog or traversal errors`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWizard(cmd, opts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&opts.questionsPath, "questions", "", "path to the question catalog (required)")
	cmd.Flags().StringVar(&opts.conclusionsPath, "conclusions", "", "path to the aid-conclusion rule catalog")
	cmd.Flags().StringVar(&opts.documentsPath, "documents", "", "path to the document-requirement rule catalog")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a parcours config file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log verbosity: trace, debug, info, warn, error")
	cmd.Flags().StringVar(&opts.exportPath, "export", "", "write a result summary to this file")
	cmd.Flags().StringVar(&opts.exportFormat, "export-format", "", "export format: text or json")
	cmd.Flags().StringVar(&opts.historyDB, "history-db", "", "record the session in this SQLite database")
	cmd.MarkFlagRequired("questions")

	return cmd
}

// runWizard drives one interactive session on the command's input/output.
func runWizard(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := loadRunConfig(opts)
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	catalogs, err := loadCatalogs(opts.questionsPath, opts.conclusionsPath, opts.documentsPath, log)
	if err != nil {
		return err
	}

	if opts.conclusionsPath == "" && opts.documentsPath == "" {
		display.Warning{
			Title:      "No rule catalogs loaded",
			Message:    "The questionnaire will run, but no aid conclusions or document requirements can be derived.",
			Suggestion: "pass --conclusions and/or --documents to derive outcomes",
		}.Display(cmd.ErrOrStderr())
	}

	ctrl, err := session.New(catalogs, log)
	if err != nil {
		return err
	}

	renderer := display.NewRenderer(cmd.OutOrStdout())
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for q := ctrl.Current(); q != nil; q = ctrl.Current() {
		renderer.Question(q)
		if !scanner.Scan() {
			return fmt.Errorf("input closed before the questionnaire completed")
		}
		answer := strings.TrimSpace(scanner.Text())

		_, err := ctrl.SubmitToken(answer)
		if errors.Is(err, session.ErrAnswerType) {
			renderer.InvalidAnswer(err)
			continue
		}
		if errors.Is(err, traversal.ErrStepBudget) {
			// Catalog defect, not a user-facing "no results"
			return fmt.Errorf("questionnaire aborted: %w", err)
		}
		if err != nil {
			return err
		}
	}

	results, err := ctrl.Results()
	if err != nil {
		return err
	}
	renderer.Results(results)

	completedAt := time.Now()
	log.LogSessionComplete(ctrl.Answered(), results.Total(), completedAt.Sub(ctrl.StartedAt()))

	if opts.exportPath != "" {
		summary := export.BuildSummary(ctrl.ID(), completedAt, ctrl.Answers(), results)
		if err := summary.WriteFile(opts.exportPath, cfg.ExportFormat); err != nil {
			return err
		}
		log.LogInfo(fmt.Sprintf("Summary written to %s", opts.exportPath))
	}

	if cfg.History.Enabled {
		if err := recordSession(cfg.History.DBPath, ctrl, results, completedAt); err != nil {
			// History is a convenience; a failed write must not discard the
			// results already shown to the user
			log.LogError(fmt.Sprintf("failed to record session: %v", err))
		}
	}

	return nil
}

// loadRunConfig loads the config file (or defaults) and applies flags.
func loadRunConfig(opts *runOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.LoadConfig(opts.configPath)
	} else {
		cfg, err = config.LoadConfigFromDir(".")
	}
	if err != nil {
		return nil, err
	}

	var logLevel, exportFormat, historyDB *string
	if opts.logLevel != "" {
		logLevel = &opts.logLevel
	}
	if opts.exportFormat != "" {
		exportFormat = &opts.exportFormat
	}
	if opts.historyDB != "" {
		historyDB = &opts.historyDB
	}
	cfg.MergeWithFlags(logLevel, exportFormat, historyDB)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadCatalogs loads and validates every catalog the session needs.
// Missing rule catalogs are allowed: the wizard then only reports the rules
// of the catalogs it was given.
func loadCatalogs(questionsPath, conclusionsPath, documentsPath string, log *logger.ConsoleLogger) (session.Catalogs, error) {
	questions, err := catalog.LoadQuestionnaire(questionsPath)
	if err != nil {
		return session.Catalogs{}, err
	}
	if err := catalog.ValidateQuestionnaire(questions); err != nil {
		return session.Catalogs{}, fmt.Errorf("question catalog %s is invalid:\n%v", questionsPath, err)
	}
	questionnaire, err := models.NewQuestionnaire(questions)
	if err != nil {
		return session.Catalogs{}, err
	}

	catalogs := session.Catalogs{
		Questions: questionnaire,
		Tokens:    derivation.DefaultTokenRegistry(log),
	}

	for _, rulePath := range []string{conclusionsPath, documentsPath} {
		if rulePath == "" {
			continue
		}
		set, err := catalog.LoadRules(rulePath)
		if err != nil {
			return session.Catalogs{}, err
		}
		if err := catalog.ValidateRules(set); err != nil {
			return session.Catalogs{}, fmt.Errorf("rule catalog %s is invalid:\n%v", rulePath, err)
		}
		catalogs.Conclusions = append(catalogs.Conclusions, set.Conclusions...)
		catalogs.Documents = append(catalogs.Documents, set.Documents...)
	}

	return catalogs, nil
}

// recordSession writes one completed session to the history store.
func recordSession(dbPath string, ctrl *session.Controller, results *session.Results, completedAt time.Time) error {
	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SaveSession(history.SessionRecord{
		ID:                ctrl.ID(),
		StartedAt:         ctrl.StartedAt(),
		CompletedAt:       completedAt,
		QuestionsAnswered: ctrl.Answered(),
		Answers:           ctrl.Answers(),
		Conclusions:       results.Conclusions,
		Documents:         results.Documents,
	})
}
