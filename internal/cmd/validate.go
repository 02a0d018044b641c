package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pmercier/parcours/internal/catalog"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog-file>...",
		Short: "Validate question and rule catalogs",
		Long: `Parse and validate catalog files, checking for:
  - Question fields, unique ids, strictly increasing sequence indexes
  - Branch map keys legal for the answer type, branch targets that exist
  - Rule fields, unique rule ids, legal categories
  - Condition expressions that parse

Files may contain a question catalog (questions:) or a rule catalog
(conclusions: / documents:); the kind is detected from the content.

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateCatalogs(args, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	return cmd
}

// validateCatalogs validates each catalog file and reports aggregated results.
func validateCatalogs(paths []string, output io.Writer) error {
	errorCount := 0

	for _, path := range paths {
		if err := validateCatalogFile(path, output); err != nil {
			errorCount++
		}
	}

	if errorCount == 0 {
		fmt.Fprintf(output, "\n✓ All catalogs are valid!\n")
		return nil
	}

	fmt.Fprintf(output, "\nFound errors in %d catalog file(s)!\n", errorCount)
	return fmt.Errorf("validation failed for %d catalog file(s)", errorCount)
}

// validateCatalogFile detects the catalog kind from its top-level keys and
// runs the matching validation.
func validateCatalogFile(path string, output io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(output, "✗ %s: %v\n", path, err)
		return err
	}

	var probe map[string]interface{}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		fmt.Fprintf(output, "✗ %s: not valid YAML: %v\n", path, err)
		return err
	}

	_, hasQuestions := probe["questions"]
	_, hasConclusions := probe["conclusions"]
	_, hasDocuments := probe["documents"]

	switch {
	case hasQuestions:
		questions, err := catalog.ParseQuestionnaire(data)
		if err != nil {
			fmt.Fprintf(output, "✗ %s: %v\n", path, err)
			return err
		}
		if err := catalog.ValidateQuestionnaire(questions); err != nil {
			fmt.Fprintf(output, "✗ %s:\n%v", path, err)
			return err
		}
		fmt.Fprintf(output, "✓ %s: %d questions valid\n", path, len(questions))
	case hasConclusions || hasDocuments:
		set, err := catalog.ParseRules(data)
		if err != nil {
			fmt.Fprintf(output, "✗ %s: %v\n", path, err)
			return err
		}
		if err := catalog.ValidateRules(set); err != nil {
			fmt.Fprintf(output, "✗ %s:\n%v", path, err)
			return err
		}
		fmt.Fprintf(output, "✓ %s: %d conclusion(s), %d document rule(s) valid\n",
			path, len(set.Conclusions), len(set.Documents))
	default:
		err := fmt.Errorf("no questions, conclusions, or documents section found")
		fmt.Fprintf(output, "✗ %s: %v\n", path, err)
		return err
	}

	return nil
}
