package catalog

import (
	"fmt"
	"strings"

	"github.com/pmercier/parcours/internal/condition"
	"github.com/pmercier/parcours/internal/models"
)

// ValidationError represents a single catalog validation failure with context.
type ValidationError struct {
	EntryID string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.EntryID, e.Message)
	}
	return fmt.Sprintf("%s: %s - %s", e.EntryID, e.Field, e.Message)
}

// ValidationResult aggregates all validation errors found in a catalog.
type ValidationResult struct {
	Errors []ValidationError
}

// Error returns the aggregated error message.
func (r *ValidationResult) Error() string {
	if len(r.Errors) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("catalog validation failed with %d error(s):\n", len(r.Errors)))
	for _, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if validation found errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *ValidationResult) add(entryID, field, message string) {
	r.Errors = append(r.Errors, ValidationError{EntryID: entryID, Field: field, Message: message})
}

// ValidateQuestionnaire checks a question catalog:
//   - per-question fields and branch keys (Question.Validate)
//   - unique ids, strictly increasing sequence indexes
//   - branch targets referencing existing questions
//   - visibility conditions that parse
//
// Unparseable conditions are reported as errors here even though the runtime
// resolves them fail-open: over-showing at runtime is the safe behavior, but
// the author should still fix the string.
// Returns nil when the catalog is clean.
func ValidateQuestionnaire(questions []models.Question) error {
	result := &ValidationResult{}
	checker := condition.NewEvaluator(condition.FailOpen, nil)

	ids := make(map[string]bool, len(questions))
	sequences := make(map[int]string, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			result.add("question "+q.ID, "", err.Error())
		}
		if ids[q.ID] {
			result.add("question "+q.ID, "id", "duplicate question id")
		}
		ids[q.ID] = true

		if other, taken := sequences[q.SequenceIndex]; taken {
			result.add("question "+q.ID, "sequence",
				fmt.Sprintf("sequence index %d already used by question %s", q.SequenceIndex, other))
		}
		sequences[q.SequenceIndex] = q.ID
	}

	for _, q := range questions {
		for value, target := range q.Branch {
			if !ids[target] {
				result.add("question "+q.ID, "branch",
					fmt.Sprintf("branch for %q targets unknown question %q", value, target))
			}
		}
		if q.VisibleIf != "" {
			if err := checker.Check(q.VisibleIf); err != nil {
				result.add("question "+q.ID, "visible_if", err.Error())
			}
		}
	}

	if result.HasErrors() {
		return result
	}
	return nil
}

// ValidateRules checks both rule catalogs: per-rule fields, unique ids, and
// condition syntax. Returns nil when the catalogs are clean.
func ValidateRules(set *RuleSet) error {
	result := &ValidationResult{}
	checker := condition.NewEvaluator(condition.FailClosed, nil)

	ids := make(map[string]bool)
	checkRule := func(rule models.OutcomeRule, validate func() error) {
		if err := validate(); err != nil {
			result.add("rule "+rule.ID, "", err.Error())
		}
		if ids[rule.ID] {
			result.add("rule "+rule.ID, "id", "duplicate rule id")
		}
		ids[rule.ID] = true

		if rule.Condition != "" {
			if err := checker.Check(rule.Condition); err != nil {
				result.add("rule "+rule.ID, "condition", err.Error())
			}
		}
	}

	for i := range set.Conclusions {
		rule := set.Conclusions[i]
		checkRule(rule, rule.ValidateConclusion)
	}
	for i := range set.Documents {
		rule := set.Documents[i]
		checkRule(rule, rule.ValidateDocument)
	}

	if result.HasErrors() {
		return result
	}
	return nil
}
