// Package derivation computes the outcomes that apply to a completed
// session: aid conclusions and required documents.
//
// Derivation is a pure function over a rule catalog and an answer snapshot.
// It is idempotent, never mutates its inputs, and emits records in rule
// declaration order so that grouped results stay explainable ("why was I
// shown this") and stable across runs.
package derivation

import (
	"github.com/pmercier/parcours/internal/condition"
	"github.com/pmercier/parcours/internal/models"
)

// Derive evaluates each rule's condition against the answer snapshot and
// returns a record for every rule that applies. An empty condition applies
// unconditionally. Rules are independent: no deduplication, no conflict
// resolution, no re-sorting.
//
// The evaluator must use the fail-closed policy: a broken condition must
// never silently grant an aid or a document requirement.
func Derive(rules []models.OutcomeRule, answers models.AnswerStore, eval *condition.Evaluator) []models.OutcomeRecord {
	records := make([]models.OutcomeRecord, 0, len(rules))
	for _, rule := range rules {
		if rule.Condition != "" && !eval.Evaluate(rule.Condition, answers) {
			continue
		}
		records = append(records, models.OutcomeRecord{
			RuleID:   rule.ID,
			Title:    rule.Title,
			Category: rule.Category,
			Payload:  rule.Payload,
		})
	}
	return records
}

// GroupByCategory splits records into per-category buckets while preserving
// declaration order inside each bucket.
func GroupByCategory(records []models.OutcomeRecord) map[models.Category][]models.OutcomeRecord {
	groups := make(map[models.Category][]models.OutcomeRecord)
	for _, rec := range records {
		groups[rec.Category] = append(groups[rec.Category], rec)
	}
	return groups
}
