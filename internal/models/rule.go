package models

import (
	"errors"
	"fmt"
)

// Category classifies an outcome record. Aid conclusions use the tri-state
// eligible/maybe/not-eligible; document requirements use mandatory/optional.
// Categories are assigned by the rule author, never computed.
type Category string

const (
	// CategoryEligible marks an aid the applicant qualifies for
	CategoryEligible Category = "eligible"
	// CategoryMaybe marks an aid that needs a case worker's review
	CategoryMaybe Category = "maybe"
	// CategoryNotEligible marks an aid the applicant does not qualify for
	CategoryNotEligible Category = "not-eligible"
	// CategoryMandatory marks a document that must be provided
	CategoryMandatory Category = "mandatory"
	// CategoryOptional marks a document that strengthens the file but is not required
	CategoryOptional Category = "optional"
)

// conclusionCategories enumerates the categories legal for aid-conclusion rules.
var conclusionCategories = map[Category]bool{
	CategoryEligible:    true,
	CategoryMaybe:       true,
	CategoryNotEligible: true,
}

// Link is a reference attached to an aid conclusion (application form,
// information page).
type Link struct {
	Label string
	URL   string
}

// Payload carries the author-provided content of an outcome rule. Aid
// conclusions fill Description and Links; document requirements fill
// Document. Description may contain Markdown.
type Payload struct {
	Description string
	Links       []Link
	Document    string
}

// OutcomeRule is a (condition, category, payload) triple. An empty condition
// means the rule always applies. Rules are independent of each other; no
// mutual exclusion is assumed or enforced.
type OutcomeRule struct {
	ID        string
	Title     string
	Condition string
	Category  Category
	Payload   Payload
}

// ValidateConclusion checks an aid-conclusion rule.
func (r *OutcomeRule) ValidateConclusion() error {
	if err := r.validateCommon(); err != nil {
		return err
	}
	if !conclusionCategories[r.Category] {
		return fmt.Errorf("rule %s: invalid conclusion category %q", r.ID, r.Category)
	}
	return nil
}

// ValidateDocument checks a document-requirement rule.
func (r *OutcomeRule) ValidateDocument() error {
	if err := r.validateCommon(); err != nil {
		return err
	}
	if r.Category != CategoryMandatory && r.Category != CategoryOptional {
		return fmt.Errorf("rule %s: invalid document category %q", r.ID, r.Category)
	}
	if r.Payload.Document == "" {
		return fmt.Errorf("rule %s: document name is required", r.ID)
	}
	return nil
}

func (r *OutcomeRule) validateCommon() error {
	if r.ID == "" {
		return errors.New("rule id is required")
	}
	if r.Title == "" {
		return fmt.Errorf("rule %s: title is required", r.ID)
	}
	return nil
}

// OutcomeRecord is one derived result: a rule that applied to the final
// answer set. Output order always tracks rule declaration order.
type OutcomeRecord struct {
	RuleID   string
	Title    string
	Category Category
	Payload  Payload
}
