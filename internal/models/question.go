package models

import (
	"fmt"
	"sort"
	"strconv"
)

// AnswerType declares the kind of value a question accepts.
type AnswerType string

const (
	// AnswerBoolean accepts true/false answers
	AnswerBoolean AnswerType = "boolean"
	// AnswerSingleChoice accepts one option key from the question's Options map
	AnswerSingleChoice AnswerType = "single-choice"
	// AnswerNumeric accepts a numeric answer
	AnswerNumeric AnswerType = "numeric"
)

// Valid reports whether the answer type is one of the declared kinds.
func (at AnswerType) Valid() bool {
	switch at {
	case AnswerBoolean, AnswerSingleChoice, AnswerNumeric:
		return true
	}
	return false
}

// Question represents a single questionnaire entry.
// Questions are loaded once per session from a catalog and are immutable afterwards.
type Question struct {
	ID            string            // Unique question identifier (e.g. "Q3")
	SequenceIndex int               // Position in the default forward order; strictly increasing across the catalog
	Key           string            // Stable answer-store key (e.g. "q_residence_lux")
	Prompt        string            // Text presented to the user
	Type          AnswerType        // Declared answer kind
	Options       map[string]string // Option key -> label, for single-choice questions
	VisibleIf     string            // Optional visibility condition; empty means always visible
	Branch        map[string]string // Answer value -> target question ID override (explicit branch always wins)
}

// Validate checks that the question has all required fields and that its
// branch map keys are legal values for the declared answer type.
func (q *Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question id is required")
	}
	if q.Key == "" {
		return fmt.Errorf("question %s: key is required", q.ID)
	}
	if q.Prompt == "" {
		return fmt.Errorf("question %s: prompt is required", q.ID)
	}
	if !q.Type.Valid() {
		return fmt.Errorf("question %s: invalid answer type %q", q.ID, q.Type)
	}
	if q.Type == AnswerSingleChoice && len(q.Options) == 0 {
		return fmt.Errorf("question %s: single-choice question requires options", q.ID)
	}
	for value := range q.Branch {
		if err := q.CheckAnswerToken(value); err != nil {
			return fmt.Errorf("question %s: branch key %q: %w", q.ID, value, err)
		}
	}
	return nil
}

// CheckAnswerToken verifies that a textual answer value is legal for the
// question's answer type. Branch map keys and canned answer files use the
// textual form ("true", "42", "opt_oui").
func (q *Question) CheckAnswerToken(value string) error {
	switch q.Type {
	case AnswerBoolean:
		if value != "true" && value != "false" {
			return fmt.Errorf("expected true or false, got %q", value)
		}
	case AnswerNumeric:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("expected a number, got %q", value)
		}
	case AnswerSingleChoice:
		if _, ok := q.Options[value]; !ok {
			return fmt.Errorf("%q is not one of the declared options", value)
		}
	}
	return nil
}

// Questionnaire is an immutable, ordered question catalog.
type Questionnaire struct {
	questions []Question
	byID      map[string]*Question
}

// NewQuestionnaire builds a Questionnaire from a question list.
// Questions are sorted by sequence index; duplicate IDs or duplicate
// sequence indexes are rejected.
func NewQuestionnaire(questions []Question) (*Questionnaire, error) {
	sorted := make([]Question, len(questions))
	copy(sorted, questions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SequenceIndex < sorted[j].SequenceIndex
	})

	byID := make(map[string]*Question, len(sorted))
	for i := range sorted {
		q := &sorted[i]
		if _, exists := byID[q.ID]; exists {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		byID[q.ID] = q
		if i > 0 && sorted[i-1].SequenceIndex == q.SequenceIndex {
			return nil, fmt.Errorf("questions %q and %q share sequence index %d", sorted[i-1].ID, q.ID, q.SequenceIndex)
		}
	}

	return &Questionnaire{questions: sorted, byID: byID}, nil
}

// Len returns the number of questions in the catalog.
func (c *Questionnaire) Len() int {
	return len(c.questions)
}

// At returns the question at the given position in sequence order.
func (c *Questionnaire) At(i int) *Question {
	return &c.questions[i]
}

// ByID looks up a question by its identifier.
func (c *Questionnaire) ByID(id string) (*Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// IndexOf returns the position of a question in sequence order, or -1 if
// the question is not part of the catalog.
func (c *Questionnaire) IndexOf(id string) int {
	q, ok := c.byID[id]
	if !ok {
		return -1
	}
	for i := range c.questions {
		if &c.questions[i] == q {
			return i
		}
	}
	return -1
}
