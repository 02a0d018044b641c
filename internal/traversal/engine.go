// Package traversal implements the questionnaire traversal state machine.
//
// The engine computes forward transitions only: given the current question
// and a freshly recorded answer, it returns the next question to present, or
// nil when the session is complete. Backward navigation is a host concern.
package traversal

import (
	"errors"
	"fmt"

	"github.com/pmercier/parcours/internal/condition"
	"github.com/pmercier/parcours/internal/models"
)

// ErrStepBudget is returned when the number of transitions exceeds twice the
// catalog size. Default traversal strictly advances through the sequence, so
// exceeding the budget means a branch map forms a cycle. That is a catalog
// authoring defect and must not be masked as "no next question".
var ErrStepBudget = errors.New("traversal step budget exceeded")

// Engine traverses one questionnaire for one session. The catalog and
// evaluator are shared and immutable; the step counter is per-session, so
// create one Engine per session.
type Engine struct {
	catalog *models.Questionnaire
	eval    *condition.Evaluator
	steps   int
	budget  int
}

// NewEngine creates a traversal engine over a question catalog.
// The evaluator must use the fail-open policy: an unparseable visibility
// condition must never hide a question.
func NewEngine(catalog *models.Questionnaire, eval *condition.Evaluator) *Engine {
	return &Engine{
		catalog: catalog,
		eval:    eval,
		budget:  2 * catalog.Len(),
	}
}

// First returns the initial question: the lowest-sequence question whose
// visibility condition is absent or satisfied by the given store (normally
// empty at session start). Returns nil for an empty or fully hidden catalog.
func (e *Engine) First(answers models.AnswerStore) *models.Question {
	return e.scanFrom(0, answers)
}

// Next records the answer for the current question and computes the
// transition. An explicit branch-map entry for the answer value always wins,
// regardless of the target's own visibility condition or position in the
// sequence. Otherwise the catalog is scanned forward from the current
// question for the first visible question. A nil question with a nil error
// means the session is done.
func (e *Engine) Next(current *models.Question, value any, answers models.AnswerStore) (*models.Question, error) {
	e.steps++
	if e.steps > e.budget {
		return nil, fmt.Errorf("%w: %d transitions over a catalog of %d questions (check branch maps for cycles)",
			ErrStepBudget, e.steps, e.catalog.Len())
	}

	answers.Set(current.Key, value)

	if target := current.Branch[models.FormatAnswer(value)]; target != "" {
		q, ok := e.catalog.ByID(target)
		if !ok {
			return nil, fmt.Errorf("question %s: branch target %q not in catalog", current.ID, target)
		}
		return q, nil
	}

	idx := e.catalog.IndexOf(current.ID)
	if idx < 0 {
		return nil, fmt.Errorf("question %s not in catalog", current.ID)
	}
	return e.scanFrom(idx+1, answers), nil
}

// Steps returns the number of transitions taken so far.
func (e *Engine) Steps() int {
	return e.steps
}

// scanFrom returns the first question at or after position i whose
// visibility condition is absent or evaluates true.
func (e *Engine) scanFrom(i int, answers models.AnswerStore) *models.Question {
	for ; i < e.catalog.Len(); i++ {
		q := e.catalog.At(i)
		if q.VisibleIf == "" || e.eval.Evaluate(q.VisibleIf, answers) {
			return q
		}
	}
	return nil
}
