// Package session hosts one wizard session: it owns the answer store,
// drives the traversal engine forward, and runs outcome derivation once the
// questionnaire completes. Callers (CLI, UI layers) submit one answer per
// step and render whatever the controller returns.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pmercier/parcours/internal/condition"
	"github.com/pmercier/parcours/internal/derivation"
	"github.com/pmercier/parcours/internal/models"
	"github.com/pmercier/parcours/internal/traversal"
)

// ErrSessionDone is returned by Submit after the questionnaire completed.
var ErrSessionDone = errors.New("session is complete")

// ErrAnswerType is returned when a submitted value does not match the
// current question's declared answer type.
var ErrAnswerType = errors.New("answer type mismatch")

// Catalogs bundles the immutable inputs of one session. Passing catalogs
// explicitly (instead of module-level state) keeps concurrent sessions with
// different catalogs independent and testable.
type Catalogs struct {
	Questions   *models.Questionnaire
	Conclusions []models.OutcomeRule
	Documents   []models.OutcomeRule
	Tokens      *derivation.TokenRegistry
}

// Results holds the derived outcomes of a completed session.
type Results struct {
	Conclusions []models.OutcomeRecord
	Documents   []models.OutcomeRecord
}

// Total returns the combined number of outcome records.
func (r *Results) Total() int {
	return len(r.Conclusions) + len(r.Documents)
}

// Controller runs one session. It is not safe for concurrent use: answer
// submissions for a session must be serialized by the caller, which the CLI
// and any per-user web handler naturally do.
type Controller struct {
	id       string
	catalogs Catalogs
	engine   *traversal.Engine
	rules    *condition.Evaluator
	answers  models.AnswerStore
	current  *models.Question
	answered int
	started  time.Time
	done     bool
}

// New creates a session controller over the given catalogs. sink receives
// evaluation warnings; it may be nil.
func New(catalogs Catalogs, sink condition.DiagnosticSink) (*Controller, error) {
	if catalogs.Questions == nil || catalogs.Questions.Len() == 0 {
		return nil, fmt.Errorf("session requires a non-empty question catalog")
	}
	if catalogs.Tokens == nil {
		catalogs.Tokens = derivation.NewTokenRegistry(sink)
	}

	visibility := condition.NewEvaluator(condition.FailOpen, sink)
	engine := traversal.NewEngine(catalogs.Questions, visibility)
	answers := models.NewAnswerStore()

	ctrl := &Controller{
		id:       uuid.New().String(),
		catalogs: catalogs,
		engine:   engine,
		rules:    condition.NewEvaluator(condition.FailClosed, sink),
		answers:  answers,
		current:  engine.First(answers),
		started:  time.Now(),
	}
	if ctrl.current == nil {
		ctrl.done = true
	}
	return ctrl, nil
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// StartedAt returns the session start time.
func (c *Controller) StartedAt() time.Time {
	return c.started
}

// Current returns the question to present, or nil when the session is done.
func (c *Controller) Current() *models.Question {
	if c.done {
		return nil
	}
	return c.current
}

// Done reports whether the questionnaire has completed.
func (c *Controller) Done() bool {
	return c.done
}

// Answered returns the number of answers recorded so far.
func (c *Controller) Answered() int {
	return c.answered
}

// Answers returns a snapshot copy of the answer store.
func (c *Controller) Answers() models.AnswerStore {
	return c.answers.Clone()
}

// Submit records the answer for the current question and advances the
// traversal. It returns the next question, or nil when the questionnaire is
// complete. A traversal.ErrStepBudget error means the catalog's branch maps
// are misconfigured; the session is unusable and the catalog must be fixed.
func (c *Controller) Submit(value any) (*models.Question, error) {
	if c.done {
		return nil, ErrSessionDone
	}
	if err := checkType(c.current, value); err != nil {
		return nil, err
	}

	next, err := c.engine.Next(c.current, value, c.answers)
	if err != nil {
		return nil, err
	}
	c.answered++
	c.current = next
	if next == nil {
		c.done = true
	}
	return next, nil
}

// SubmitToken parses a textual answer for the current question and submits it.
func (c *Controller) SubmitToken(token string) (*models.Question, error) {
	if c.done {
		return nil, ErrSessionDone
	}
	value, err := models.ParseAnswerToken(c.current, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnswerType, err)
	}
	return c.Submit(value)
}

// Results derives aid conclusions and document requirements from the final
// answer snapshot. It can only be called on a completed session and is
// idempotent: repeated calls return equal results and never mutate the
// answer store.
func (c *Controller) Results() (*Results, error) {
	if !c.done {
		return nil, fmt.Errorf("cannot derive results: session still has questions pending")
	}

	snapshot := c.answers.Clone()
	conclusions := derivation.Derive(c.catalogs.Conclusions, snapshot, c.rules)

	tokenStore := c.catalogs.Tokens.Resolve(snapshot)
	documents := derivation.Derive(c.catalogs.Documents, tokenStore, c.rules)

	return &Results{Conclusions: conclusions, Documents: documents}, nil
}

// checkType verifies a typed value against the question's declared answer type.
func checkType(q *models.Question, value any) error {
	switch q.Type {
	case models.AnswerBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: question %s expects a boolean", ErrAnswerType, q.ID)
		}
	case models.AnswerNumeric:
		if _, ok := models.AnswerNumber(value); !ok {
			return fmt.Errorf("%w: question %s expects a number", ErrAnswerType, q.ID)
		}
	case models.AnswerSingleChoice:
		token, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: question %s expects an option key", ErrAnswerType, q.ID)
		}
		if _, exists := q.Options[token]; !exists {
			return fmt.Errorf("%w: question %s has no option %q", ErrAnswerType, q.ID, token)
		}
	}
	return nil
}
