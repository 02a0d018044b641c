// Package condition implements the boolean condition language used by
// questionnaire visibility checks and outcome rules.
//
// Expressions compare answer-store values with literals:
//
//	q_residence_lux = opt_oui AND q_age >= 18
//	q_nationalite_cat IN {opt_A, opt_B}
//	NOT q_proprietaire = true OR q_revenus_mensuels < 3500
//
// Evaluation never fails: an expression that cannot be parsed resolves to a
// per-call-site default (fail-open for visibility, fail-closed for outcome
// rules) and is reported through a diagnostic sink. An atom whose key is
// absent from the answer store is false regardless of the policy.
package condition

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pmercier/parcours/internal/models"
)

// Policy selects the boolean an evaluator returns when a whole expression
// cannot be parsed.
type Policy int

const (
	// FailClosed resolves unparseable expressions to false. Used for outcome
	// rules: a broken condition must never silently grant an aid or document.
	FailClosed Policy = iota
	// FailOpen resolves unparseable expressions to true. Used for visibility
	// checks: a broken condition must never silently hide a question.
	FailOpen
)

// String returns the policy name for log messages.
func (p Policy) String() string {
	if p == FailOpen {
		return "fail-open"
	}
	return "fail-closed"
}

// DiagnosticSink receives warnings about expressions that could not be
// evaluated as written. *logger.ConsoleLogger satisfies it.
type DiagnosticSink interface {
	LogWarn(message string)
}

// Evaluator evaluates condition expressions against answer stores.
// Parsed expressions are cached, so repeated evaluation of the same catalog
// condition does not re-parse. Safe for concurrent use.
type Evaluator struct {
	policy Policy
	sink   DiagnosticSink

	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

// cacheEntry memoizes one parse attempt, success or failure.
type cacheEntry struct {
	expr *Expr
	err  error
}

// NewEvaluator creates an evaluator with the given failure policy.
// sink may be nil, in which case warnings are discarded.
func NewEvaluator(policy Policy, sink DiagnosticSink) *Evaluator {
	return &Evaluator{
		policy: policy,
		sink:   sink,
		cache:  make(map[string]*cacheEntry),
	}
}

// Policy returns the evaluator's failure policy.
func (ev *Evaluator) Policy() Policy {
	return ev.policy
}

// Evaluate evaluates an expression against an answer store. It never
// returns an error: parse failures resolve to the policy default and are
// reported to the diagnostic sink. An empty expression is trivially true.
func (ev *Evaluator) Evaluate(expression string, answers models.AnswerStore) bool {
	if strings.TrimSpace(expression) == "" {
		return true
	}

	entry := ev.parse(expression)
	if entry.err != nil {
		ev.warn(fmt.Sprintf("condition %q could not be parsed (%v); resolving %s", expression, entry.err, ev.policy))
		return ev.policy == FailOpen
	}
	return eval(entry.expr.root, answers)
}

// Check parses an expression without evaluating it. Catalog validation uses
// it to surface authoring mistakes before a session starts.
func (ev *Evaluator) Check(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return nil
	}
	return ev.parse(expression).err
}

// parse returns the cached parse result for an expression, parsing on first use.
func (ev *Evaluator) parse(expression string) *cacheEntry {
	ev.mu.RLock()
	entry, ok := ev.cache[expression]
	ev.mu.RUnlock()
	if ok {
		return entry
	}

	expr, err := Parse(expression)
	entry = &cacheEntry{expr: expr, err: err}

	ev.mu.Lock()
	ev.cache[expression] = entry
	ev.mu.Unlock()
	return entry
}

func (ev *Evaluator) warn(message string) {
	if ev.sink != nil {
		ev.sink.LogWarn(message)
	}
}

// eval walks the expression tree. AND and OR short-circuit left to right.
func eval(n *node, answers models.AnswerStore) bool {
	switch n.kind {
	case nodeAnd:
		for _, child := range n.children {
			if !eval(child, answers) {
				return false
			}
		}
		return true
	case nodeOr:
		for _, child := range n.children {
			if eval(child, answers) {
				return true
			}
		}
		return false
	case nodeNot:
		return !eval(n.children[0], answers)
	default:
		return evalAtom(n, answers)
	}
}

// evalAtom evaluates a single comparison. A key absent from the store makes
// the atom false, whatever the operator.
func evalAtom(n *node, answers models.AnswerStore) bool {
	stored, ok := answers.Get(n.key)
	if !ok {
		return false
	}

	switch n.op {
	case opEq:
		return compareEqual(stored, n.value)
	case opNe:
		return !compareEqual(stored, n.value)
	case opGt, opGe, opLt, opLe:
		return compareNumeric(stored, n.value, n.op)
	case opIn:
		text := models.FormatAnswer(stored)
		for _, member := range n.set {
			if text == member {
				return true
			}
		}
		return false
	}
	return false
}

// compareEqual compares numerically when both sides parse as numbers,
// otherwise as trimmed strings.
func compareEqual(stored any, literal string) bool {
	if sn, ok := models.AnswerNumber(stored); ok {
		if ln, err := strconv.ParseFloat(strings.TrimSpace(literal), 64); err == nil {
			return sn == ln
		}
	}
	return models.FormatAnswer(stored) == strings.TrimSpace(literal)
}

// compareNumeric evaluates an ordering atom. Both sides must be numeric;
// a non-numeric stored value makes the atom false.
func compareNumeric(stored any, literal string, op int) bool {
	sn, ok := models.AnswerNumber(stored)
	if !ok {
		return false
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(literal), 64)
	if err != nil {
		return false
	}
	switch op {
	case opGt:
		return sn > ln
	case opGe:
		return sn >= ln
	case opLt:
		return sn < ln
	case opLe:
		return sn <= ln
	}
	return false
}
