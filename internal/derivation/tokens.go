package derivation

import (
	"fmt"
	"sort"

	"github.com/pmercier/parcours/internal/condition"
	"github.com/pmercier/parcours/internal/models"
)

// Predicate resolves one symbolic situation token to a boolean over the
// answer store.
type Predicate func(answers models.AnswerStore) bool

// TokenRegistry maps the symbolic situation tokens used by document rules
// ("sit_couple", "sit_enfants", ...) to predicates over questionnaire
// answers. The indirection keeps document rules decoupled from exact
// question keys.
//
// Tokens may also be declared without a predicate: they resolve to false
// and are reported once per session through the diagnostic sink. This is
// deliberate — a situation the questionnaire cannot yet express must be
// visibly absent, not silently invented.
type TokenRegistry struct {
	predicates map[string]Predicate
	unresolved map[string]bool
	sink       condition.DiagnosticSink
}

// NewTokenRegistry creates an empty registry. sink may be nil.
func NewTokenRegistry(sink condition.DiagnosticSink) *TokenRegistry {
	return &TokenRegistry{
		predicates: make(map[string]Predicate),
		unresolved: make(map[string]bool),
		sink:       sink,
	}
}

// Register binds a token to a predicate. Registering a token twice replaces
// the previous binding.
func (r *TokenRegistry) Register(token string, pred Predicate) {
	r.predicates[token] = pred
	delete(r.unresolved, token)
}

// Declare records a token that document rules may reference but that no
// questionnaire answer can resolve yet. Declared tokens evaluate to false.
func (r *TokenRegistry) Declare(token string) {
	if _, bound := r.predicates[token]; !bound {
		r.unresolved[token] = true
	}
}

// Tokens returns all known token names, sorted.
func (r *TokenRegistry) Tokens() []string {
	names := make([]string, 0, len(r.predicates)+len(r.unresolved))
	for t := range r.predicates {
		names = append(names, t)
	}
	for t := range r.unresolved {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// Resolved reports whether a token has a real predicate bound.
func (r *TokenRegistry) Resolved(token string) bool {
	_, ok := r.predicates[token]
	return ok
}

// Resolve evaluates every registered predicate against the answer snapshot
// and returns a token store suitable for evaluating document-rule
// conditions. Declared-but-unresolved tokens are written as false, with one
// warning each; tokens a rule references without any declaration fall out
// as missing keys, which condition atoms already treat as false.
func (r *TokenRegistry) Resolve(answers models.AnswerStore) models.AnswerStore {
	resolved := models.NewAnswerStore()
	for token, pred := range r.predicates {
		resolved.Set(token, pred(answers))
	}
	for token := range r.unresolved {
		resolved.Set(token, false)
		if r.sink != nil {
			r.sink.LogWarn(fmt.Sprintf("situation token %q has no predicate yet; resolving to false", token))
		}
	}
	return resolved
}

// KeyEquals returns a predicate that is true when the answer under key has
// the given textual form.
func KeyEquals(key, value string) Predicate {
	return func(answers models.AnswerStore) bool {
		stored, ok := answers.Get(key)
		return ok && models.FormatAnswer(stored) == value
	}
}

// KeyTrue returns a predicate that is true when the answer under key is the
// boolean true.
func KeyTrue(key string) Predicate {
	return func(answers models.AnswerStore) bool {
		stored, ok := answers.Get(key)
		if !ok {
			return false
		}
		b, isBool := stored.(bool)
		return isBool && b
	}
}

// KeyGreater returns a predicate that is true when the answer under key is
// numeric and strictly greater than threshold.
func KeyGreater(key string, threshold float64) Predicate {
	return func(answers models.AnswerStore) bool {
		stored, ok := answers.Get(key)
		if !ok {
			return false
		}
		n, numeric := models.AnswerNumber(stored)
		return numeric && n > threshold
	}
}

// DefaultTokenRegistry returns the registry shipped with the standard
// questionnaire. Bound tokens map to the questions that can answer them;
// declared tokens are situations the questionnaire does not cover yet.
func DefaultTokenRegistry(sink condition.DiagnosticSink) *TokenRegistry {
	reg := NewTokenRegistry(sink)

	reg.Register("sit_couple", KeyEquals("q_situation_famille", "opt_couple"))
	reg.Register("sit_seul", KeyEquals("q_situation_famille", "opt_seul"))
	reg.Register("sit_enfants", KeyGreater("q_nb_enfants", 0))
	reg.Register("sit_salarie", KeyEquals("q_statut_emploi", "opt_salarie"))
	reg.Register("sit_independant", KeyEquals("q_statut_emploi", "opt_independant"))
	reg.Register("sit_locataire", KeyEquals("q_statut_logement", "opt_locataire"))
	reg.Register("sit_proprietaire", KeyEquals("q_statut_logement", "opt_proprietaire"))

	// Situations without a questionnaire source yet. They stay false until
	// the catalog grows the corresponding questions.
	reg.Declare("sit_curatelle")
	reg.Declare("sit_revenu_etranger")
	reg.Declare("sit_logement_insalubre")

	return reg
}
