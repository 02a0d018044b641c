package models

import (
	"fmt"
	"strconv"
	"strings"
)

// AnswerStore is a session-scoped map from question key to a scalar answer
// value (bool, float64, or string token). Keys are unique and answers are
// never deleted during a session.
type AnswerStore map[string]any

// NewAnswerStore returns an empty answer store.
func NewAnswerStore() AnswerStore {
	return make(AnswerStore)
}

// Set records one answer. Recording the same key twice overwrites the
// previous value, which happens when a branch map routes the user back
// through an earlier question.
func (s AnswerStore) Set(key string, value any) {
	s[key] = value
}

// Get returns the stored value for a key.
func (s AnswerStore) Get(key string) (any, bool) {
	v, ok := s[key]
	return v, ok
}

// Clone returns a shallow copy of the store. Derivation runs on a clone so
// the session's store is never mutated after completion.
func (s AnswerStore) Clone() AnswerStore {
	out := make(AnswerStore, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// FormatAnswer renders a stored value in its canonical textual form, the
// form used by condition expressions and branch map keys.
func FormatAnswer(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(val)
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// AnswerNumber attempts to interpret a stored value as a number.
func AnswerNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ParseAnswerToken converts a textual answer into the typed value a question
// expects. The token must already be legal per Question.CheckAnswerToken.
func ParseAnswerToken(q *Question, token string) (any, error) {
	token = strings.TrimSpace(token)
	if err := q.CheckAnswerToken(token); err != nil {
		return nil, err
	}
	switch q.Type {
	case AnswerBoolean:
		return token == "true", nil
	case AnswerNumeric:
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric answer %q: %w", token, err)
		}
		return f, nil
	default:
		return token, nil
	}
}
