package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestion() Question {
	return Question{
		ID:            "Q1",
		SequenceIndex: 1,
		Key:           "q_residence_lux",
		Prompt:        "Résidez-vous au Luxembourg ?",
		Type:          AnswerSingleChoice,
		Options:       map[string]string{"opt_oui": "Oui", "opt_non": "Non"},
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Question)
		wantErr string
	}{
		{"valid", func(q *Question) {}, ""},
		{"missing id", func(q *Question) { q.ID = "" }, "id is required"},
		{"missing key", func(q *Question) { q.Key = "" }, "key is required"},
		{"missing prompt", func(q *Question) { q.Prompt = "" }, "prompt is required"},
		{"bad type", func(q *Question) { q.Type = "multi-choice" }, "invalid answer type"},
		{"choice without options", func(q *Question) { q.Options = nil }, "requires options"},
		{"branch key not an option", func(q *Question) {
			q.Branch = map[string]string{"opt_autre": "Q2"}
		}, "branch key"},
		{"branch key valid option", func(q *Question) {
			q.Branch = map[string]string{"opt_non": "Q2"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCheckAnswerToken(t *testing.T) {
	boolean := Question{ID: "Q1", Key: "q_b", Prompt: "p", Type: AnswerBoolean}
	numeric := Question{ID: "Q2", Key: "q_n", Prompt: "p", Type: AnswerNumeric}
	choice := validQuestion()

	assert.NoError(t, boolean.CheckAnswerToken("true"))
	assert.NoError(t, boolean.CheckAnswerToken("false"))
	assert.Error(t, boolean.CheckAnswerToken("oui"))

	assert.NoError(t, numeric.CheckAnswerToken("42"))
	assert.NoError(t, numeric.CheckAnswerToken("3.5"))
	assert.Error(t, numeric.CheckAnswerToken("beaucoup"))

	assert.NoError(t, choice.CheckAnswerToken("opt_oui"))
	assert.Error(t, choice.CheckAnswerToken("opt_inconnu"))
}

func TestNewQuestionnaire_SortsBySequence(t *testing.T) {
	q1 := validQuestion()
	q2 := validQuestion()
	q2.ID = "Q2"
	q2.SequenceIndex = 2

	catalog, err := NewQuestionnaire([]Question{q2, q1})
	require.NoError(t, err)

	require.Equal(t, 2, catalog.Len())
	assert.Equal(t, "Q1", catalog.At(0).ID)
	assert.Equal(t, "Q2", catalog.At(1).ID)
	assert.Equal(t, 0, catalog.IndexOf("Q1"))
	assert.Equal(t, 1, catalog.IndexOf("Q2"))
	assert.Equal(t, -1, catalog.IndexOf("Q99"))

	q, ok := catalog.ByID("Q2")
	require.True(t, ok)
	assert.Equal(t, "Q2", q.ID)
}

func TestNewQuestionnaire_RejectsDuplicates(t *testing.T) {
	q1 := validQuestion()
	dup := validQuestion()
	dup.SequenceIndex = 2
	_, err := NewQuestionnaire([]Question{q1, dup})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate question id")

	q2 := validQuestion()
	q2.ID = "Q2"
	_, err = NewQuestionnaire([]Question{q1, q2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence index")
}
