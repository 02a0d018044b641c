package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmercier/parcours/internal/derivation"
	"github.com/pmercier/parcours/internal/models"
	"github.com/pmercier/parcours/internal/traversal"
)

// testCatalogs builds a three-question catalog with a branch shortcut and a
// visibility condition, plus one conclusion and one document rule each.
//
//	Q1 residence (single-choice, opt_non branches to Q3)
//	Q2 income (numeric)
//	Q3 info request (boolean)
func testCatalogs(t *testing.T) Catalogs {
	t.Helper()

	questions, err := models.NewQuestionnaire([]models.Question{
		{
			ID: "Q1", SequenceIndex: 1, Key: "q_residence_lux",
			Prompt: "Résidez-vous au Luxembourg ?", Type: models.AnswerSingleChoice,
			Options: map[string]string{"opt_oui": "Oui", "opt_non": "Non"},
			Branch:  map[string]string{"opt_non": "Q3"},
		},
		{
			ID: "Q2", SequenceIndex: 2, Key: "q_revenus_mensuels",
			Prompt: "Revenus mensuels ?", Type: models.AnswerNumeric,
		},
		{
			ID: "Q3", SequenceIndex: 3, Key: "q_demande_info",
			Prompt: "Souhaitez-vous des informations ?", Type: models.AnswerBoolean,
		},
	})
	require.NoError(t, err)

	tokens := derivation.NewTokenRegistry(nil)
	tokens.Register("sit_resident", derivation.KeyEquals("q_residence_lux", "opt_oui"))

	return Catalogs{
		Questions: questions,
		Conclusions: []models.OutcomeRule{
			{ID: "C_AVC", Title: "Allocation de vie chère",
				Condition: "q_residence_lux = opt_oui AND q_revenus_mensuels < 3500",
				Category:  models.CategoryEligible},
			{ID: "C_NON_RESIDENT", Title: "Aides non disponibles",
				Condition: "q_residence_lux = opt_non",
				Category:  models.CategoryNotEligible},
		},
		Documents: []models.OutcomeRule{
			{ID: "D_IDENTITE", Title: "Pièce d'identité", Condition: "",
				Category: models.CategoryMandatory,
				Payload:  models.Payload{Document: "Carte d'identité"}},
			{ID: "D_RESIDENCE", Title: "Certificat de résidence",
				Condition: "sit_resident = true",
				Category:  models.CategoryMandatory,
				Payload:   models.Payload{Document: "Certificat de résidence"}},
		},
		Tokens: tokens,
	}
}

func TestSession_FullTraversal(t *testing.T) {
	ctrl, err := New(testCatalogs(t), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, ctrl.ID())

	require.Equal(t, "Q1", ctrl.Current().ID)
	next, err := ctrl.Submit("opt_oui")
	require.NoError(t, err)
	require.Equal(t, "Q2", next.ID)

	next, err = ctrl.Submit(float64(2000))
	require.NoError(t, err)
	require.Equal(t, "Q3", next.ID)

	next, err = ctrl.Submit(false)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.True(t, ctrl.Done())
	assert.Equal(t, 3, ctrl.Answered())

	results, err := ctrl.Results()
	require.NoError(t, err)

	require.Len(t, results.Conclusions, 1)
	assert.Equal(t, "C_AVC", results.Conclusions[0].RuleID)
	require.Len(t, results.Documents, 2)
	assert.Equal(t, "D_IDENTITE", results.Documents[0].RuleID)
	assert.Equal(t, "D_RESIDENCE", results.Documents[1].RuleID)
	assert.Equal(t, 3, results.Total())
}

func TestSession_BranchSkipsQuestions(t *testing.T) {
	ctrl, err := New(testCatalogs(t), nil)
	require.NoError(t, err)

	// opt_non jumps straight to Q3; Q2 is never asked.
	next, err := ctrl.Submit("opt_non")
	require.NoError(t, err)
	require.Equal(t, "Q3", next.ID)

	_, err = ctrl.Submit(true)
	require.NoError(t, err)
	require.True(t, ctrl.Done())
	assert.Equal(t, 2, ctrl.Answered())

	results, err := ctrl.Results()
	require.NoError(t, err)
	require.Len(t, results.Conclusions, 1)
	assert.Equal(t, "C_NON_RESIDENT", results.Conclusions[0].RuleID)

	// sit_resident resolves false, so only the unconditional document applies.
	require.Len(t, results.Documents, 1)
	assert.Equal(t, "D_IDENTITE", results.Documents[0].RuleID)
}

func TestSession_SubmitToken(t *testing.T) {
	ctrl, err := New(testCatalogs(t), nil)
	require.NoError(t, err)

	next, err := ctrl.SubmitToken("opt_oui")
	require.NoError(t, err)
	require.Equal(t, "Q2", next.ID)

	next, err = ctrl.SubmitToken("2800")
	require.NoError(t, err)
	require.Equal(t, "Q3", next.ID)

	_, err = ctrl.SubmitToken("true")
	require.NoError(t, err)
	assert.True(t, ctrl.Done())
}

func TestSession_TypeMismatch(t *testing.T) {
	ctrl, err := New(testCatalogs(t), nil)
	require.NoError(t, err)

	_, err = ctrl.Submit(true) // Q1 expects an option key
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnswerType))

	_, err = ctrl.Submit("opt_autre") // not a declared option
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnswerType))

	_, err = ctrl.SubmitToken("n'importe quoi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnswerType))

	// The failed submissions did not advance the session.
	assert.Equal(t, "Q1", ctrl.Current().ID)
	assert.Equal(t, 0, ctrl.Answered())
}

func TestSession_SubmitAfterDone(t *testing.T) {
	ctrl, err := New(testCatalogs(t), nil)
	require.NoError(t, err)

	_, err = ctrl.Submit("opt_non")
	require.NoError(t, err)
	_, err = ctrl.Submit(true)
	require.NoError(t, err)
	require.True(t, ctrl.Done())

	_, err = ctrl.Submit(false)
	assert.True(t, errors.Is(err, ErrSessionDone))
	_, err = ctrl.SubmitToken("false")
	assert.True(t, errors.Is(err, ErrSessionDone))
	assert.Nil(t, ctrl.Current())
}

func TestSession_ResultsBeforeDone(t *testing.T) {
	ctrl, err := New(testCatalogs(t), nil)
	require.NoError(t, err)

	_, err = ctrl.Results()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending")
}

func TestSession_ResultsIdempotent(t *testing.T) {
	ctrl, err := New(testCatalogs(t), nil)
	require.NoError(t, err)

	_, err = ctrl.Submit("opt_non")
	require.NoError(t, err)
	_, err = ctrl.Submit(false)
	require.NoError(t, err)

	first, err := ctrl.Results()
	require.NoError(t, err)
	second, err := ctrl.Results()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Token resolution ran on a snapshot; the session store only holds the
	// two recorded answers.
	assert.Len(t, ctrl.Answers(), 2)
}

func TestSession_AnswersSnapshotIsACopy(t *testing.T) {
	ctrl, err := New(testCatalogs(t), nil)
	require.NoError(t, err)

	_, err = ctrl.Submit("opt_oui")
	require.NoError(t, err)

	snapshot := ctrl.Answers()
	snapshot.Set("q_revenus_mensuels", float64(1))

	_, ok := ctrl.Answers().Get("q_revenus_mensuels")
	assert.False(t, ok)
}

func TestSession_CycleSurfacesStepBudget(t *testing.T) {
	questions, err := models.NewQuestionnaire([]models.Question{
		{
			ID: "Q1", SequenceIndex: 1, Key: "q_loop",
			Prompt: "encore ?", Type: models.AnswerBoolean,
			Branch: map[string]string{"true": "Q1"},
		},
	})
	require.NoError(t, err)

	ctrl, err := New(Catalogs{Questions: questions}, nil)
	require.NoError(t, err)

	var lastErr error
	for i := 0; i < 5; i++ {
		if _, lastErr = ctrl.Submit(true); lastErr != nil {
			break
		}
	}
	require.Error(t, lastErr)
	assert.True(t, errors.Is(lastErr, traversal.ErrStepBudget))
}

func TestSession_RequiresQuestions(t *testing.T) {
	_, err := New(Catalogs{}, nil)
	assert.Error(t, err)
}
