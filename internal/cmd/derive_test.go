package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deriveAnswersYAML = `
answers:
  q_residence_lux: opt_oui
  q_age: "34"
`

func TestDeriveCommand_Text(t *testing.T) {
	questions := writeCatalog(t, "questions.yaml", validQuestionsYAML)
	rules := writeCatalog(t, "rules.yaml", validRulesYAML)
	answers := writeCatalog(t, "answers.yaml", deriveAnswersYAML)

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	// A single file may carry both conclusions and documents.
	root.SetArgs([]string{"derive",
		"--questions", questions,
		"--conclusions", rules,
		"--answers", answers,
	})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "q_residence_lux: opt_oui")
	assert.Contains(t, out.String(), "Test aid")
	assert.Contains(t, out.String(), "Test document")
}

func TestDeriveCommand_JSON(t *testing.T) {
	questions := writeCatalog(t, "questions.yaml", validQuestionsYAML)
	rules := writeCatalog(t, "rules.yaml", validRulesYAML)
	answers := writeCatalog(t, "answers.yaml", deriveAnswersYAML)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"derive",
		"--questions", questions,
		"--conclusions", rules,
		"--answers", answers,
		"--format", "json",
	})

	require.NoError(t, root.Execute())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.NotEmpty(t, decoded["session_id"])
	conclusions, ok := decoded["conclusions"].([]any)
	require.True(t, ok)
	assert.Len(t, conclusions, 1)
}

func TestDeriveCommand_OutputFile(t *testing.T) {
	questions := writeCatalog(t, "questions.yaml", validQuestionsYAML)
	rules := writeCatalog(t, "rules.yaml", validRulesYAML)
	answers := writeCatalog(t, "answers.yaml", deriveAnswersYAML)
	outPath := filepath.Join(t.TempDir(), "summary.txt")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"derive",
		"--questions", questions,
		"--conclusions", rules,
		"--answers", answers,
		"--output", outPath,
	})

	require.NoError(t, root.Execute())
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Test aid")
}

func TestDeriveCommand_ConditionNotMet(t *testing.T) {
	questions := writeCatalog(t, "questions.yaml", validQuestionsYAML)
	rules := writeCatalog(t, "rules.yaml", validRulesYAML)
	answers := writeCatalog(t, "answers.yaml", `
answers:
  q_residence_lux: opt_non
  q_age: "17"
`)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"derive",
		"--questions", questions,
		"--conclusions", rules,
		"--answers", answers,
	})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "No aid applies to this situation.")
	assert.NotContains(t, out.String(), "Test aid")
}

func TestDeriveCommand_BadAnswerFile(t *testing.T) {
	questions := writeCatalog(t, "questions.yaml", validQuestionsYAML)
	answers := writeCatalog(t, "answers.yaml", "answers:\n  q_inconnu: opt_x\n")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"derive", "--questions", questions, "--answers", answers})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "q_inconnu")
}
