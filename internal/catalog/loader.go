// Package catalog loads and validates question and rule catalogs from YAML.
//
// Catalogs are authored declaratively and loaded once per session. The
// loader only checks YAML shape; Validate performs the semantic checks
// (id uniqueness, sequence order, branch targets, condition syntax).
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pmercier/parcours/internal/models"
)

// questionYAML is the YAML shape of one question entry.
type questionYAML struct {
	ID       string            `yaml:"id"`
	Sequence int               `yaml:"sequence"`
	Key      string            `yaml:"key"`
	Prompt   string            `yaml:"prompt"`
	Type     string            `yaml:"type"`
	Options  map[string]string `yaml:"options"`
	Visible  string            `yaml:"visible_if"`
	Branch   map[string]string `yaml:"branch"`
}

// questionnaireYAML is the YAML shape of a question catalog file.
type questionnaireYAML struct {
	Questions []questionYAML `yaml:"questions"`
}

// linkYAML is the YAML shape of a conclusion link.
type linkYAML struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// conclusionYAML is the YAML shape of one aid-conclusion rule.
type conclusionYAML struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Condition   string     `yaml:"condition"`
	Category    string     `yaml:"category"`
	Description string     `yaml:"description"`
	Links       []linkYAML `yaml:"links"`
}

// documentYAML is the YAML shape of one document-requirement rule.
type documentYAML struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Condition string `yaml:"condition"`
	Document  string `yaml:"document"`
	Mandatory bool   `yaml:"mandatory"`
}

// rulesYAML is the YAML shape of a rule catalog file. A file may carry
// conclusions, documents, or both.
type rulesYAML struct {
	Conclusions []conclusionYAML `yaml:"conclusions"`
	Documents   []documentYAML   `yaml:"documents"`
}

// RuleSet holds the two rule catalogs consumed by derivation.
type RuleSet struct {
	Conclusions []models.OutcomeRule
	Documents   []models.OutcomeRule
}

// LoadQuestionnaire reads a question catalog from a YAML file.
func LoadQuestionnaire(path string) ([]models.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question catalog: %w", err)
	}
	return ParseQuestionnaire(data)
}

// ParseQuestionnaire decodes a question catalog from YAML bytes.
func ParseQuestionnaire(data []byte) ([]models.Question, error) {
	var file questionnaireYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse question catalog: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("question catalog contains no questions")
	}

	questions := make([]models.Question, 0, len(file.Questions))
	for _, q := range file.Questions {
		questions = append(questions, models.Question{
			ID:            q.ID,
			SequenceIndex: q.Sequence,
			Key:           q.Key,
			Prompt:        q.Prompt,
			Type:          models.AnswerType(q.Type),
			Options:       q.Options,
			VisibleIf:     q.Visible,
			Branch:        q.Branch,
		})
	}
	return questions, nil
}

// LoadRules reads a rule catalog from a YAML file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule catalog: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes a rule catalog from YAML bytes. Declaration order in
// the file is preserved, since derivation output order tracks it.
func ParseRules(data []byte) (*RuleSet, error) {
	var file rulesYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule catalog: %w", err)
	}

	set := &RuleSet{}
	for _, c := range file.Conclusions {
		links := make([]models.Link, 0, len(c.Links))
		for _, l := range c.Links {
			links = append(links, models.Link{Label: l.Label, URL: l.URL})
		}
		set.Conclusions = append(set.Conclusions, models.OutcomeRule{
			ID:        c.ID,
			Title:     c.Title,
			Condition: c.Condition,
			Category:  models.Category(c.Category),
			Payload: models.Payload{
				Description: c.Description,
				Links:       links,
			},
		})
	}
	for _, d := range file.Documents {
		category := models.CategoryOptional
		if d.Mandatory {
			category = models.CategoryMandatory
		}
		set.Documents = append(set.Documents, models.OutcomeRule{
			ID:        d.ID,
			Title:     d.Title,
			Condition: d.Condition,
			Category:  category,
			Payload: models.Payload{
				Document: d.Document,
			},
		})
	}
	return set, nil
}

// LoadAnswers reads a canned answer file (question key -> textual answer)
// and converts each entry to the typed value its question expects. Used by
// the non-interactive derive command.
func LoadAnswers(path string, catalog *models.Questionnaire) (models.AnswerStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answer file: %w", err)
	}

	var file struct {
		Answers map[string]string `yaml:"answers"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse answer file: %w", err)
	}
	if len(file.Answers) == 0 {
		return nil, fmt.Errorf("answer file contains no answers")
	}

	byKey := make(map[string]*models.Question)
	for i := 0; i < catalog.Len(); i++ {
		q := catalog.At(i)
		byKey[q.Key] = q
	}

	answers := models.NewAnswerStore()
	for key, token := range file.Answers {
		q, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("answer key %q does not match any question", key)
		}
		value, err := models.ParseAnswerToken(q, token)
		if err != nil {
			return nil, fmt.Errorf("answer for %q: %w", key, err)
		}
		answers.Set(key, value)
	}
	return answers, nil
}
