// Package export serializes session results for hand-off: a plain-text
// summary the applicant can print and a JSON summary for downstream tools.
// The export format is a presentation concern; the engines only ever produce
// ordered OutcomeRecord slices.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pmercier/parcours/internal/models"
	"github.com/pmercier/parcours/internal/session"
)

// Summary is the exported view of one completed session.
type Summary struct {
	SessionID   string         `json:"session_id"`
	CompletedAt time.Time      `json:"completed_at"`
	Answers     map[string]any `json:"answers"`
	Conclusions []OutcomeEntry `json:"conclusions"`
	Documents   []OutcomeEntry `json:"documents"`
}

// OutcomeEntry is one derived outcome in export form. Description text is
// flattened from Markdown to plain text.
type OutcomeEntry struct {
	RuleID      string        `json:"rule_id"`
	Title       string        `json:"title"`
	Category    string        `json:"category"`
	Description string        `json:"description,omitempty"`
	Document    string        `json:"document,omitempty"`
	Links       []models.Link `json:"links,omitempty"`
}

// BuildSummary converts session results into the export form, preserving
// rule declaration order.
func BuildSummary(sessionID string, completedAt time.Time, answers models.AnswerStore, results *session.Results) *Summary {
	return &Summary{
		SessionID:   sessionID,
		CompletedAt: completedAt,
		Answers:     answers,
		Conclusions: toEntries(results.Conclusions),
		Documents:   toEntries(results.Documents),
	}
}

func toEntries(records []models.OutcomeRecord) []OutcomeEntry {
	entries := make([]OutcomeEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, OutcomeEntry{
			RuleID:      rec.RuleID,
			Title:       rec.Title,
			Category:    string(rec.Category),
			Description: FlattenMarkdown(rec.Payload.Description),
			Document:    rec.Payload.Document,
			Links:       rec.Payload.Links,
		})
	}
	return entries
}

// WriteJSON writes the summary as indented JSON.
func (s *Summary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}

// WriteText writes the summary as a plain-text report: conclusions grouped
// by category, then documents with mandatory entries first. Within each
// group, rule declaration order is preserved.
func (s *Summary) WriteText(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("=== Parcours Result Summary ===\n")
	fmt.Fprintf(&sb, "Session:   %s\n", s.SessionID)
	fmt.Fprintf(&sb, "Completed: %s\n\n", s.CompletedAt.Format(time.RFC3339))

	sb.WriteString("--- Answers ---\n")
	keys := make([]string, 0, len(s.Answers))
	for k := range s.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s: %s\n", k, models.FormatAnswer(s.Answers[k]))
	}
	sb.WriteString("\n")

	sb.WriteString("--- Aid Conclusions ---\n")
	if len(s.Conclusions) == 0 {
		sb.WriteString("  No aid applies to this situation.\n")
	}
	for _, category := range []string{
		string(models.CategoryEligible),
		string(models.CategoryMaybe),
		string(models.CategoryNotEligible),
	} {
		writeCategory(&sb, s.Conclusions, category)
	}
	sb.WriteString("\n")

	sb.WriteString("--- Required Documents ---\n")
	if len(s.Documents) == 0 {
		sb.WriteString("  No documents required.\n")
	}
	writeCategory(&sb, s.Documents, string(models.CategoryMandatory))
	writeCategory(&sb, s.Documents, string(models.CategoryOptional))

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// writeCategory appends the entries of one category, keeping their order.
func writeCategory(sb *strings.Builder, entries []OutcomeEntry, category string) {
	first := true
	for _, e := range entries {
		if e.Category != category {
			continue
		}
		if first {
			fmt.Fprintf(sb, "[%s]\n", strings.ToUpper(category))
			first = false
		}
		fmt.Fprintf(sb, "  - %s", e.Title)
		if e.Document != "" {
			fmt.Fprintf(sb, " (%s)", e.Document)
		}
		sb.WriteString("\n")
		if e.Description != "" {
			fmt.Fprintf(sb, "    %s\n", e.Description)
		}
		for _, link := range e.Links {
			fmt.Fprintf(sb, "    %s: %s\n", link.Label, link.URL)
		}
	}
}
