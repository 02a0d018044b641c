// Package display renders questions and results for the parcours CLI.
//
// It centralizes terminal output formatting: question prompts with numbered
// options, grouped outcome results with per-category colors, and warning
// banners for catalog issues. Color is enabled only when stdout is a TTY.
package display

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/pmercier/parcours/internal/models"
	"github.com/pmercier/parcours/internal/session"
)

// Renderer writes user-facing output to a writer.
type Renderer struct {
	out      io.Writer
	useColor bool
}

// NewRenderer creates a renderer for the given writer. Color output is
// enabled when the writer is a terminal.
func NewRenderer(out io.Writer) *Renderer {
	useColor := false
	if f, ok := out.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) && !color.NoColor
	}
	return &Renderer{out: out, useColor: useColor}
}

// Question prints one question: prompt, then its options or the expected
// answer form.
func (r *Renderer) Question(q *models.Question) {
	fmt.Fprintf(r.out, "\n%s\n", r.bold(q.Prompt))
	switch q.Type {
	case models.AnswerBoolean:
		fmt.Fprintln(r.out, "  (true / false)")
	case models.AnswerNumeric:
		fmt.Fprintln(r.out, "  (enter a number)")
	case models.AnswerSingleChoice:
		keys := make([]string, 0, len(q.Options))
		for k := range q.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(r.out, "  %s - %s\n", k, q.Options[k])
		}
	}
	fmt.Fprint(r.out, "> ")
}

// InvalidAnswer prints a retry hint after a rejected answer.
func (r *Renderer) InvalidAnswer(err error) {
	fmt.Fprintf(r.out, "%s %v\n> ", r.red("✗"), err)
}

// Results prints the derived outcomes grouped by category, preserving rule
// declaration order inside each group.
func (r *Renderer) Results(results *session.Results) {
	fmt.Fprintf(r.out, "\n%s\n", r.bold("=== Your Results ==="))

	fmt.Fprintf(r.out, "\n%s\n", r.bold("Aid conclusions"))
	if len(results.Conclusions) == 0 {
		fmt.Fprintln(r.out, "  No aid applies to this situation.")
	}
	r.group(results.Conclusions, models.CategoryEligible, r.green)
	r.group(results.Conclusions, models.CategoryMaybe, r.yellow)
	r.group(results.Conclusions, models.CategoryNotEligible, r.red)

	fmt.Fprintf(r.out, "\n%s\n", r.bold("Documents to prepare"))
	if len(results.Documents) == 0 {
		fmt.Fprintln(r.out, "  No documents required.")
	}
	r.group(results.Documents, models.CategoryMandatory, r.red)
	r.group(results.Documents, models.CategoryOptional, r.yellow)
}

// group prints the records of one category under a colored header.
func (r *Renderer) group(records []models.OutcomeRecord, category models.Category, paint func(string) string) {
	first := true
	for _, rec := range records {
		if rec.Category != category {
			continue
		}
		if first {
			fmt.Fprintf(r.out, "  %s\n", paint(string(category)))
			first = false
		}
		fmt.Fprintf(r.out, "    - %s", rec.Title)
		if rec.Payload.Document != "" {
			fmt.Fprintf(r.out, " (%s)", rec.Payload.Document)
		}
		fmt.Fprintln(r.out)
		for _, link := range rec.Payload.Links {
			fmt.Fprintf(r.out, "      %s: %s\n", link.Label, link.URL)
		}
	}
}

func (r *Renderer) bold(s string) string {
	if !r.useColor {
		return s
	}
	return color.New(color.Bold).Sprint(s)
}

func (r *Renderer) green(s string) string {
	if !r.useColor {
		return s
	}
	return color.New(color.FgGreen).Sprint(s)
}

func (r *Renderer) yellow(s string) string {
	if !r.useColor {
		return s
	}
	return color.New(color.FgYellow).Sprint(s)
}

func (r *Renderer) red(s string) string {
	if !r.useColor {
		return s
	}
	return color.New(color.FgRed).Sprint(s)
}

// Warning represents a non-fatal message shown to the operator, typically a
// catalog authoring issue discovered during validation.
type Warning struct {
	Title      string
	Message    string
	Suggestion string
}

// Display writes the warning to the given writer.
func (w Warning) Display(out io.Writer) {
	fmt.Fprintf(out, "⚠ %s\n", w.Title)
	if w.Message != "" {
		fmt.Fprintf(out, "  %s\n", w.Message)
	}
	if w.Suggestion != "" {
		fmt.Fprintf(out, "  Suggestion: %s\n", w.Suggestion)
	}
}
