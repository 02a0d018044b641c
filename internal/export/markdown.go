package export

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// FlattenMarkdown reduces a Markdown fragment to plain text by walking the
// parsed AST and collecting text nodes. Rule authors write descriptions in
// Markdown for the web UI; the plain-text report must not leak markup.
// Block boundaries become single spaces. Input that fails to parse is
// returned as-is.
func FlattenMarkdown(input string) string {
	if input == "" {
		return ""
	}

	md := goldmark.New()
	source := []byte(input)
	doc := md.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return input
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}
