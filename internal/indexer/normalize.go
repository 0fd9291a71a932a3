package indexer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Normalizer flattens uploaded document content to plain text. Uploads arrive
// as markdown or already-plain text; both go through the markdown parser, which
// treats plain text as a sequence of paragraphs and leaves it intact.
type Normalizer struct {
	md goldmark.Markdown
}

func NewNormalizer() *Normalizer {
	return &Normalizer{md: goldmark.New()}
}

// Normalize strips markdown structure and returns the document's text with
// line structure preserved: headings and list items each end up on their own
// line, blocks are separated by blank lines, and runs of blank lines are
// collapsed.
func (n *Normalizer) Normalize(content []byte) string {
	source := []byte(strings.ReplaceAll(string(content), "\r\n", "\n"))
	doc := n.md.Parser().Parse(text.NewReader(source))

	var builder strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.ListItem, *ast.Blockquote:
			blockBreak(&builder)
		case *ast.FencedCodeBlock:
			blockBreak(&builder)
			for i := 0; i < v.Lines().Len(); i++ {
				line := v.Lines().At(i)
				builder.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			blockBreak(&builder)
			for i := 0; i < v.Lines().Len(); i++ {
				line := v.Lines().At(i)
				builder.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			builder.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				builder.WriteByte('\n')
			}
		case *ast.AutoLink:
			builder.Write(v.URL(source))
		}
		return ast.WalkContinue, nil
	})

	return collapseBlankLines(builder.String())
}

// blockBreak ensures the builder ends with a blank line before a new block
// starts, so block boundaries survive flattening.
func blockBreak(b *strings.Builder) {
	s := b.String()
	if s == "" {
		return
	}
	if !strings.HasSuffix(s, "\n\n") {
		if strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		} else {
			b.WriteString("\n\n")
		}
	}
}

// collapseBlankLines reduces runs of three or more newlines to a single blank
// line and trims surrounding whitespace.
func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
