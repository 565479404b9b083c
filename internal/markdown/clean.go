// Package markdown normalizes markdown documents into plain text ahead of
// chunking, and extracts document titles from heading structure.
package markdown

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Cleaner strips markdown structure from documents, leaving paragraph-
// separated plain text suitable for the chunker.
type Cleaner struct {
	parser goldmark.Markdown
}

// NewCleaner creates a cleaner configured with the goldmark parser.
func NewCleaner() *Cleaner {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Cleaner{parser: md}
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Clean renders the markdown source as plain text. Headings, paragraphs,
// list items and code blocks become blank-line separated blocks; inline
// markup (emphasis, links, code spans) is reduced to its text content.
func (c *Cleaner) Clean(source []byte) string {
	doc := c.parser.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.Kind() {
			case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock, ast.KindBlockquote:
				b.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}

		switch n.Kind() {
		case ast.KindText:
			t := n.(*ast.Text)
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		case ast.KindAutoLink:
			b.Write(n.(*ast.AutoLink).URL(source))
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(source))
			}
			b.WriteString("\n\n")
			return ast.WalkSkipChildren, nil
		case ast.KindImage:
			// Alt text only; children carry it.
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(blankRuns.ReplaceAllString(b.String(), "\n\n"))
}

// CleanString is Clean for string input.
func (c *Cleaner) CleanString(source string) string {
	return c.Clean([]byte(source))
}

// Title returns the first top-level heading of the document, or "" when the
// document has none.
func (c *Cleaner) Title(source []byte) string {
	doc := c.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(1),
		toc.Compact(true),
	)
	if err != nil || len(tree.Items) == 0 {
		return ""
	}
	return string(tree.Items[0].Title)
}
