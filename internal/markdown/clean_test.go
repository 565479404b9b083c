package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean_StripsInlineMarkup(t *testing.T) {
	input := "# Heading\n\nSome **bold** and *italic* text with a [link](https://example.com) and `code`.\n"

	cleaner := NewCleaner()
	got := cleaner.Clean([]byte(input))

	assert.Contains(t, got, "Heading")
	assert.Contains(t, got, "Some bold and italic text with a link and code.")
	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "](")
	assert.NotContains(t, got, "`")
}

func TestClean_PreservesParagraphBoundaries(t *testing.T) {
	input := "First paragraph.\n\nSecond paragraph.\n\nThird paragraph.\n"

	got := NewCleaner().Clean([]byte(input))

	parts := strings.Split(got, "\n\n")
	assert.Len(t, parts, 3)
	assert.Equal(t, "First paragraph.", parts[0])
	assert.Equal(t, "Third paragraph.", parts[2])
}

func TestClean_KeepsCodeBlockContent(t *testing.T) {
	input := "Intro.\n\n```go\nfunc main() {}\n```\n\nOutro.\n"

	got := NewCleaner().Clean([]byte(input))

	assert.Contains(t, got, "func main() {}")
	assert.NotContains(t, got, "```")
}

func TestClean_ListItems(t *testing.T) {
	input := "- first item\n- second item\n"

	got := NewCleaner().Clean([]byte(input))

	assert.Contains(t, got, "first item")
	assert.Contains(t, got, "second item")
	assert.NotContains(t, got, "- ")
}

func TestClean_EmptyInput(t *testing.T) {
	assert.Equal(t, "", NewCleaner().Clean(nil))
	assert.Equal(t, "", NewCleaner().Clean([]byte("   \n\n  ")))
}

func TestTitle(t *testing.T) {
	cleaner := NewCleaner()

	assert.Equal(t, "Getting Started", cleaner.Title([]byte("# Getting Started\n\nBody.\n")))
	assert.Equal(t, "", cleaner.Title([]byte("no headings here\n")))
}
