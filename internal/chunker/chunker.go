// Package chunker splits cleaned document text into bounded segments sized
// for embedding.
package chunker

import (
	"strings"
	"unicode"
)

// DefaultMaxSize is the chunk size ceiling in runes.
const DefaultMaxSize = 1000

// Chunk is one bounded slice of a document's text.
//
// Start and End are rune offsets into the original text. Spans are disjoint,
// strictly increasing, and concatenating them reconstructs the input exactly.
// Content is the trimmed span text and never exceeds the configured maximum.
type Chunk struct {
	Content  string
	Start    int
	End      int
	Sequence int
}

// Splitter cuts text at paragraph boundaries where possible, falling back to
// sentence ends, then whitespace, then a hard cut.
type Splitter struct {
	maxSize int
}

// NewSplitter creates a splitter with the given maximum chunk size in runes.
// maxSize <= 0 selects DefaultMaxSize.
func NewSplitter(maxSize int) *Splitter {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Splitter{maxSize: maxSize}
}

// MaxSize returns the configured chunk size ceiling.
func (s *Splitter) MaxSize() int {
	return s.maxSize
}

// Split chunks text into ordered segments. Empty input yields nil.
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []Chunk

	pos := 0
	for pos < len(runes) {
		end := len(runes)
		if end-pos > s.maxSize {
			end = s.cut(runes, pos)
		}

		chunks = append(chunks, Chunk{
			Content:  strings.TrimSpace(string(runes[pos:end])),
			Start:    pos,
			End:      end,
			Sequence: len(chunks),
		})
		pos = end
	}

	return chunks
}

// cut picks the split point within (pos, pos+maxSize], preferring the last
// paragraph break, then the last sentence end, then the last whitespace.
func (s *Splitter) cut(runes []rune, pos int) int {
	limit := pos + s.maxSize

	// Paragraph break: cut after the final newline of a "\n\n" run.
	for i := limit; i > pos+1; i-- {
		if runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}

	// Sentence end: terminal punctuation followed by whitespace; cut after
	// the whitespace so the next chunk starts at a sentence.
	for i := limit; i > pos+1; i-- {
		if isSentenceEnd(runes[i-2]) && unicode.IsSpace(runes[i-1]) {
			return i
		}
	}

	// Any whitespace.
	for i := limit; i > pos+1; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}

	return limit
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
