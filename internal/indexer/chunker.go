// Package indexer turns source documents into fragments and builds the persisted snapshot.
package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kbase/internal/models"
)

// ContinuationMarker separates the overlap carried from the previous fragment from new text.
const ContinuationMarker = "... "

// Chunker splits text into fragments of at most maxLength characters, preferring sentence
// boundaries and carrying up to overlap characters of context between adjacent fragments.
type Chunker struct {
	maxLength int
	overlap   int
	separator string
}

// NewChunker validates the limits and returns a chunker. An empty separator defaults to a blank line.
func NewChunker(maxLength, overlap int, separator string) (*Chunker, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("%w: max length must be positive, got %d", models.ErrConfiguration, maxLength)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", models.ErrConfiguration, overlap)
	}
	if overlap >= maxLength {
		return nil, fmt.Errorf("%w: overlap (%d) must be smaller than max length (%d)", models.ErrConfiguration, overlap, maxLength)
	}
	if separator == "" {
		separator = "\n\n"
	}
	return &Chunker{maxLength: maxLength, overlap: overlap, separator: separator}, nil
}

// Chunk splits text with the given limits. See Chunker.Chunk.
func Chunk(text string, maxLength, overlap int) ([]string, error) {
	c, err := NewChunker(maxLength, overlap, "")
	if err != nil {
		return nil, err
	}
	return c.Chunk(text), nil
}

// SplitParagraphs splits a document on sep, trims each paragraph and drops empty ones.
func SplitParagraphs(doc, sep string) []string {
	if sep == "" {
		sep = "\n\n"
	}
	var paragraphs []string
	for _, p := range strings.Split(doc, sep) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// ChunkDocument splits doc into paragraphs and chunks each one independently, so overlap
// never crosses a paragraph boundary. It returns the paragraph count and the fragments in order.
func (c *Chunker) ChunkDocument(doc string) (int, []string) {
	paragraphs := SplitParagraphs(doc, c.separator)
	var fragments []string
	for _, p := range paragraphs {
		fragments = append(fragments, c.Chunk(p)...)
	}
	return len(paragraphs), fragments
}

// Chunk splits text into fragments. Text that fits is returned unchanged as a single
// fragment; blank text yields none. Every fragment is non-empty and at most maxLength
// characters, and sentences keep their order.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if runeLen(text) <= c.maxLength {
		return []string{text}
	}

	var packed []string
	current := ""
	for _, sentence := range splitSentences(flattenLines(text)) {
		if current != "" && runeLen(current)+runeLen(sentence)+1 > c.maxLength {
			packed = append(packed, current)
			current = c.seed(current, sentence) + sentence
			continue
		}
		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	if current != "" {
		packed = append(packed, current)
	}

	fragments := make([]string, 0, len(packed))
	for _, p := range packed {
		if runeLen(p) <= c.maxLength {
			fragments = append(fragments, p)
			continue
		}
		fragments = append(fragments, c.hardSplit(p)...)
	}
	return fragments
}

// seed returns the overlap prefix for the fragment that starts with next: the tail of prev,
// cut to just after its first sentence break when it has one, followed by the continuation
// marker. The tail is shortened from the front so the new fragment fits, and dropped when
// nothing fits.
func (c *Chunker) seed(prev, next string) string {
	if c.overlap == 0 {
		return ""
	}
	tail := []rune(prev)
	if len(tail) > c.overlap {
		tail = tail[len(tail)-c.overlap:]
	}
	if i := sentenceBreak(tail); i >= 0 {
		tail = tail[i:]
	}
	room := c.maxLength - runeLen(ContinuationMarker) - runeLen(next)
	if room <= 0 {
		return ""
	}
	if len(tail) > room {
		tail = tail[len(tail)-room:]
	}
	s := strings.TrimSpace(string(tail))
	if s == "" {
		return ""
	}
	return s + ContinuationMarker
}

// hardSplit cuts s into windows of maxLength characters advancing by maxLength-overlap.
// The last window ends at the end of s.
func (c *Chunker) hardSplit(s string) []string {
	runes := []rune(s)
	step := c.maxLength - c.overlap
	var windows []string
	for start := 0; start < len(runes); start += step {
		end := start + c.maxLength
		if end > len(runes) {
			end = len(runes)
		}
		if w := strings.TrimSpace(string(runes[start:end])); w != "" {
			windows = append(windows, w)
		}
		if end == len(runes) {
			break
		}
	}
	return windows
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
