package indexer

import (
	"strings"
	"unicode"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// flattenLines replaces line breaks with single spaces so sentences can span source lines.
func flattenLines(text string) string {
	return lineBreaks.Replace(text)
}

// splitSentences splits text after '.', '!' or '?' when followed by whitespace.
// The punctuation stays with its sentence; the whitespace run is consumed.
// Returned sentences are trimmed and never empty.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentences = appendTrimmed(sentences, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		sentences = appendTrimmed(sentences, string(runes[start:]))
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func appendTrimmed(dst []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return dst
	}
	return append(dst, s)
}

// sentenceBreak returns the index just past the first ". ", "! " or "? " in s, or -1.
func sentenceBreak(s []rune) int {
	for i := 0; i+1 < len(s); i++ {
		if isTerminal(s[i]) && s[i+1] == ' ' {
			return i + 2
		}
	}
	return -1
}
