// Package extract reads source documents and returns their text with paragraph boundaries
// marked by blank lines, the form the chunker splits on.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// paragraphBreak separates paragraphs in extracted text.
const paragraphBreak = "\n\n"

type extractFunc func(content []byte) (string, error)

var extractors = map[string]extractFunc{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".xlsx": extractExcel,
	".pptx": extractPPTX,
	".odt":  extractODF,
	".odp":  extractODF,
	".ods":  extractODF,
	".txt":  extractPlain,
	".md":   extractPlain,
	".rst":  extractPlain,
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text. Binary formats are decoded by
// extension; anything else is read as UTF-8 text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on ext, which includes the leading dot.
// Unknown extensions are treated as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if fn, ok := extractors[strings.ToLower(ext)]; ok {
		return fn(content)
	}
	return extractPlain(content)
}

// SupportedExtensions returns the extensions with a dedicated extractor, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extractors))
	for ext := range extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// joinParagraphs trims each part, drops empty ones and joins the rest with blank lines.
func joinParagraphs(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, paragraphBreak)
}
