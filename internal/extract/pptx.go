package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// pptxSlide matches slide parts and captures the slide number.
	pptxSlide     = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	pptxParagraph = regexp.MustCompile(`(?s)<a:p(?:\s[^>]*)?>.*?</a:p>`)
	pptxText      = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
)

// extractPPTX returns one paragraph per slide in slide order; lines within a slide are
// the slide's text paragraphs.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return "", err
	}

	type slide struct {
		num  int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		m := pptxSlide.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: n, name: f.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	texts := make([]string, 0, len(slides))
	for _, s := range slides {
		data, err := readZipFile(zr, s.name)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		texts = append(texts, strings.Join(xmlParagraphs(string(data), pptxParagraph, pptxText), "\n"))
	}
	return joinParagraphs(texts), nil
}
