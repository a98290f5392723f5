package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

// anyTag matches any XML tag.
var anyTag = regexp.MustCompile(`<[^>]+>`)

func openZip(content []byte, format string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

// readZipFile returns the contents of the named entry, or nil if the archive has none.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, nil
}

// xmlParagraphs returns the text of each paragraph element matched by para. When text is
// non-nil only its first submatch counts as content (runs are concatenated); otherwise all
// tags inside the paragraph are stripped. Entities are decoded.
func xmlParagraphs(doc string, para, text *regexp.Regexp) []string {
	blocks := para.FindAllString(doc, -1)
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		var s string
		if text != nil {
			var b strings.Builder
			for _, m := range text.FindAllStringSubmatch(block, -1) {
				b.WriteString(m[1])
			}
			s = b.String()
		} else {
			s = anyTag.ReplaceAllString(block, "")
		}
		if s = strings.TrimSpace(html.UnescapeString(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
