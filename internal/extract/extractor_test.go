package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ext     string
		want    string
	}{
		{"text", "Hello world\nLine 2", ".txt", "Hello world\nLine 2"},
		{"utf8", "caf\xc3\xa9", ".md", "café"},
		{"invalid utf8", "hello\x80world", ".rst", "hello\uFFFDworld"},
		{"crlf paragraphs", "One.\r\n\r\nTwo.\rThree.", ".txt", "One.\n\nTwo.\nThree."},
		{"unknown extension", "raw content", ".xyz", "raw content"},
		{"no extension", "raw", "", "raw"},
	}
	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes([]byte(tt.content), tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Title\n\nValue 1 | Value 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_files(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.TXT")
	if err := os.WriteFile(txt, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	xlsx := filepath.Join(dir, "data.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Searchable text")
	if err := f.SaveAs(xlsx); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()
	docx := filepath.Join(dir, "doc.docx")
	if err := os.WriteFile(docx, minimalDocx("Docx body"), 0600); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor()
	for path, want := range map[string]string{
		txt:  "File content",
		xlsx: "Searchable text",
		docx: "Docx body",
	} {
		got, err := e.Extract(path)
		if err != nil {
			t.Fatalf("Extract(%s): %v", filepath.Base(path), err)
		}
		if got != want {
			t.Errorf("Extract(%s) = %q, want %q", filepath.Base(path), got, want)
		}
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// minimalDocx returns a .docx with one paragraph holding text.
func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestExtractBytes_docxParagraphs(t *testing.T) {
	body := `<w:document><w:body>` +
		`<w:p w:rsidR="00A1"><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Ref</w:t></w:r><w:r><w:t xml:space="preserve">und policy</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Returns within 30 days &amp; no fees.</w:t></w:r></w:p>` +
		`<w:p/>` +
		`</w:body></w:document>`
	content := zipOf(t, map[string]string{"word/document.xml": body})

	got, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Refund policy\n\nReturns within 30 days & no fees."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_docxMainPartFromContentTypes(t *testing.T) {
	tests := []struct {
		name     string
		override string
	}{
		{"part name first", `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`},
		{"content type first", `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := zipOf(t, map[string]string{
				contentTypesPath:     `<Types>` + tt.override + `</Types>`,
				"word/document.xml":  `<w:document><w:body><w:p><w:r><w:t>wrong part</w:t></w:r></w:p></w:body></w:document>`,
				"word/document2.xml": `<w:document><w:body><w:p><w:r><w:t>main part</w:t></w:r></w:p></w:body></w:document>`,
			})
			got, err := NewExtractor().ExtractBytes(content, ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != "main part" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtractBytes_docxErrors(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip content")
	}
	if _, err := e.ExtractBytes(zipOf(t, map[string]string{"other.xml": "<x/>"}), ".docx"); err == nil {
		t.Error("expected error when document.xml is missing")
	}
}

func slideXML(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString(`<p:sld><p:cSld><p:spTree><p:sp><p:txBody>`)
	for _, p := range paragraphs {
		b.WriteString(`<a:p><a:r><a:t>` + p + `</a:t></a:r></a:p>`)
	}
	b.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
	return b.String()
}

func TestExtractBytes_pptxSlideOrder(t *testing.T) {
	content := zipOf(t, map[string]string{
		"ppt/slides/slide10.xml":            slideXML("Tenth slide"),
		"ppt/slides/slide2.xml":             slideXML("Second slide", "second line"),
		"ppt/slides/slide1.xml":             slideXML("First slide"),
		"ppt/slides/_rels/slide1.xml.rels":  `<Relationships/>`,
		"ppt/slideLayouts/slideLayout1.xml": slideXML("layout text"),
	})
	got, err := NewExtractor().ExtractBytes(content, ".pptx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "First slide\n\nSecond slide\nsecond line\n\nTenth slide"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_pptxEmpty(t *testing.T) {
	got, err := NewExtractor().ExtractBytes(zipOf(t, map[string]string{"ppt/presentation.xml": "<p/>"}), ".pptx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestExtractBytes_odf(t *testing.T) {
	contentXML := `<office:document><office:body>` +
		`<text:h text:outline-level="1">Opening hours</text:h>` +
		`<text:p text:style-name="P1">Mon to Fri, <text:span text:style-name="T1">9 to 5</text:span>.</text:p>` +
		`<text:p/>` +
		`<text:p>Closed on &lt;holidays&gt;.</text:p>` +
		`</office:body></office:document>`
	want := "Opening hours\n\nMon to Fri, 9 to 5.\n\nClosed on <holidays>."
	for _, ext := range []string{".odt", ".odp", ".ods"} {
		got, err := NewExtractor().ExtractBytes(zipOf(t, map[string]string{"content.xml": contentXML}), ext)
		if err != nil {
			t.Fatalf("%s: %v", ext, err)
		}
		if got != want {
			t.Errorf("%s: got %q, want %q", ext, got, want)
		}
	}
}

func TestExtractBytes_odfContentNotFound(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes(zipOf(t, map[string]string{"meta.xml": "<x/>"}), ".odt"); err == nil {
		t.Error("expected error when content.xml is missing")
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	for _, want := range []string{".docx", ".md", ".pdf", ".txt", ".xlsx"} {
		found := false
		for _, e := range exts {
			if e == want {
				found = true
			}
		}
		if !found {
			t.Errorf("%s missing from %v", want, exts)
		}
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1] > exts[i] {
			t.Fatalf("not sorted: %v", exts)
		}
	}
}
