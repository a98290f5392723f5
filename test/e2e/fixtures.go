package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions are the formats the E2E tests generate. PDF is covered by the
// extract package tests; a minimal PDF with extractable text is not generated here.
var SupportedFileExtensions = []string{
	".txt", ".md", ".rst",
	".docx", ".xlsx", ".pptx", ".odt", ".odp", ".ods",
}

// WriteMinimalFile returns the bytes of a minimal file of type ext whose extracted text is
// paragraphs joined by blank lines. Plain types get the raw text.
func WriteMinimalFile(ext string, paragraphs ...string) ([]byte, error) {
	switch ext {
	case ".docx":
		return minimalDocx(paragraphs)
	case ".pptx":
		return minimalPptx(paragraphs)
	case ".odt", ".odp", ".ods":
		return minimalODF(paragraphs)
	case ".xlsx":
		return minimalXlsx(paragraphs)
	default:
		var buf bytes.Buffer
		for i, p := range paragraphs {
			if i > 0 {
				buf.WriteString("\n\n")
			}
			buf.WriteString(p)
		}
		return buf.Bytes(), nil
	}
}

func zipOf(files map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minimalDocx(paragraphs []string) ([]byte, error) {
	body := ""
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + html.EscapeString(p) + `</w:t></w:r></w:p>`
	}
	return zipOf(map[string]string{
		"[Content_Types].xml": `<Types><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`,
		"word/document.xml":   `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`,
	})
}

// minimalPptx puts each paragraph on its own slide; paragraphs within a slide are joined
// by single line breaks on extraction.
func minimalPptx(paragraphs []string) ([]byte, error) {
	files := make(map[string]string, len(paragraphs))
	for i, p := range paragraphs {
		files[fmt.Sprintf("ppt/slides/slide%d.xml", i+1)] = `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` +
			html.EscapeString(p) + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	return zipOf(files)
}

func minimalODF(paragraphs []string) ([]byte, error) {
	body := ""
	for _, p := range paragraphs {
		body += `<text:p>` + html.EscapeString(p) + `</text:p>`
	}
	return zipOf(map[string]string{
		"content.xml": `<office:document-content><office:body>` + body + `</office:body></office:document-content>`,
	})
}

func minimalXlsx(paragraphs []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	for i, p := range paragraphs {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue("Sheet1", cell, p); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
