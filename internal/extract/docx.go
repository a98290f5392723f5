package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var (
	// docxParagraph matches <w:p> and <w:p attr="..."> paragraphs but not <w:pPr>.
	docxParagraph = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>.*?</w:p>`)
	// docxText matches <w:t>text</w:t> runs with any attributes.
	docxText = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)

	overrideElem = regexp.MustCompile(`<Override\s[^>]*>`)
	partNameAttr = regexp.MustCompile(`PartName="([^"]+)"`)
)

// findDocxMainDocumentPath reads the main document part name from [Content_Types].xml,
// whatever the attribute order. It returns "" when the package does not declare one.
func findDocxMainDocumentPath(contentTypes string) string {
	for _, elem := range overrideElem.FindAllString(contentTypes, -1) {
		if !strings.Contains(elem, `ContentType="`+docxMainContentType+`"`) {
			continue
		}
		if m := partNameAttr.FindStringSubmatch(elem); m != nil {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return ""
}

// extractDOCX returns one paragraph per <w:p>, with the runs of each paragraph concatenated.
func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content, "DOCX")
	if err != nil {
		return "", err
	}

	docPath := docxDocumentXMLPath
	ct, err := readZipFile(zr, contentTypesPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if p := findDocxMainDocumentPath(string(ct)); p != "" {
		docPath = p
	}

	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if docXML == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	return joinParagraphs(xmlParagraphs(string(docXML), docxParagraph, docxText)), nil
}
