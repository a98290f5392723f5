package extract

import (
	"fmt"
	"regexp"
)

// odfContentPath is the main content part of OpenDocument text, presentation and spreadsheet files.
const odfContentPath = "content.xml"

// odfParagraph matches <text:p> and <text:h> elements; spans inside are stripped.
var odfParagraph = regexp.MustCompile(`(?s)<text:(p|h)(?:\s[^>]*)?>.*?</text:(?:p|h)>`)

// extractODF returns one paragraph per text:p or text:h element of an .odt, .odp or .ods file.
func extractODF(content []byte) (string, error) {
	zr, err := openZip(content, "OpenDocument")
	if err != nil {
		return "", err
	}
	data, err := readZipFile(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract OpenDocument: %w", err)
	}
	if data == nil {
		return "", fmt.Errorf("extract OpenDocument: %s not found", odfContentPath)
	}
	return joinParagraphs(xmlParagraphs(string(data), odfParagraph, nil)), nil
}
