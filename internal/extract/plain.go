package extract

import (
	"strings"
	"unicode/utf8"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// extractPlain returns content as a string with LF line endings, so CRLF files split into
// paragraphs like LF files. Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	return lineEndings.Replace(s), nil
}
