package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/kbase/internal/models"
)

const metaHeaderPrefix = "#kbase-meta"

var (
	metaEscaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	metaVersionV1 = "v" + strconv.Itoa(FormatVersion)
)

// EscapeLine encodes a fragment so it occupies exactly one line.
func EscapeLine(s string) string {
	return metaEscaper.Replace(s)
}

// UnescapeLine reverses EscapeLine. Unknown escapes are kept literally.
func UnescapeLine(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// WriteMetadata writes the header line followed by one escaped fragment per line.
func WriteMetadata(w io.Writer, buildID uuid.UUID, fragments []string) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s %s %s %d\n", metaHeaderPrefix, metaVersionV1, buildID, len(fragments)); err != nil {
		return fmt.Errorf("write metadata header: %w", err)
	}
	for _, f := range fragments {
		if _, err := bw.WriteString(EscapeLine(f)); err != nil {
			return fmt.Errorf("write fragment: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write fragment: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush metadata: %w", err)
	}
	return nil
}

// ReadMetadata reads a metadata artifact and returns its build ID and fragments.
// The fragment count must match the header.
func ReadMetadata(r io.Reader) (uuid.UUID, []string, error) {
	br := bufio.NewReader(r)
	header, err := readLine(br)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: read metadata header: %v", models.ErrCorruptSnapshot, err)
	}
	fields := strings.Fields(header)
	if len(fields) != 4 || fields[0] != metaHeaderPrefix {
		return uuid.Nil, nil, fmt.Errorf("%w: bad metadata header %q", models.ErrCorruptSnapshot, header)
	}
	if fields[1] != metaVersionV1 {
		return uuid.Nil, nil, fmt.Errorf("%w: unsupported metadata version %s", models.ErrCorruptSnapshot, fields[1])
	}
	buildID, err := uuid.Parse(fields[2])
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: bad build id: %v", models.ErrCorruptSnapshot, err)
	}
	count, err := strconv.Atoi(fields[3])
	if err != nil || count < 0 {
		return uuid.Nil, nil, fmt.Errorf("%w: bad fragment count %q", models.ErrCorruptSnapshot, fields[3])
	}

	prealloc := count
	if prealloc > maxPrealloc {
		prealloc = maxPrealloc
	}
	fragments := make([]string, 0, prealloc)
	for {
		line, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return uuid.Nil, nil, fmt.Errorf("%w: read fragment %d: %v", models.ErrCorruptSnapshot, len(fragments), err)
		}
		fragments = append(fragments, UnescapeLine(line))
	}
	if len(fragments) != count {
		return uuid.Nil, nil, fmt.Errorf("%w: metadata header says %d fragments, found %d", models.ErrCorruptSnapshot, count, len(fragments))
	}
	return buildID, fragments, nil
}

// readLine returns the next LF-terminated line without its terminator. A final line without
// a terminator is returned as-is; io.EOF is only returned when nothing is left.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err == io.EOF && line != "" {
		return line, nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}
