// Package snapshot persists the index and metadata artifacts as a verified pair.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kbase/internal/models"
	"github.com/hyperjump/kbase/internal/vector"
)

// FormatVersion is the on-disk format version of both artifacts.
const FormatVersion = 1

const maxPrealloc = 1 << 16

var indexMagic = [4]byte{'K', 'B', 'I', 'X'}

// indexHeaderSize is magic (4) + version (2) + build id (16) + created-at (8).
const indexHeaderSize = 4 + 2 + 16 + 8

// Snapshot is one build's index paired with the fragment texts it was built from.
// Fragments[id] is the text whose vector carries id.
type Snapshot struct {
	BuildID   uuid.UUID
	CreatedAt time.Time
	Index     *vector.FlatIndex
	Fragments []string
}

// New pairs an index with its fragments under a fresh build ID.
func New(index *vector.FlatIndex, fragments []string) (*Snapshot, error) {
	if index == nil {
		return nil, fmt.Errorf("index is nil")
	}
	if index.Size() != len(fragments) {
		return nil, fmt.Errorf("%w: index holds %d vectors for %d fragments", models.ErrConfiguration, index.Size(), len(fragments))
	}
	return &Snapshot{
		BuildID:   uuid.New(),
		CreatedAt: time.Now().UTC(),
		Index:     index,
		Fragments: fragments,
	}, nil
}

// Size returns the number of fragments.
func (s *Snapshot) Size() int {
	return len(s.Fragments)
}

// Dimensions returns the vector dimension of the index.
func (s *Snapshot) Dimensions() int {
	return s.Index.Dimensions()
}

// Fragment returns the text for id, or false when id is outside the snapshot.
func (s *Snapshot) Fragment(id int64) (string, bool) {
	if id < 0 || id >= int64(len(s.Fragments)) {
		return "", false
	}
	return s.Fragments[id], true
}

func writeIndex(w io.Writer, s *Snapshot) error {
	bw := bufio.NewWriter(w)
	var hdr [indexHeaderSize]byte
	copy(hdr[0:4], indexMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], FormatVersion)
	copy(hdr[6:22], s.BuildID[:])
	binary.LittleEndian.PutUint64(hdr[22:30], uint64(s.CreatedAt.UnixNano()))
	if _, err := bw.Write(hdr[:]); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}
	if _, err := s.Index.WriteTo(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func readIndex(r io.Reader) (uuid.UUID, time.Time, *vector.FlatIndex, error) {
	br := bufio.NewReader(r)
	var hdr [indexHeaderSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return uuid.Nil, time.Time{}, nil, fmt.Errorf("%w: read index header: %v", models.ErrCorruptSnapshot, err)
	}
	if [4]byte(hdr[0:4]) != indexMagic {
		return uuid.Nil, time.Time{}, nil, fmt.Errorf("%w: not a kbase index file", models.ErrCorruptSnapshot)
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != FormatVersion {
		return uuid.Nil, time.Time{}, nil, fmt.Errorf("%w: unsupported index version %d", models.ErrCorruptSnapshot, v)
	}
	var buildID uuid.UUID
	copy(buildID[:], hdr[6:22])
	createdAt := time.Unix(0, int64(binary.LittleEndian.Uint64(hdr[22:30]))).UTC()
	index, err := vector.ReadFlatIndex(br)
	if err != nil {
		return uuid.Nil, time.Time{}, nil, err
	}
	return buildID, createdAt, index, nil
}
