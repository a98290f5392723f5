// Package models defines core data structures for fragments, builds, queries, and retrieval results.
package models

import "time"

// Fragment is one bounded-size unit of source text. ID is its position in the
// build-time sequence and doubles as the vector ID in the index.
type Fragment struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// SourceStatus records what a build did with one source document.
type SourceStatus string

const (
	SourceIndexed SourceStatus = "indexed"
	SourceSkipped SourceStatus = "skipped"
)

// SourceReport describes the outcome of reading and chunking one source document.
type SourceReport struct {
	ID         string       `json:"id" db:"source_id"`
	Path       string       `json:"path" db:"path"`
	Status     SourceStatus `json:"status" db:"status"`
	Paragraphs int          `json:"paragraphs" db:"paragraphs"`
	Fragments  int          `json:"fragments" db:"fragments"`
	Digest     string       `json:"digest,omitempty" db:"digest"`
	Error      string       `json:"error,omitempty" db:"error"`
}

// BuildRecord is the catalog entry for one completed build run.
type BuildRecord struct {
	ID           string          `json:"id" db:"id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	Fragments    int             `json:"fragments" db:"fragments"`
	Dimensions   int             `json:"dimensions" db:"dimensions"`
	Embedder     string          `json:"embedder" db:"embedder"`
	IndexPath    string          `json:"index_path" db:"index_path"`
	MetadataPath string          `json:"metadata_path" db:"metadata_path"`
	Sources      []*SourceReport `json:"sources,omitempty" db:"-"`
}

// BuildReport is returned by a file-based build: the sources that were read and the resulting record.
type BuildReport struct {
	Sources []*SourceReport `json:"sources"`
	Build   *BuildRecord    `json:"build,omitempty"`
}

// IndexedSources returns how many sources contributed fragments.
func (r *BuildReport) IndexedSources() int {
	n := 0
	for _, s := range r.Sources {
		if s.Status == SourceIndexed {
			n++
		}
	}
	return n
}
