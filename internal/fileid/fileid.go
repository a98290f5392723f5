// Package fileid derives stable identifiers for source documents and digests of their extracted text.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const (
	sourcePrefix = "src:"
	digestPrefix = "sha256:"
)

// SourceID returns a stable ID for a source path. Paths that differ only in
// cleaning (trailing slash, "." elements) share an ID.
func SourceID(path string) string {
	normalized := filepath.Clean(path)
	hash := sha256.Sum256([]byte(normalized))
	return sourcePrefix + hex.EncodeToString(hash[:12])
}

// ContentDigest fingerprints extracted text so successive builds can tell which sources changed.
func ContentDigest(text string) string {
	hash := sha256.Sum256([]byte(text))
	return digestPrefix + hex.EncodeToString(hash[:])
}
