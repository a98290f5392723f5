package models

import "errors"

var (
	// ErrConfiguration covers invalid settings and inputs that abort a build: no sources,
	// dimension mismatch, overlap not smaller than max length, unknown provider.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnavailable means the retrieval resources could not be loaded.
	ErrUnavailable = errors.New("knowledge base unavailable")
	// ErrNothingToIndex means a build had no fragments; no snapshot was written.
	ErrNothingToIndex = errors.New("nothing to index")
	// ErrBuildInProgress means another build holds the snapshot lock.
	ErrBuildInProgress = errors.New("build already in progress")
	// ErrSnapshotMismatch means the index and metadata artifacts do not belong to the same build.
	ErrSnapshotMismatch = errors.New("snapshot artifacts do not match")
	// ErrCorruptSnapshot means an artifact could not be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
