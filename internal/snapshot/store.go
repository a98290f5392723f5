package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hyperjump/kbase/internal/models"
	"go.uber.org/zap"
)

// LockFileName is created next to the index artifact for the duration of a save.
const LockFileName = ".build.lock"

// Store reads and writes the snapshot pair at fixed paths.
type Store struct {
	indexPath    string
	metadataPath string
	logger       *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for save and load events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store for the given artifact paths.
func NewStore(indexPath, metadataPath string, opts ...StoreOption) *Store {
	s := &Store{
		indexPath:    indexPath,
		metadataPath: metadataPath,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IndexPath returns the index artifact path.
func (s *Store) IndexPath() string { return s.indexPath }

// MetadataPath returns the metadata artifact path.
func (s *Store) MetadataPath() string { return s.metadataPath }

// Exists reports whether both artifacts are present.
func (s *Store) Exists() bool {
	for _, p := range []string{s.indexPath, s.metadataPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Lock takes the exclusive build lock. It fails with models.ErrBuildInProgress when
// another build holds it. The returned func releases the lock.
func (s *Store) Lock() (func(), error) {
	dir := filepath.Dir(s.indexPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	path := filepath.Join(dir, LockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: lock file %s exists", models.ErrBuildInProgress, path)
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	_ = f.Close()
	return func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to remove build lock", zap.String("path", path), zap.Error(err))
		}
	}, nil
}

// Save writes both artifacts to temporary files, syncs them and renames them into place,
// replacing any previous snapshot. The caller must hold the build lock.
func (s *Store) Save(snap *Snapshot) error {
	if snap.Index.Size() != len(snap.Fragments) {
		return fmt.Errorf("%w: index holds %d vectors for %d fragments", models.ErrConfiguration, snap.Index.Size(), len(snap.Fragments))
	}
	for _, p := range []string{s.indexPath, s.metadataPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	indexTmp, err := writeTemp(s.indexPath, func(f *os.File) error { return writeIndex(f, snap) })
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	metaTmp, err := writeTemp(s.metadataPath, func(f *os.File) error { return WriteMetadata(f, snap.BuildID, snap.Fragments) })
	if err != nil {
		_ = os.Remove(indexTmp)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(indexTmp, s.indexPath); err != nil {
		_ = os.Remove(indexTmp)
		_ = os.Remove(metaTmp)
		return fmt.Errorf("install index: %w", err)
	}
	if err := os.Rename(metaTmp, s.metadataPath); err != nil {
		_ = os.Remove(metaTmp)
		return fmt.Errorf("install metadata: %w", err)
	}
	s.logger.Info("snapshot saved",
		zap.String("build_id", snap.BuildID.String()),
		zap.Int("fragments", snap.Size()),
		zap.Int("dimensions", snap.Dimensions()),
		zap.String("index", s.indexPath),
		zap.String("metadata", s.metadataPath))
	return nil
}

func writeTemp(target string, write func(*os.File) error) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// Load reads both artifacts and verifies they form one build. A missing artifact wraps
// models.ErrUnavailable; differing build IDs wrap models.ErrSnapshotMismatch; damaged
// content wraps models.ErrCorruptSnapshot.
func (s *Store) Load() (*Snapshot, error) {
	indexFile, err := os.Open(s.indexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open index: %v", models.ErrUnavailable, err)
	}
	defer indexFile.Close()
	metaFile, err := os.Open(s.metadataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open metadata: %v", models.ErrUnavailable, err)
	}
	defer metaFile.Close()

	buildID, createdAt, index, err := readIndex(indexFile)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", s.indexPath, err)
	}
	metaID, fragments, err := ReadMetadata(metaFile)
	if err != nil {
		return nil, fmt.Errorf("load metadata %s: %w", s.metadataPath, err)
	}
	if buildID != metaID {
		return nil, fmt.Errorf("%w: index build %s, metadata build %s", models.ErrSnapshotMismatch, buildID, metaID)
	}
	if index.Size() != len(fragments) {
		return nil, fmt.Errorf("%w: index holds %d vectors for %d fragments", models.ErrCorruptSnapshot, index.Size(), len(fragments))
	}
	s.logger.Debug("snapshot loaded",
		zap.String("build_id", buildID.String()),
		zap.Int("fragments", len(fragments)),
		zap.Int("dimensions", index.Dimensions()))
	return &Snapshot{
		BuildID:   buildID,
		CreatedAt: createdAt,
		Index:     index,
		Fragments: fragments,
	}, nil
}
