package storage

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// DiskUsageBytes returns the combined size of paths such as the snapshot directory and the
// catalog database. Directories are summed recursively; empty and missing paths count as 0.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// SnapshotUsage sums the snapshot artifacts and the catalog database, which may live
// outside the snapshot directory.
func SnapshotUsage(snapshotDir, catalogPath string) (int64, error) {
	rel, err := filepath.Rel(snapshotDir, catalogPath)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return DiskUsageBytes(snapshotDir)
	}
	return DiskUsageBytes(snapshotDir, catalogPath)
}
