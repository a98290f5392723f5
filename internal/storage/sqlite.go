package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kbase/internal/models"
)

// ErrNoBuilds is returned by LatestBuild when the catalog is empty.
var ErrNoBuilds = errors.New("no builds recorded")

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		fragments INTEGER NOT NULL,
		dimensions INTEGER NOT NULL,
		embedder TEXT NOT NULL,
		index_path TEXT NOT NULL,
		metadata_path TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_builds_created_at ON builds(created_at);

	CREATE TABLE IF NOT EXISTS build_sources (
		build_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		source_id TEXT NOT NULL,
		path TEXT NOT NULL,
		status TEXT NOT NULL,
		paragraphs INTEGER NOT NULL,
		fragments INTEGER NOT NULL,
		digest TEXT,
		error TEXT,
		PRIMARY KEY (build_id, position),
		FOREIGN KEY (build_id) REFERENCES builds(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_build_sources_source_id ON build_sources(source_id);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordBuild inserts a build and its sources in a transaction.
func (s *SQLiteCatalog) RecordBuild(ctx context.Context, build *models.BuildRecord) error {
	if build.ID == "" {
		return fmt.Errorf("build id is required")
	}
	if build.CreatedAt.IsZero() {
		build.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO builds (id, created_at, fragments, dimensions, embedder, index_path, metadata_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		build.ID, build.CreatedAt, build.Fragments, build.Dimensions, build.Embedder, build.IndexPath, build.MetadataPath,
	); err != nil {
		return fmt.Errorf("failed to insert build: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO build_sources (build_id, position, source_id, path, status, paragraphs, fragments, digest, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, src := range build.Sources {
		if _, err := stmt.ExecContext(ctx, build.ID, i, src.ID, src.Path, string(src.Status), src.Paragraphs, src.Fragments, src.Digest, src.Error); err != nil {
			return fmt.Errorf("failed to insert source %s: %w", src.Path, err)
		}
	}
	return tx.Commit()
}

// LatestBuild returns the most recent build with its sources.
func (s *SQLiteCatalog) LatestBuild(ctx context.Context) (*models.BuildRecord, error) {
	var b models.BuildRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, fragments, dimensions, embedder, index_path, metadata_path
		 FROM builds ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&b.ID, &b.CreatedAt, &b.Fragments, &b.Dimensions, &b.Embedder, &b.IndexPath, &b.MetadataPath)
	if err == sql.ErrNoRows {
		return nil, ErrNoBuilds
	}
	if err != nil {
		return nil, err
	}
	b.Sources, err = s.SourcesForBuild(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBuilds returns builds newest first with offset and limit.
func (s *SQLiteCatalog) ListBuilds(ctx context.Context, offset, limit int) ([]*models.BuildRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, fragments, dimensions, embedder, index_path, metadata_path
		 FROM builds ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []*models.BuildRecord
	for rows.Next() {
		var b models.BuildRecord
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.Fragments, &b.Dimensions, &b.Embedder, &b.IndexPath, &b.MetadataPath); err != nil {
			return nil, err
		}
		builds = append(builds, &b)
	}
	return builds, rows.Err()
}

// SourcesForBuild returns the source reports of a build in the order they were read.
func (s *SQLiteCatalog) SourcesForBuild(ctx context.Context, buildID string) ([]*models.SourceReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, path, status, paragraphs, fragments, COALESCE(digest, ''), COALESCE(error, '')
		 FROM build_sources WHERE build_id = ? ORDER BY position`,
		buildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.SourceReport
	for rows.Next() {
		var src models.SourceReport
		var status string
		if err := rows.Scan(&src.ID, &src.Path, &status, &src.Paragraphs, &src.Fragments, &src.Digest, &src.Error); err != nil {
			return nil, err
		}
		src.Status = models.SourceStatus(status)
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// CountBuilds returns the total number of recorded builds.
func (s *SQLiteCatalog) CountBuilds(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM builds`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}
