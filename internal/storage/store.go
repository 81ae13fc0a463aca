package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	_ "github.com/mfenderov/framemark/internal/storage/migrations"
)

// Suffix is the file extension of annotation files.
const Suffix = ".atc"

// Store manages one annotation file: per-frame object records, the class
// vocabulary and the session row. Every mutating call commits before returning.
type Store struct {
	db   *sqlx.DB
	path string
}

// NewStore opens the annotation database at path, creating it if needed,
// and brings the schema up to date.
func NewStore(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{db: db, path: path}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// NewWithDB wraps an already open connection without touching its schema.
func NewWithDB(db *sql.DB, path string) *Store {
	return &Store{db: sqlx.NewDb(db, "sqlite"), path: path}
}

// Create starts a fresh annotation for the given frame source at path.
// The session starts at frame 1.
func Create(path, source string) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("annotation %s already exists: %w", path, ErrConflict)
	}

	store, err := NewStore(path)
	if err != nil {
		return nil, err
	}

	if _, err := store.db.Exec(
		"INSERT INTO session (video_file, current_frame) VALUES (?, 1)", source,
	); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return store, nil
}

// Load opens an existing annotation file. Files that are not SQLite databases,
// miss one of the annotation tables, have no session row or hold duplicate
// records are rejected with ErrCorruptStore.
func Load(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("annotation %s: %w", path, ErrNotFound)
		}
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := validate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("annotation %s: %w", path, err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{db: db, path: path}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("annotation %s: %w: %v", path, ErrCorruptStore, err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// SaveAs writes a consistent copy of the annotation to dst, replacing any
// existing file. The store keeps working on its original path.
func (s *Store) SaveAs(dst string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	if _, err := s.db.Exec("VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("failed to save annotation to %s: %w", dst, err)
	}
	return nil
}

// ListTables returns all table names in the database.
func (s *Store) ListTables() []string {
	var tables []string
	if err := s.db.Select(&tables, `
		SELECT name FROM sqlite_master
		WHERE type='table'
		ORDER BY name
	`); err != nil {
		return nil
	}
	return tables
}

// Stats summarises the contents of an annotation.
type Stats struct {
	Records int `db:"records" json:"records" yaml:"records"`
	Objects int `db:"objects" json:"objects" yaml:"objects"`
	Frames  int `db:"frames" json:"frames" yaml:"frames"`
	Classes int `db:"classes" json:"classes" yaml:"classes"`
}

// Stats returns record, object, annotated-frame and class counts.
func (s *Store) Stats() (*Stats, error) {
	var st Stats
	err := s.db.Get(&st, `
		SELECT
			(SELECT COUNT(*) FROM frames) AS records,
			(SELECT COUNT(DISTINCT object) FROM frames) AS objects,
			(SELECT COUNT(DISTINCT frame) FROM frames) AS frames,
			(SELECT COUNT(*) FROM classes) AS classes
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return &st, nil
}

func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		// Rollback journal keeps an .atc a single self-contained file.
		"PRAGMA journal_mode = DELETE",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	// Column layout matches annotation files written by earlier versions of
	// the tool, so old files load without conversion.
	schema := `
	CREATE TABLE IF NOT EXISTS frames (
		frame INTEGER,
		object INTEGER,
		class TEXT,
		contour TEXT,
		final INTEGER
	);

	CREATE TABLE IF NOT EXISTS classes (
		class_name TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS session (
		video_file TEXT,
		current_frame INTEGER
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create base schema: %w", err)
	}
	return nil
}

func validate(db *sqlx.DB) error {
	var tables []string
	if err := db.Select(&tables, `
		SELECT name FROM sqlite_master
		WHERE type='table' AND name IN ('frames', 'classes', 'session')
	`); err != nil {
		if isNotADatabase(err) {
			return fmt.Errorf("%w: not an annotation database", ErrCorruptStore)
		}
		return fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if len(tables) != 3 {
		return fmt.Errorf("%w: expected frames, classes and session tables, found %v", ErrCorruptStore, tables)
	}

	var sessions int
	if err := db.Get(&sessions, "SELECT COUNT(*) FROM session"); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if sessions == 0 {
		return fmt.Errorf("%w: missing session", ErrCorruptStore)
	}

	var duplicates int
	if err := db.Get(&duplicates, `
		SELECT COUNT(*) FROM (
			SELECT 1 FROM frames GROUP BY frame, object HAVING COUNT(*) > 1
		)
	`); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if duplicates > 0 {
		return fmt.Errorf("%w: %d duplicate (frame, object) records", ErrCorruptStore, duplicates)
	}

	return nil
}

func isNotADatabase(err error) bool {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code()&0xff == sqlite3.SQLITE_NOTADB
	}
	return false
}

func isConstraintViolation(err error) bool {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// withTx runs fn in a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// noRows reports whether err is sql.ErrNoRows.
func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
