package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS nix_entities (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	parent_id  TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT '',
	seq        INTEGER NOT NULL DEFAULT 0,
	version    INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	body       BLOB
);
CREATE UNIQUE INDEX IF NOT EXISTS nix_entities_sibling_name
	ON nix_entities (parent_id, kind, name) WHERE name != '';
CREATE INDEX IF NOT EXISTS nix_entities_parent ON nix_entities (parent_id, seq);
`

const recordColumns = `id, kind, parent_id, name, type, seq, version, created_at, updated_at, body`

// SQLite is a Backend storing records in a single SQLite table.
type SQLite struct {
	db       *sql.DB
	registry *Registry
	logger   *zap.SugaredLogger
}

// OpenSQLite opens (or creates) the database at path, enables WAL mode and
// migrates the schema. ":memory:" opens a private in-memory database.
func OpenSQLite(path string, logger *zap.SugaredLogger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	logger.Debugw("opening sqlite store", "path", path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	s := NewSQLite(db, DefaultRegistry(), logger)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	logger.Infow("sqlite store opened", "path", path)
	return s, nil
}

// NewSQLite wraps an open database. Call Migrate before first use.
func NewSQLite(db *sql.DB, registry *Registry, logger *zap.SugaredLogger) *SQLite {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SQLite{db: db, registry: registry, logger: logger}
}

// Migrate creates the records table and its indexes.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return errors.Wrap(err, "migrate nix_entities")
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// NewID returns a random UUID.
func (s *SQLite) NewID() string {
	return uuid.NewString()
}

// Create inserts a new record after checking its parent.
func (s *SQLite) Create(ctx context.Context, rec *Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin create")
	}
	defer tx.Rollback()

	var parentKind Kind
	if rec.ParentID != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT kind FROM nix_entities WHERE id = ?`, rec.ParentID).Scan(&parentKind)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(ErrParentNotFound, "create %s %s", rec.Kind, rec.ID)
		}
		if err != nil {
			return errors.Wrap(err, "lookup parent")
		}
	}
	if !s.registry.Allows(parentKind, rec.Kind) {
		return errors.Wrapf(ErrUnknownRelationship, "%q cannot own %q", parentKind, rec.Kind)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO nix_entities (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.ParentID, rec.Name, rec.Type, rec.Seq,
		rec.CreatedAt.Unix(), rec.UpdatedAt.Unix(), rec.Body)
	if err != nil {
		return mapSQLiteError(err, rec)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit create")
	}
	rec.Version = 1
	return nil
}

func mapSQLiteError(err error, rec *Record) error {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey:
			return errors.Wrapf(ErrAlreadyExists, "create %s %s", rec.Kind, rec.ID)
		case sqlite3.ErrConstraintUnique:
			return errors.Wrapf(ErrDuplicateValue, "%s %q", rec.Kind, rec.Name)
		}
	}
	return errors.Wrap(err, "insert record")
}

// Update writes Type, Seq, UpdatedAt and Body when the version matches.
func (s *SQLite) Update(ctx context.Context, rec *Record) error {
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC().Truncate(time.Second)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE nix_entities
		 SET type = ?, seq = ?, body = ?, created_at = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		rec.Type, rec.Seq, rec.Body, rec.CreatedAt.Unix(), updatedAt.Unix(), rec.ID, rec.Version)
	if err != nil {
		return errors.Wrapf(err, "update %s", rec.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM nix_entities WHERE id = ?`, rec.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(ErrNotFound, "update %s", rec.ID)
		}
		if err != nil {
			return errors.Wrap(err, "lookup record")
		}
		return errors.Wrapf(ErrConcurrentModification, "update %s at version %d", rec.ID, rec.Version)
	}
	rec.Version++
	return nil
}

// Get returns the record with the given id.
func (s *SQLite) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM nix_entities WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "get %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", id)
	}
	return rec, nil
}

// Children returns all children of parentID ordered by Seq.
func (s *SQLite) Children(ctx context.Context, parentID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM nix_entities WHERE parent_id = ? ORDER BY seq, rowid`, parentID)
	if err != nil {
		return nil, errors.Wrapf(err, "children of %s", parentID)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate children")
	}
	return out, nil
}

// Delete removes id and all of its descendants in one statement.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM nix_entities WHERE id = ?
			UNION ALL
			SELECT e.id FROM nix_entities e JOIN subtree ON e.parent_id = subtree.id
		)
		DELETE FROM nix_entities WHERE id IN (SELECT id FROM subtree)`, id)
	if err != nil {
		return errors.Wrapf(err, "delete %s", id)
	}
	n, _ := res.RowsAffected()
	s.logger.Debugw("cascade delete", "id", id, "records", n)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec                  Record
		kind                 string
		createdAt, updatedAt int64
	)
	err := row.Scan(&rec.ID, &kind, &rec.ParentID, &rec.Name, &rec.Type, &rec.Seq,
		&rec.Version, &createdAt, &updatedAt, &rec.Body)
	if err != nil {
		return nil, err
	}
	rec.Kind = Kind(kind)
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &rec, nil
}
