package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/nixcore/store"
)

func newMockSQLite(t *testing.T) (*store.SQLite, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSQLite(db, nil, nil), mock
}

func TestSQLite_Migrate(t *testing.T) {
	s, mock := newMockSQLite(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS nix_entities").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_MigrateFailure(t *testing.T) {
	s, mock := newMockSQLite(t)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("disk I/O error"))

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate nix_entities")
}

func TestSQLite_CreateMapsConstraintErrors(t *testing.T) {
	tests := []struct {
		name    string
		sqlErr  error
		wantErr error
	}{
		{
			name:    "primary key",
			sqlErr:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey},
			wantErr: store.ErrAlreadyExists,
		},
		{
			name:    "unique sibling name",
			sqlErr:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			wantErr: store.ErrDuplicateValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockSQLite(t)
			mock.ExpectBegin()
			mock.ExpectQuery("SELECT kind FROM nix_entities").
				WithArgs("parent-id").
				WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("block"))
			mock.ExpectExec("INSERT INTO nix_entities").WillReturnError(tt.sqlErr)
			mock.ExpectRollback()

			err := s.Create(context.Background(), &store.Record{
				ID: "child-id", Kind: store.KindTag, ParentID: "parent-id", Name: "stimulus",
			})
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLite_CreateMissingParent(t *testing.T) {
	s, mock := newMockSQLite(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT kind FROM nix_entities").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.Create(context.Background(), &store.Record{ID: "child-id", Kind: store.KindTag, ParentID: "gone"})
	assert.True(t, errors.Is(err, store.ErrParentNotFound), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_CreateCommits(t *testing.T) {
	s, mock := newMockSQLite(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO nix_entities").
		WithArgs("file-id", "file", "", "", "nix.file", int64(0), created.Unix(), created.Unix(), []byte("doc")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rec := &store.Record{ID: "file-id", Kind: store.KindFile, Type: "nix.file", CreatedAt: created, Body: []byte("doc")}
	require.NoError(t, s.Create(context.Background(), rec))
	assert.Equal(t, int64(1), rec.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_UpdateConflict(t *testing.T) {
	s, mock := newMockSQLite(t)
	mock.ExpectExec("UPDATE nix_entities").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM nix_entities").
		WithArgs("file-id").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	rec := &store.Record{ID: "file-id", Kind: store.KindFile, Version: 3}
	err := s.Update(context.Background(), rec)
	assert.True(t, errors.Is(err, store.ErrConcurrentModification), "got %v", err)
	assert.Equal(t, int64(3), rec.Version, "version is untouched on failure")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_GetDriverFailure(t *testing.T) {
	s, mock := newMockSQLite(t)
	mock.ExpectQuery("SELECT id, kind").WillReturnError(errors.New("database is locked"))

	_, err := s.Get(context.Background(), "file-id")
	require.Error(t, err)
	assert.False(t, errors.Is(err, store.ErrNotFound))
	assert.Contains(t, err.Error(), "database is locked")
}

func TestSQLite_ChildrenScan(t *testing.T) {
	s, mock := newMockSQLite(t)
	cols := []string{"id", "kind", "parent_id", "name", "type", "seq", "version", "created_at", "updated_at", "body"}
	mock.ExpectQuery("WHERE parent_id = \\?").
		WithArgs("block-id").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a", "tag", "block-id", "first", "nix.tag", 1, 1, int64(1700000000), int64(1700000000), []byte{}).
			AddRow("b", "data_array", "block-id", "second", "nix.data", 2, 4, int64(1700000000), int64(1700000100), []byte{1}))

	children, err := s.Children(context.Background(), "block-id")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, store.KindDataArray, children[1].Kind)
	assert.Equal(t, int64(4), children[1].Version)
	assert.Equal(t, time.Unix(1700000100, 0).UTC(), children[1].UpdatedAt)
}

func TestSQLite_DeleteUsesRecursiveCascade(t *testing.T) {
	s, mock := newMockSQLite(t)
	mock.ExpectExec("WITH RECURSIVE subtree").WithArgs("block-id").WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, s.Delete(context.Background(), "block-id"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSQLite_File(t *testing.T) {
	path := t.TempDir() + "/nix.db"
	s, err := store.OpenSQLite(path, nil)
	require.NoError(t, err)

	ctx := context.Background()
	rec := &store.Record{ID: s.NewID(), Kind: store.KindFile, Type: "nix.file"}
	require.NoError(t, s.Create(ctx, rec))
	require.NoError(t, s.Close())

	reopened, err := store.OpenSQLite(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "nix.file", got.Type)
}
