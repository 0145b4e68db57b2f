// package repositories provides persistence layer implementations for all model types.
package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/desertthunder/gsotw/internal/models"
)

const pgUniqueViolation = "23505"

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the repositories that share one database handle.
type Store struct {
	Submissions *SubmissionRepository
	Archive     *ArchiveRepository
}

// NewStore creates both repositories on db.
func NewStore(db DBTX) *Store {
	return &Store{
		Submissions: NewSubmissionRepository(db),
		Archive:     NewArchiveRepository(db),
	}
}

var (
	_ models.SubmissionStore = (*SubmissionRepository)(nil)
	_ models.ArchiveStore    = (*ArchiveRepository)(nil)
)

// IsUniqueViolation reports whether err is a unique constraint failure from SQLite or PostgreSQL.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return false
}

// scanner is implemented by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}
