package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/shared"
)

const archiveColumns = "id, image, spotify_url, track, artist, member, period, created_at"

// ArchiveRepository persists settled weekly picks in the archive table.
//
// Entries are never updated or deleted here. Week numbers are derived by the caller.
type ArchiveRepository struct {
	db DBTX
}

// NewArchiveRepository creates a new ArchiveRepository with the given database connection
func NewArchiveRepository(db DBTX) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Append records a settled pick.
func (r *ArchiveRepository) Append(ctx context.Context, e *models.ArchiveEntry) error {
	if e.ID == "" {
		e.ID = shared.GenerateID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO archive (` + archiveColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if _, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.ImageURL,
		e.ExternalURL,
		e.Track,
		e.Artist,
		e.Member,
		e.Period,
		e.CreatedAt,
	); err != nil {
		return fmt.Errorf("%w: failed to insert archive entry: %v", shared.ErrPersistence, err)
	}

	return nil
}

// List retrieves the whole archive, newest first
func (r *ArchiveRepository) List(ctx context.Context) ([]*models.ArchiveEntry, error) {
	query := `SELECT ` + archiveColumns + ` FROM archive ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query archive: %v", shared.ErrFetch, err)
	}
	defer rows.Close()

	entries := []*models.ArchiveEntry{}
	for rows.Next() {
		e, err := scanArchiveEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan archive entry: %v", shared.ErrFetch, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrFetch, err)
	}

	return entries, nil
}

// Latest returns the newest archive entry, or [shared.ErrNotFound] when the archive is empty.
func (r *ArchiveRepository) Latest(ctx context.Context) (*models.ArchiveEntry, error) {
	query := `SELECT ` + archiveColumns + ` FROM archive ORDER BY created_at DESC, id DESC LIMIT 1`

	e, err := scanArchiveEntry(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: archive is empty", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to get latest archive entry: %v", shared.ErrFetch, err)
	}
	return e, nil
}

func scanArchiveEntry(row scanner) (*models.ArchiveEntry, error) {
	var e models.ArchiveEntry
	if err := row.Scan(
		&e.ID,
		&e.ImageURL,
		&e.ExternalURL,
		&e.Track,
		&e.Artist,
		&e.Member,
		&e.Period,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
