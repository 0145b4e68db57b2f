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

const submissionColumns = "id, image, spotify_url, track, artist, member, period, created_at"

// SubmissionRepository persists pending picks in the submissions table.
type SubmissionRepository struct {
	db DBTX
}

// NewSubmissionRepository creates a new SubmissionRepository with the given database connection
func NewSubmissionRepository(db DBTX) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a submission, generating its ID and timestamp when unset.
//
// A second submission by the same member in the same period fails with [shared.ErrConflict].
func (r *SubmissionRepository) Create(ctx context.Context, s *models.Submission) error {
	if s.ID == "" {
		s.ID = shared.GenerateID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.CreatedAt = s.CreatedAt.UTC()

	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.ImageURL,
		s.ExternalURL,
		s.Track,
		s.Artist,
		s.Member,
		s.Period,
		s.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s already submitted in %s", shared.ErrConflict, s.Member, s.Period)
		}
		return fmt.Errorf("%w: failed to insert submission: %v", shared.ErrPersistence, err)
	}

	return nil
}

// Get retrieves a submission by ID
func (r *SubmissionRepository) Get(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: submission %s", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to get submission: %v", shared.ErrFetch, err)
	}
	return s, nil
}

// Delete removes a submission by ID. Ownership is checked by the caller.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete submission: %v", shared.ErrPersistence, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrPersistence, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: submission %s", shared.ErrNotFound, id)
	}

	return nil
}

// List retrieves all submissions, newest first
func (r *SubmissionRepository) List(ctx context.Context) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query submissions: %v", shared.ErrFetch, err)
	}
	defer rows.Close()

	submissions := []*models.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan submission: %v", shared.ErrFetch, err)
		}
		submissions = append(submissions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrFetch, err)
	}

	return submissions, nil
}

func scanSubmission(row scanner) (*models.Submission, error) {
	var s models.Submission
	if err := row.Scan(
		&s.ID,
		&s.ImageURL,
		&s.ExternalURL,
		&s.Track,
		&s.Artist,
		&s.Member,
		&s.Period,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
