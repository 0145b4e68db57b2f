package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.DriverSQLite, ":memory:")
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, shared.RunMigrations(context.Background(), db, shared.DriverSQLite), "failed to run migrations")
	return db
}

func newSubmission(member, period, track string, at time.Time) *models.Submission {
	return &models.Submission{
		ImageURL:    "https://i.scdn.co/image/" + track,
		ExternalURL: "https://open.spotify.com/track/" + track,
		Track:       track,
		Artist:      "ABBA",
		Member:      member,
		Period:      period,
		CreatedAt:   at,
	}
}

func TestSubmissionRepository(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	t.Run("Create And Get", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t))
		s := newSubmission("ada", "2024-W10", "Waterloo", base)

		require.NoError(t, repo.Create(ctx, s))
		assert.NotEmpty(t, s.ID, "ID should be set after creation")

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.Track, got.Track)
		assert.Equal(t, s.Artist, got.Artist)
		assert.Equal(t, s.ImageURL, got.ImageURL)
		assert.Equal(t, s.ExternalURL, got.ExternalURL)
		assert.Equal(t, "ada", got.Member)
		assert.True(t, s.CreatedAt.Equal(got.CreatedAt), "created_at should round-trip")
	})

	t.Run("Create Sets Timestamp", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t))
		s := newSubmission("ada", "2024-W10", "Waterloo", time.Time{})

		require.NoError(t, repo.Create(ctx, s))
		assert.False(t, s.CreatedAt.IsZero())
	})

	t.Run("Duplicate Member Period", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t))

		require.NoError(t, repo.Create(ctx, newSubmission("ada", "2024-W10", "Waterloo", base)))
		err := repo.Create(ctx, newSubmission("ada", "2024-W10", "SOS", base.Add(time.Minute)))

		require.ErrorIs(t, err, shared.ErrConflict)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1, "only one row should be stored")
	})

	t.Run("Same Member Next Period", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t))

		require.NoError(t, repo.Create(ctx, newSubmission("ada", "2024-W10", "Waterloo", base)))
		require.NoError(t, repo.Create(ctx, newSubmission("ada", "2024-W11", "SOS", base.AddDate(0, 0, 7))))
	})

	t.Run("Validation", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t))
		s := newSubmission("ada", "2024-W10", "", base)

		require.ErrorIs(t, repo.Create(ctx, s), shared.ErrInvalidInput)
	})

	t.Run("List Newest First", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t))

		require.NoError(t, repo.Create(ctx, newSubmission("ada", "2024-W10", "first", base)))
		require.NoError(t, repo.Create(ctx, newSubmission("bob", "2024-W10", "second", base.Add(time.Hour))))
		require.NoError(t, repo.Create(ctx, newSubmission("cem", "2024-W10", "third", base.Add(2*time.Hour))))

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"third", "second", "first"}, []string{all[0].Track, all[1].Track, all[2].Track})
	})

	t.Run("List Empty", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t))

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t))
		s := newSubmission("ada", "2024-W10", "Waterloo", base)
		require.NoError(t, repo.Create(ctx, s))

		require.NoError(t, repo.Delete(ctx, s.ID))

		_, err := repo.Get(ctx, s.ID)
		require.ErrorIs(t, err, shared.ErrNotFound)

		require.ErrorIs(t, repo.Delete(ctx, s.ID), shared.ErrNotFound)
	})

	t.Run("Delete Frees Period", func(t *testing.T) {
		repo := NewSubmissionRepository(setupTestDB(t))
		s := newSubmission("ada", "2024-W10", "Waterloo", base)
		require.NoError(t, repo.Create(ctx, s))
		require.NoError(t, repo.Delete(ctx, s.ID))

		require.NoError(t, repo.Create(ctx, newSubmission("ada", "2024-W10", "SOS", base)))
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSubmissionRepository(db)
		db.Close()

		_, err := repo.List(ctx)
		require.ErrorIs(t, err, shared.ErrFetch)

		err = repo.Create(ctx, newSubmission("ada", "2024-W10", "Waterloo", base))
		require.ErrorIs(t, err, shared.ErrPersistence)
		assert.NotErrorIs(t, err, shared.ErrConflict)
	})
}

func TestArchiveRepository(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2023, 12, 31, 18, 0, 0, 0, time.UTC)

	t.Run("Append And List", func(t *testing.T) {
		repo := NewArchiveRepository(setupTestDB(t))

		older := &models.ArchiveEntry{Track: "Fernando", Artist: "ABBA", Member: "ada", Period: "2023-W52", CreatedAt: base}
		newer := &models.ArchiveEntry{Track: "Chiquitita", Artist: "ABBA", Member: "bob", Period: "2024-W01", CreatedAt: base.AddDate(0, 0, 7)}

		require.NoError(t, repo.Append(ctx, older))
		require.NoError(t, repo.Append(ctx, newer))

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Chiquitita", all[0].Track)
		assert.Equal(t, "Fernando", all[1].Track)
		assert.Zero(t, all[0].Week, "week is derived by the listing, not the store")
	})

	t.Run("Latest", func(t *testing.T) {
		repo := NewArchiveRepository(setupTestDB(t))

		_, err := repo.Latest(ctx)
		require.ErrorIs(t, err, shared.ErrNotFound)

		require.NoError(t, repo.Append(ctx, &models.ArchiveEntry{Track: "Fernando", Artist: "ABBA", Member: "ada", Period: "2023-W52", CreatedAt: base}))
		require.NoError(t, repo.Append(ctx, &models.ArchiveEntry{Track: "Chiquitita", Artist: "ABBA", Member: "bob", Period: "2024-W01", CreatedAt: base.AddDate(0, 0, 7)}))

		latest, err := repo.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Chiquitita", latest.Track)
	})

	t.Run("Duplicate Period Allowed", func(t *testing.T) {
		repo := NewArchiveRepository(setupTestDB(t))

		require.NoError(t, repo.Append(ctx, &models.ArchiveEntry{Track: "a", Artist: "b", Member: "ada", Period: "2024-W01"}))
		require.NoError(t, repo.Append(ctx, &models.ArchiveEntry{Track: "c", Artist: "d", Member: "ada", Period: "2024-W01"}))
	})

	t.Run("Validation", func(t *testing.T) {
		repo := NewArchiveRepository(setupTestDB(t))
		require.ErrorIs(t, repo.Append(ctx, &models.ArchiveEntry{Track: "a"}), shared.ErrInvalidInput)
	})
}

func TestStoreWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	store := NewStore(tx)
	require.NoError(t, store.Submissions.Create(ctx, newSubmission("ada", "2024-W10", "Waterloo", time.Now())))
	require.NoError(t, tx.Rollback())

	all, err := NewStore(db).Submissions.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "rolled back insert should not be visible")
}
