package tasks

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/shared"
)

const (
	QueueFailedMessage   = "Failed to load next song"
	ArchiveFailedMessage = "Failed to load archive"
)

// ListState is the display state of a listing.
type ListState int

const (
	ListLoading ListState = iota
	ListEmpty
	ListReady
	ListError
)

func (s ListState) String() string {
	switch s {
	case ListEmpty:
		return "empty"
	case ListReady:
		return "ready"
	case ListError:
		return "error"
	default:
		return "loading"
	}
}

// Listing is the result of a read-only query in one of its display states.
//
// The zero value is [ListLoading].
type Listing[T any] struct {
	State ListState `json:"-"`
	Items []T       `json:"items"`
	Error string    `json:"error,omitempty"`
}

func newListing[T any](items []T, err error, failure string) Listing[T] {
	switch {
	case err != nil:
		return Listing[T]{State: ListError, Error: failure}
	case len(items) == 0:
		return Listing[T]{State: ListEmpty, Items: []T{}}
	default:
		return Listing[T]{State: ListReady, Items: items}
	}
}

// Listings reads the current queue and the archive.
type Listings struct {
	submissions models.SubmissionStore
	archive     models.ArchiveStore
	loc         *time.Location
	logger      *log.Logger
}

// NewListings creates the listing views. A nil loc means UTC.
func NewListings(submissions models.SubmissionStore, archive models.ArchiveStore, loc *time.Location, logger *log.Logger) *Listings {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Listings{submissions: submissions, archive: archive, loc: loc, logger: logger}
}

// ListCurrent returns every queued submission, newest first. The queue is
// cleared outside the app once a pick is drawn, so no period filter applies.
func (l *Listings) ListCurrent(ctx context.Context) Listing[*models.Submission] {
	items, err := l.submissions.List(ctx)
	if err != nil {
		l.logger.Error("failed to load queue", "error", err)
	}
	return newListing(items, err, QueueFailedMessage)
}

// ListArchive returns the archive, newest first, each entry annotated with its ISO week.
func (l *Listings) ListArchive(ctx context.Context) Listing[*models.ArchiveEntry] {
	items, err := l.archive.List(ctx)
	if err != nil {
		l.logger.Error("failed to load archive", "error", err)
		return newListing[*models.ArchiveEntry](nil, err, ArchiveFailedMessage)
	}

	for _, e := range items {
		e.Week = shared.WeekNumber(e.CreatedAt, l.loc)
	}
	return newListing(items, nil, ArchiveFailedMessage)
}

// Latest returns the newest archive entry for the dashboard, or nil when the archive is empty.
func (l *Listings) Latest(ctx context.Context) (*models.ArchiveEntry, error) {
	e, err := l.archive.Latest(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		l.logger.Error("failed to load latest pick", "error", err)
		return nil, &DisplayError{Message: ArchiveFailedMessage, Err: err}
	}
	e.Week = shared.WeekNumber(e.CreatedAt, l.loc)
	return e, nil
}

// Settle copies a submission into the archive. It does not remove it from the queue.
func (l *Listings) Settle(ctx context.Context, submissionID string) (*models.ArchiveEntry, error) {
	s, err := l.submissions.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	e := models.ArchiveFromSubmission(s, shared.GenerateID())
	if err := l.archive.Append(ctx, e); err != nil {
		return nil, err
	}
	e.Week = shared.WeekNumber(e.CreatedAt, l.loc)
	l.logger.Info("recorded archive entry", "id", e.ID, "track", e.Track, "member", e.Member)
	return e, nil
}

// Record appends a manually entered pick to the archive.
func (l *Listings) Record(ctx context.Context, e *models.ArchiveEntry) error {
	if e.Period == "" {
		at := e.CreatedAt
		if at.IsZero() {
			at = time.Now()
		}
		e.Period = shared.PeriodKey(at, l.loc)
	}
	if err := l.archive.Append(ctx, e); err != nil {
		return err
	}
	e.Week = shared.WeekNumber(e.CreatedAt, l.loc)
	l.logger.Info("recorded archive entry", "id", e.ID, "track", e.Track, "member", e.Member)
	return nil
}
