package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/gsotw/internal/formatter"
	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/shared"
	"github.com/desertthunder/gsotw/internal/tasks"
)

// QueueList prints every queued submission.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccess(); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	_, listings, err := r.workflow(ctx)
	if err != nil {
		return err
	}

	listing := listings.ListCurrent(ctx)
	if listing.State == tasks.ListError {
		return &tasks.DisplayError{Message: listing.Error, Err: shared.ErrFetch}
	}

	data, err := formatter.Queue(listing.Items, format, r.clock.Now())
	if err != nil {
		return err
	}
	return r.writeFormatted(cmd.String("output"), data)
}

// QueueRemove deletes the member's own submission.
func (r *Runner) QueueRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccess(); err != nil {
		return err
	}

	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: submission id", shared.ErrMissingArgument)
	}

	member, err := r.member(cmd)
	if err != nil {
		return err
	}

	wf, _, err := r.workflow(ctx)
	if err != nil {
		return err
	}
	if err := wf.Remove(ctx, id, member); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", id)
}

// ArchiveList prints the archive with week numbers.
func (r *Runner) ArchiveList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccess(); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	_, listings, err := r.workflow(ctx)
	if err != nil {
		return err
	}

	listing := listings.ListArchive(ctx)
	if listing.State == tasks.ListError {
		return &tasks.DisplayError{Message: listing.Error, Err: shared.ErrFetch}
	}

	data, err := formatter.Archive(listing.Items, format, r.clock.Now())
	if err != nil {
		return err
	}
	return r.writeFormatted(cmd.String("output"), data)
}

// ArchiveRecord appends a settled pick, copied from a submission or entered by hand.
func (r *Runner) ArchiveRecord(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccess(); err != nil {
		return err
	}

	_, listings, err := r.workflow(ctx)
	if err != nil {
		return err
	}

	if id := strings.TrimSpace(cmd.String("from-submission")); id != "" {
		entry, err := listings.Settle(ctx, id)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Recorded v%d %s - %s (%s)\n", entry.Week, entry.Artist, entry.Track, entry.Member)
	}

	entry, err := r.manualEntry(cmd)
	if err != nil {
		return err
	}
	if err := listings.Record(ctx, entry); err != nil {
		return err
	}
	return r.writePlain("✓ Recorded v%d %s - %s (%s)\n", entry.Week, entry.Artist, entry.Track, entry.Member)
}

func (r *Runner) manualEntry(cmd *cli.Command) (*models.ArchiveEntry, error) {
	track := strings.TrimSpace(cmd.String("track"))
	artist := strings.TrimSpace(cmd.String("artist"))
	if track == "" || artist == "" {
		return nil, fmt.Errorf("%w: --track and --artist, or --from-submission", shared.ErrMissingArgument)
	}

	member, err := r.member(cmd)
	if err != nil {
		return nil, err
	}

	loc, err := r.config.Location()
	if err != nil {
		return nil, err
	}

	at := r.clock.Now()
	if date := cmd.String("date"); date != "" {
		day, err := time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: --date %q, want YYYY-MM-DD", shared.ErrInvalidArgument, date)
		}
		at = day.Add(12 * time.Hour)
	}

	return &models.ArchiveEntry{
		ID:          shared.GenerateID(),
		ImageURL:    cmd.String("image"),
		ExternalURL: cmd.String("url"),
		Track:       track,
		Artist:      artist,
		Member:      member.Name(),
		Period:      shared.PeriodKey(at, loc),
		CreatedAt:   at,
	}, nil
}
