package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/gsotw/internal/formatter"
	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/shared"
	"github.com/desertthunder/gsotw/internal/tasks"
)

// reportProgress logs session progress until the returned stop func is called.
func (r *Runner) reportProgress(session *tasks.Session) (stop func()) {
	progress := make(chan tasks.ProgressUpdate, 8)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase)
		}
	}()

	session.SetProgress(progress)
	return func() {
		session.SetProgress(nil)
		close(progress)
		<-done
	}
}

// Search looks up tracks in the catalog and prints the results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccess(); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if limit := cmd.Int("limit"); limit > 0 {
		r.config.Catalog.SearchLimit = limit
	}

	wf, _, err := r.workflow(ctx)
	if err != nil {
		return err
	}
	session := wf.Session()
	defer session.Close()

	stop := r.reportProgress(session)
	results, err := session.Search(ctx, cmd.StringArg("track"), cmd.String("artist"))
	stop()
	if err != nil {
		return err
	}

	if len(results) == 0 && format == formatter.Text {
		return r.writePlain("%s\n", tasks.NoResultsMessage)
	}

	data, err := formatter.Results(results, format)
	if err != nil {
		return err
	}
	return r.writeFormatted(cmd.String("output"), data)
}

// Submit adds the member's pick, either a catalog ID or the nth search result.
func (r *Runner) Submit(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccess(); err != nil {
		return err
	}

	member, err := r.member(cmd)
	if err != nil {
		return err
	}

	wf, _, err := r.workflow(ctx)
	if err != nil {
		return err
	}
	session := wf.Session()
	defer session.Close()

	result, err := r.choose(ctx, cmd, session)
	if err != nil {
		return err
	}

	stop := r.reportProgress(session)
	sub, err := session.Submit(ctx, *result, member)
	stop()
	if err != nil {
		return err
	}

	r.writePlain("%s\n", session.State().Notice)
	r.writePlain("  ID: %s\n", sub.ID)
	r.writePlain("  Week: %s\n", sub.Period)
	return nil
}

// choose resolves the result to submit from --id or from a search.
func (r *Runner) choose(ctx context.Context, cmd *cli.Command, session *tasks.Session) (*models.SearchResult, error) {
	if id := strings.TrimSpace(cmd.String("id")); id != "" {
		catalog := r.catalogService()
		token, err := catalog.Token(ctx)
		if err != nil {
			return nil, err
		}
		result, err := catalog.Track(ctx, token, id)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	results, err := session.Search(ctx, cmd.StringArg("track"), cmd.String("artist"))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &tasks.DisplayError{Message: tasks.NoResultsMessage, Err: shared.ErrNotFound}
	}

	pick := cmd.Int("pick")
	if pick < 1 || pick > len(results) {
		return nil, fmt.Errorf("%w: --pick must be between 1 and %d", shared.ErrInvalidArgument, len(results))
	}
	return &results[pick-1], nil
}
