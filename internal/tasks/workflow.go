package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/services"
	"github.com/desertthunder/gsotw/internal/shared"
)

// Display messages. The Swedish ones are shown to the group as-is.
const (
	NoResultsMessage    = "No tracks found. Try a different search."
	MissingTrackMessage = "Enter a track name to search."
	ConflictMessage     = "Du har redan lagt till en låt. Vänta tills nästa vecka!"
	SubmitFailedMessage = "Failed to add song to database"
	RemoveFailedMessage = "Failed to remove song"
	NotOwnerMessage     = "You can only remove your own song"
)

// NoticeDuration is how long the confirmation after a successful submit stays visible.
const NoticeDuration = 5 * time.Second

// SuccessNotice is the confirmation shown after a submit.
func SuccessNotice(track, artist string) string {
	return fmt.Sprintf("✓ \"%s\" av %s har lagts till i utlottningen!", track, artist)
}

// Event is published after the queue changes.
type Event struct {
	Type         string `json:"type"` // "queue-updated"
	SubmissionID string `json:"submission_id,omitempty"`
	Action       string `json:"action,omitempty"` // "added" or "removed"
}

const EventQueueUpdated = "queue-updated"

// DisplayError carries the message shown to the visitor alongside the underlying cause.
type DisplayError struct {
	Message string
	Err     error
}

func (e *DisplayError) Error() string { return e.Message }
func (e *DisplayError) Unwrap() error { return e.Err }

// Message returns the text to show for err: the display message when there is one, else err's text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var de *DisplayError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// SearchPhase is where a session's search stands.
type SearchPhase int

const (
	SearchIdle SearchPhase = iota
	SearchLoading
	SearchResults
	SearchEmpty
	SearchFailed
)

func (p SearchPhase) String() string {
	switch p {
	case SearchLoading:
		return "loading"
	case SearchResults:
		return "results"
	case SearchEmpty:
		return "empty"
	case SearchFailed:
		return "error"
	default:
		return "idle"
	}
}

// SearchState is a snapshot of a session.
//
// Results and Error are never both set. Notice is independent of the search phase.
type SearchState struct {
	Phase       SearchPhase
	Track       string
	Artist      string
	Results     []models.SearchResult
	Error       string // search failure or NoResultsMessage
	SubmitError string // last failed submit
	Notice      string // confirmation after a successful submit
}

// Workflow holds the dependencies shared by all sessions.
type Workflow struct {
	catalog     services.Catalog
	submissions models.SubmissionStore
	clock       shared.Clock
	loc         *time.Location
	limit       int
	logger      *log.Logger

	mu        sync.RWMutex
	listeners []func(Event)
}

// Option configures a [Workflow].
type Option func(*Workflow)

// WithClock replaces the wall clock, e.g. with a fake in tests.
func WithClock(c shared.Clock) Option {
	return func(w *Workflow) { w.clock = c }
}

// WithLocation sets the zone used to compute the period of a submission.
func WithLocation(loc *time.Location) Option {
	return func(w *Workflow) {
		if loc != nil {
			w.loc = loc
		}
	}
}

// WithSearchLimit sets the page size sent to the catalog.
func WithSearchLimit(n int) Option {
	return func(w *Workflow) { w.limit = services.ClampLimit(n) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorkflow creates a workflow over a catalog and a submission store.
func NewWorkflow(catalog services.Catalog, submissions models.SubmissionStore, opts ...Option) *Workflow {
	w := &Workflow{
		catalog:     catalog,
		submissions: submissions,
		clock:       shared.SystemClock{},
		loc:         time.UTC,
		limit:       services.DefaultSearchLimit,
		logger:      shared.NewLogger(io.Discard),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Subscribe registers fn to be called after every queue change.
func (w *Workflow) Subscribe(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *Workflow) publish(e Event) {
	w.mu.RLock()
	listeners := append([]func(Event){}, w.listeners...)
	w.mu.RUnlock()

	for _, fn := range listeners {
		fn(e)
	}
}

// Period returns the period key for the current time.
func (w *Workflow) Period() string {
	return shared.PeriodKey(w.clock.Now(), w.loc)
}

// Remove deletes a submission on behalf of member.
//
// The stored owner must equal member's display name and member must not be anonymous;
// otherwise [shared.ErrNotOwner] is returned and nothing is deleted.
func (w *Workflow) Remove(ctx context.Context, id string, member models.Member) error {
	return w.remove(ctx, id, member, nil)
}

func (w *Workflow) remove(ctx context.Context, id string, member models.Member, progress chan<- ProgressUpdate) error {
	s, err := w.submissions.Get(ctx, id)
	if err != nil {
		w.logger.Warn("remove lookup failed", "id", id, "error", err)
		return &DisplayError{Message: RemoveFailedMessage, Err: err}
	}

	if !s.OwnedBy(member) {
		w.logger.Info("remove rejected", "id", id, "owner", s.Member, "member", member.Name())
		return &DisplayError{Message: NotOwnerMessage, Err: shared.ErrNotOwner}
	}

	sendProgress(progress, deletingUpdate(id))
	if err := w.submissions.Delete(ctx, id); err != nil {
		w.logger.Error("remove failed", "id", id, "error", err)
		return &DisplayError{Message: RemoveFailedMessage, Err: err}
	}

	w.logger.Info("submission removed", "id", id, "member", member.Name())
	w.publish(Event{Type: EventQueueUpdated, SubmissionID: id, Action: "removed"})
	return nil
}

// Session returns fresh per-visitor state.
func (w *Workflow) Session() *Session {
	return &Session{wf: w}
}

// Session is one visitor's search state. It is safe for concurrent use.
type Session struct {
	wf *Workflow

	mu       sync.Mutex
	state    SearchState
	searchID uint64
	noticeID uint64
	timer    shared.Timer
	progress chan<- ProgressUpdate
}

// SetProgress routes progress updates to ch. A nil channel disables reporting.
func (s *Session) SetProgress(ch chan<- ProgressUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = ch
}

// State returns a copy of the current state.
func (s *Session) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Results = append([]models.SearchResult(nil), s.state.Results...)
	return st
}

// Search exchanges credentials and searches the catalog for track and artist.
//
// An empty result is not an error: the state moves to [SearchEmpty] with [NoResultsMessage] and an empty slice is returned.
func (s *Session) Search(ctx context.Context, track, artist string) ([]models.SearchResult, error) {
	track, artist = strings.TrimSpace(track), strings.TrimSpace(artist)

	s.mu.Lock()
	s.searchID++
	id := s.searchID
	s.state.Track, s.state.Artist = track, artist
	s.state.Results = nil
	s.state.Error = ""
	s.state.SubmitError = ""
	s.state.Phase = SearchLoading
	progress := s.progress
	s.mu.Unlock()

	if track == "" {
		err := &DisplayError{Message: MissingTrackMessage, Err: fmt.Errorf("%w: track", shared.ErrMissingArgument)}
		s.finishSearch(id, nil, err)
		return nil, err
	}

	results, err := s.lookup(ctx, progress, track, artist)
	s.finishSearch(id, results, err)
	if err != nil {
		s.wf.logger.Warn("search failed", "track", track, "artist", artist, "error", err)
		return nil, err
	}

	s.wf.logger.Debug("search resolved", "track", track, "artist", artist, "results", len(results))
	sendProgress(progress, doneUpdate(fmt.Sprintf("%d results", len(results)), results))
	return results, nil
}

func (s *Session) lookup(ctx context.Context, progress chan<- ProgressUpdate, track, artist string) ([]models.SearchResult, error) {
	sendProgress(progress, exchangingTokenUpdate())
	token, err := s.wf.catalog.Token(ctx)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, searchingUpdate(track, artist))
	results, err := s.wf.catalog.SearchTracks(ctx, token, track, artist, s.wf.limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return results, nil
}

// finishSearch lands the state of search id, unless a newer search has started since.
func (s *Session) finishSearch(id uint64, results []models.SearchResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != s.searchID {
		return
	}

	switch {
	case err != nil:
		s.state.Phase = SearchFailed
		s.state.Results = nil
		s.state.Error = Message(err)
	case len(results) == 0:
		s.state.Phase = SearchEmpty
		s.state.Results = nil
		s.state.Error = NoResultsMessage
	default:
		s.state.Phase = SearchResults
		s.state.Results = results
		s.state.Error = ""
	}
}

// Submit stores result as member's pick for the current period.
//
// A repeated pick in the same period fails with [ConflictMessage] wrapping [shared.ErrConflict];
// other store failures use [SubmitFailedMessage]. On success the search state and inputs are cleared
// and [SuccessNotice] is shown for [NoticeDuration].
func (s *Session) Submit(ctx context.Context, result models.SearchResult, member models.Member) (*models.Submission, error) {
	if !result.Valid() {
		return nil, s.failSubmit(&DisplayError{
			Message: SubmitFailedMessage,
			Err:     fmt.Errorf("%w: search result has no id or title", shared.ErrInvalidInput),
		})
	}

	s.mu.Lock()
	progress := s.progress
	s.mu.Unlock()

	now := s.wf.clock.Now()
	sub := models.NewSubmission(result, member, shared.PeriodKey(now, s.wf.loc), now)

	sendProgress(progress, savingUpdate(sub.Track))
	if err := s.wf.submissions.Create(ctx, sub); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			s.wf.logger.Info("duplicate submission", "member", sub.Member, "period", sub.Period)
			return nil, s.failSubmit(&DisplayError{Message: ConflictMessage, Err: err})
		}
		s.wf.logger.Error("failed to store submission", "member", sub.Member, "error", err)
		return nil, s.failSubmit(&DisplayError{Message: SubmitFailedMessage, Err: err})
	}

	s.succeed(SuccessNotice(sub.Track, sub.Artist))

	s.wf.logger.Info("submission added", "id", sub.ID, "member", sub.Member, "period", sub.Period, "track", sub.Track)
	sendProgress(progress, doneUpdate("Added "+sub.Track, sub))
	s.wf.publish(Event{Type: EventQueueUpdated, SubmissionID: sub.ID, Action: "added"})
	return sub, nil
}

// Remove deletes a submission on behalf of member. See [Workflow.Remove].
func (s *Session) Remove(ctx context.Context, id string, member models.Member) error {
	s.mu.Lock()
	progress := s.progress
	s.mu.Unlock()

	return s.wf.remove(ctx, id, member, progress)
}

func (s *Session) failSubmit(err *DisplayError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SubmitError = err.Message
	return err
}

// succeed resets the search and (re)starts the notice timer.
func (s *Session) succeed(notice string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchID++
	s.state = SearchState{Notice: notice}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.noticeID++
	id := s.noticeID
	s.timer = s.wf.clock.AfterFunc(NoticeDuration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.noticeID == id {
			s.state.Notice = ""
			s.timer = nil
		}
	})
}

// Close stops a pending notice timer.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
