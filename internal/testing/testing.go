// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/services"
	"github.com/desertthunder/gsotw/internal/shared"
)

// FakeClock is a manually advanced [shared.Clock].
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f; it only runs from [FakeClock.Advance].
func (c *FakeClock) AfterFunc(d time.Duration, f func()) shared.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs every timer that came due, in order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// MockCatalog is a test double for [services.Catalog]
type MockCatalog struct {
	mu sync.Mutex

	Results     []models.SearchResult
	TrackResult *models.SearchResult
	TokenErr    error
	SearchErr   error

	TokenCalls  int
	SearchCalls int
	LastLimit   int
	LastQuery   [2]string
}

func (m *MockCatalog) Name() string { return "mock" }

func (m *MockCatalog) Token(ctx context.Context) (*services.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TokenCalls++
	if m.TokenErr != nil {
		return nil, m.TokenErr
	}
	return &services.Credential{AccessToken: "mock-token", Expiry: time.Now().Add(time.Hour)}, nil
}

func (m *MockCatalog) SearchTracks(ctx context.Context, token *services.Credential, track, artist string, limit int) ([]models.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls++
	m.LastLimit = limit
	m.LastQuery = [2]string{track, artist}
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return append([]models.SearchResult{}, m.Results...), nil
}

func (m *MockCatalog) Track(ctx context.Context, token *services.Credential, id string) (*models.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if m.TrackResult != nil && m.TrackResult.ID == id {
		r := *m.TrackResult
		return &r, nil
	}
	for _, r := range m.Results {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
}

// MemorySubmissions is an in-memory [models.SubmissionStore] that enforces the (member, period) constraint.
type MemorySubmissions struct {
	mu   sync.Mutex
	rows map[string]*models.Submission

	CreateErr error
	GetErr    error
	DeleteErr error
	ListErr   error

	Deletes int
}

func NewMemorySubmissions() *MemorySubmissions {
	return &MemorySubmissions{rows: map[string]*models.Submission{}}
}

func (m *MemorySubmissions) Create(ctx context.Context, s *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	for _, row := range m.rows {
		if row.Member == s.Member && row.Period == s.Period {
			return fmt.Errorf("%w: %s in %s", shared.ErrConflict, s.Member, s.Period)
		}
	}
	if s.ID == "" {
		s.ID = shared.GenerateID()
	}
	copy := *s
	m.rows[s.ID] = &copy
	return nil
}

func (m *MemorySubmissions) Get(ctx context.Context, id string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: submission %s", shared.ErrNotFound, id)
	}
	copy := *row
	return &copy, nil
}

func (m *MemorySubmissions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("%w: submission %s", shared.ErrNotFound, id)
	}
	m.Deletes++
	delete(m.rows, id)
	return nil
}

func (m *MemorySubmissions) List(ctx context.Context) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]*models.Submission, 0, len(m.rows))
	for _, row := range m.rows {
		copy := *row
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MemoryArchive is an in-memory [models.ArchiveStore].
type MemoryArchive struct {
	mu      sync.Mutex
	entries []*models.ArchiveEntry

	ListErr error
}

func (m *MemoryArchive) Append(ctx context.Context, e *models.ArchiveEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = shared.GenerateID()
	}
	copy := *e
	m.entries = append(m.entries, &copy)
	return nil
}

func (m *MemoryArchive) List(ctx context.Context) ([]*models.ArchiveEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]*models.ArchiveEntry, 0, len(m.entries))
	for _, e := range m.entries {
		copy := *e
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryArchive) Latest(ctx context.Context) (*models.ArchiveEntry, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: archive is empty", shared.ErrNotFound)
	}
	return all[0], nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
