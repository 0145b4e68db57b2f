package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/gsotw/internal/shared"
	"github.com/desertthunder/gsotw/internal/tasks"
)

// SessionCookie names the cookie that keys a visitor's workflow state.
const SessionCookie = "gsotw_sid"

type sessionEntry struct {
	session  *tasks.Session
	lastSeen time.Time
}

// Sessions is the in-memory table of per-visitor workflow state.
type Sessions struct {
	workflow *tasks.Workflow
	clock    shared.Clock
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

// NewSessions creates an empty table. Entries idle for longer than ttl are dropped by [Sessions.Sweep].
func NewSessions(wf *tasks.Workflow, clock shared.Clock, ttl time.Duration) *Sessions {
	return &Sessions{workflow: wf, clock: clock, ttl: ttl, entries: map[string]*sessionEntry{}}
}

// Get returns the session for id, creating it when absent. The returned id differs from the argument
// only when a new session was created.
func (s *Sessions) Get(id string) (string, *tasks.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if e, ok := s.entries[id]; ok && id != "" {
		e.lastSeen = now
		return id, e.session
	}

	id = shared.GenerateID()
	e := &sessionEntry{session: s.workflow.Session(), lastSeen: now}
	s.entries[id] = e
	return id, e.session
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops sessions idle for longer than the ttl and returns how many were dropped.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-s.ttl)
	n := 0
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			e.session.Close()
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

type sessionKey struct{}

// Middleware attaches the visitor's session to the request context, setting the cookie for new visitors.
func (s *Sessions) Middleware(secure bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var current string
			if c, err := r.Cookie(SessionCookie); err == nil {
				current = c.Value
			}

			id, session := s.Get(current)
			if id != current {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
		})
	}
}

// sessionFrom returns the visitor's session; outside the middleware it returns a throwaway one.
func (a *App) sessionFrom(r *http.Request) *tasks.Session {
	if s, ok := r.Context().Value(sessionKey{}).(*tasks.Session); ok {
		return s
	}
	return a.workflow.Session()
}
