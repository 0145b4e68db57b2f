// package services defines interface Catalog for looking up tracks over HTTP
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/shared"
)

const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 50
)

// Catalog defines the track lookup operations used by the submission workflow.
type Catalog interface {
	// Token exchanges the configured client credentials for a short-lived access token.
	Token(ctx context.Context) (*Credential, error)

	// SearchTracks searches for tracks matching both the track title and the artist.
	// An empty slice with a nil error means nothing matched.
	SearchTracks(ctx context.Context, token *Credential, track, artist string, limit int) ([]models.SearchResult, error)

	// Track looks up a single track by catalog ID.
	Track(ctx context.Context, token *Credential, id string) (*models.SearchResult, error)

	// Name returns the name of the catalog (e.g., "Spotify")
	Name() string
}

// Credential is an access token for one search. It is never persisted.
type Credential struct {
	AccessToken string
	Expiry      time.Time
}

// Valid reports whether the credential can still be used.
func (c *Credential) Valid() bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return c.Expiry.IsZero() || time.Now().Before(c.Expiry)
}

// ClampLimit keeps a search limit within what the catalog accepts.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return limit
	}
}

// AuthConfigError reports missing client credentials. No request was made.
type AuthConfigError struct {
	Missing []string
}

func (e *AuthConfigError) Error() string {
	return fmt.Sprintf("Spotify client credentials are not configured (missing %s)", strings.Join(e.Missing, ", "))
}

func (e *AuthConfigError) Unwrap() error { return shared.ErrAuthConfig }

// TokenExchangeError reports a rejected or failed token request.
type TokenExchangeError struct {
	Status      int
	Code        string // "error" field of the token endpoint response
	Description string // "error_description" field
	Err         error  // transport failure, when no response was received
}

func (e *TokenExchangeError) Error() string {
	return "Failed to get Spotify access token: " + e.detail()
}

func (e *TokenExchangeError) detail() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Code != "":
		return e.Code
	case e.Err != nil:
		return e.Err.Error()
	case e.Status != 0:
		return http.StatusText(e.Status)
	default:
		return "unknown error"
	}
}

func (e *TokenExchangeError) Unwrap() []error {
	if e.Err != nil {
		return []error{shared.ErrTokenExchange, e.Err}
	}
	return []error{shared.ErrTokenExchange}
}

// SearchError reports a failed search or track lookup.
type SearchError struct {
	Op      string // "search" or "track"
	Status  int
	Message string
	Err     error
}

func (e *SearchError) Error() string {
	prefix := "Spotify search failed"
	if e.Op == "track" {
		prefix = "Failed to get track"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "Unknown error"
	}
	return prefix + ": " + msg
}

func (e *SearchError) Unwrap() []error {
	errs := []error{shared.ErrSearch}
	if e.Status == http.StatusNotFound {
		errs = append(errs, shared.ErrNotFound)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
