package models

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AnonymousMember is the display name used when the identity provider gives no usable name.
const AnonymousMember = "Anonymous"

// SubmissionStore defines the data access operations on pending submissions.
type SubmissionStore interface {
	Create(ctx context.Context, s *Submission) error // Create inserts a new submission; duplicates for (member, period) fail with a conflict
	Get(ctx context.Context, id string) (*Submission, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Submission, error) // List returns all submissions, newest first
}

// ArchiveStore defines the data access operations on settled picks.
type ArchiveStore interface {
	Append(ctx context.Context, e *ArchiveEntry) error
	List(ctx context.Context) ([]*ArchiveEntry, error) // List returns all entries, newest first
	Latest(ctx context.Context) (*ArchiveEntry, error)
}

// Image is one rendition of album artwork.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// SearchResult is a catalog track candidate.
type SearchResult struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album,omitempty"`
	Images      []Image  `json:"images,omitempty"`
	ExternalURL string   `json:"external_url"`
}

// ArtistLine joins the credited artists with ", ".
func (r SearchResult) ArtistLine() string {
	return strings.Join(r.Artists, ", ")
}

// CoverURL returns the first image URL, or "" when the track has no artwork.
func (r SearchResult) CoverURL() string {
	if len(r.Images) == 0 {
		return ""
	}
	return r.Images[0].URL
}

// Valid reports whether the result carries enough data to be submitted.
func (r SearchResult) Valid() bool {
	return strings.TrimSpace(r.ID) != "" && strings.TrimSpace(r.Title) != ""
}

// Member is a signed-in group member.
//
// The zero value is the anonymous visitor.
type Member struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Name resolves the display name: username, then first name, then email, then [AnonymousMember].
func (m Member) Name() string {
	for _, v := range []string{m.Username, m.FirstName, m.Email} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return AnonymousMember
}

// Anonymous reports whether no identity is attached.
func (m Member) Anonymous() bool {
	return m.Name() == AnonymousMember
}

// Submission is a member's pick for the current period.
type Submission struct {
	ID          string    `json:"id"`
	ImageURL    string    `json:"image"`
	ExternalURL string    `json:"spotify_url"`
	Track       string    `json:"track"`
	Artist      string    `json:"artist"`
	Member      string    `json:"user"`
	Period      string    `json:"period"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewSubmission builds a submission from a chosen search result.
func NewSubmission(r SearchResult, m Member, period string, now time.Time) *Submission {
	return &Submission{
		ImageURL:    r.CoverURL(),
		ExternalURL: r.ExternalURL,
		Track:       r.Title,
		Artist:      r.ArtistLine(),
		Member:      m.Name(),
		Period:      period,
		CreatedAt:   now.UTC(),
	}
}

// Validate checks required fields.
func (s *Submission) Validate() error {
	return validateRow("submission", s.ID, s.Track, s.Artist, s.Member, s.Period)
}

// OwnedBy reports whether the member may remove this submission.
//
// Anonymous visitors never own anything, even rows stored under [AnonymousMember].
func (s *Submission) OwnedBy(m Member) bool {
	return !m.Anonymous() && s.Member == m.Name()
}

// ArchiveEntry is a settled weekly pick.
type ArchiveEntry struct {
	ID          string    `json:"id"`
	ImageURL    string    `json:"image"`
	ExternalURL string    `json:"spotify_url"`
	Track       string    `json:"track"`
	Artist      string    `json:"artist"`
	Member      string    `json:"user"`
	Period      string    `json:"period"`
	CreatedAt   time.Time `json:"created_at"`
	Week        int       `json:"week"` // derived on read, not stored
}

// ArchiveFromSubmission settles a submission into an archive entry with a fresh ID.
func ArchiveFromSubmission(s *Submission, id string) *ArchiveEntry {
	return &ArchiveEntry{
		ID:          id,
		ImageURL:    s.ImageURL,
		ExternalURL: s.ExternalURL,
		Track:       s.Track,
		Artist:      s.Artist,
		Member:      s.Member,
		Period:      s.Period,
		CreatedAt:   s.CreatedAt,
	}
}

// Validate checks required fields.
func (e *ArchiveEntry) Validate() error {
	return validateRow("archive entry", e.ID, e.Track, e.Artist, e.Member, e.Period)
}

func validateRow(kind, id, track, artist, member, period string) error {
	switch {
	case id == "":
		return fmt.Errorf("%s id is required", kind)
	case strings.TrimSpace(track) == "":
		return fmt.Errorf("%s track is required", kind)
	case strings.TrimSpace(artist) == "":
		return fmt.Errorf("%s artist is required", kind)
	case member == "":
		return fmt.Errorf("%s member is required", kind)
	case period == "":
		return fmt.Errorf("%s period is required", kind)
	}
	return nil
}
