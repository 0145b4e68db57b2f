// Spotify Web API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/shared"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifySearchResponse is the body of GET /search?type=track.
type SpotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

// spotifyError is the error object returned by the Web API.
type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Result maps a track onto the catalog-neutral [models.SearchResult].
func (t SpotifyTrack) Result() models.SearchResult {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	images := make([]models.Image, 0, len(t.Album.Images))
	for _, img := range t.Album.Images {
		images = append(images, models.Image{URL: img.URL, Width: img.Width, Height: img.Height})
	}

	externalURL := t.ExternalURLs.Spotify
	if externalURL == "" && t.ID != "" {
		externalURL = "https://open.spotify.com/track/" + t.ID
	}

	return models.SearchResult{
		ID:          t.ID,
		Title:       t.Name,
		Artists:     artists,
		Album:       t.Album.Name,
		Images:      images,
		ExternalURL: externalURL,
	}
}

// SpotifyService implements the [Catalog] interface for the Spotify Web API.
// Uses [clientcredentials] for app-only tokens; no user authorization is involved.
type SpotifyService struct {
	config     clientcredentials.Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithHTTPClient sets the client used for both the token exchange and API calls.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithRateLimit paces outbound requests to rps requests per second. Zero or less disables pacing.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSpotifyService creates a Spotify catalog client from config.
//
// Missing credentials are not an error here: they surface as [AuthConfigError] on the first [SpotifyService.Token] call.
func NewSpotifyService(cfg shared.SpotifyConfig, opts ...SpotifyOption) *SpotifyService {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	baseURL := strings.TrimRight(cfg.APIURL, "/")
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	s := &SpotifyService{
		config: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		logger:     shared.NewLogger(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

func (s *SpotifyService) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// Token performs a single client-credentials exchange. There is no retry.
func (s *SpotifyService) Token(ctx context.Context) (*Credential, error) {
	var missing []string
	if strings.TrimSpace(s.config.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(s.config.ClientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return nil, &AuthConfigError{Missing: missing}
	}

	if err := s.wait(ctx); err != nil {
		return nil, &TokenExchangeError{Err: err}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			te := &TokenExchangeError{Code: re.ErrorCode, Description: re.ErrorDescription}
			if re.Response != nil {
				te.Status = re.Response.StatusCode
			}
			s.logger.Warn("token exchange rejected", "status", te.Status, "error", te.Code)
			return nil, te
		}
		s.logger.Warn("token exchange failed", "error", err)
		return nil, &TokenExchangeError{Err: err}
	}

	return &Credential{AccessToken: token.AccessToken, Expiry: token.Expiry}, nil
}

// SearchTracks calls GET /search with a field-filtered query "track:<track> artist:<artist>".
//
// The limit is clamped with [ClampLimit]. Invalid items are dropped.
func (s *SpotifyService) SearchTracks(ctx context.Context, token *Credential, track, artist string, limit int) ([]models.SearchResult, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("track:%s artist:%s", track, artist))
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(ClampLimit(limit)))

	var response SpotifySearchResponse
	if err := s.doRequest(ctx, "search", token, "/search?"+params.Encode(), &response); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		if r := item.Result(); r.Valid() {
			results = append(results, r)
		}
	}

	s.logger.Debug("search complete", "track", track, "artist", artist, "results", len(results))
	return results, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, token *Credential, id string) (*models.SearchResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	var track SpotifyTrack
	if err := s.doRequest(ctx, "track", token, "/tracks/"+url.PathEscape(id), &track); err != nil {
		return nil, err
	}

	result := track.Result()
	if !result.Valid() {
		return nil, &SearchError{Op: "track", Message: "track has no id or name"}
	}
	return &result, nil
}

// doRequest performs an authenticated GET request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, op string, token *Credential, endpoint string, result any) error {
	if !token.Valid() {
		return &SearchError{Op: op, Status: http.StatusUnauthorized, Message: "missing or expired access token"}
	}

	if err := s.wait(ctx); err != nil {
		return &SearchError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return &SearchError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &SearchError{Op: op, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr spotifyError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		s.logger.Warn("spotify API error", "op", op, "status", resp.StatusCode, "message", apiErr.Error.Message)
		return &SearchError{Op: op, Status: resp.StatusCode, Message: apiErr.Error.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &SearchError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}
