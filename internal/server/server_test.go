package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/gsotw/internal/gate"
	"github.com/desertthunder/gsotw/internal/identity"
	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/services"
	"github.com/desertthunder/gsotw/internal/shared"
	"github.com/desertthunder/gsotw/internal/tasks"
	tu "github.com/desertthunder/gsotw/internal/testing"
)

const testSecret = "server-test-secret"

var (
	alice = models.Member{ID: "u1", Username: "alice"}
	bob   = models.Member{ID: "u2", Username: "bob"}
)

type fixture struct {
	app     *App
	handler http.Handler
	catalog *tu.MockCatalog
	store   *tu.MemorySubmissions
	archive *tu.MemoryArchive
	clock   *tu.FakeClock
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := shared.DefaultConfig()
	cfg.Access.Passcode = "SOMMAR"
	cfg.Identity.JWTSecret = testSecret

	verifier, err := identity.NewVerifier(cfg.Identity)
	require.NoError(t, err)

	f := &fixture{
		catalog: &tu.MockCatalog{Results: []models.SearchResult{{
			ID:          "t1",
			Title:       "Dancing Queen",
			Artists:     []string{"ABBA"},
			Images:      []models.Image{{URL: "https://i.scdn.co/image/t1"}},
			ExternalURL: "https://open.spotify.com/track/t1",
		}}},
		store:   tu.NewMemorySubmissions(),
		archive: &tu.MemoryArchive{},
		clock:   tu.NewFakeClock(time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)),
		logs:    &bytes.Buffer{},
	}

	logger := shared.NewLogger(f.logs)
	wf := tasks.NewWorkflow(f.catalog, f.store, tasks.WithClock(f.clock), tasks.WithLogger(logger))
	app, err := New(Options{
		Config:   cfg,
		Gate:     gate.New(cfg.Access.Passcode, logger),
		Verifier: verifier,
		Workflow: wf,
		Listings: tasks.NewListings(f.store, f.archive, time.UTC, logger),
		Clock:    f.clock,
		Logger:   logger,
	})
	require.NoError(t, err)

	f.app = app
	f.handler = app.Routes()
	return f
}

func granted() *http.Cookie {
	return &http.Cookie{Name: "gsotw_access", Value: gate.FlagGranted}
}

func bearer(t *testing.T, m models.Member) string {
	t.Helper()
	token, err := identity.Sign(m, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

// do sends a request through the handler with the access flag and, when m is set, a session token.
func (f *fixture) do(t *testing.T, method, target string, body any, m *models.Member, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, r)
	req.AddCookie(granted())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if m != nil {
		req.Header.Set("Authorization", bearer(t, *m))
	}

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGate(t *testing.T) {
	f := newFixture(t)

	t.Run("Page Redirects", func(t *testing.T) {
		for _, path := range []string{"/", "/dashboard", "/add", "/next", "/arkiv"} {
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusSeeOther, w.Code, path)
			assert.Equal(t, "/auth", w.Header().Get("Location"), path)
			assert.NotContains(t, w.Body.String(), "<main>", path)
		}
	})

	t.Run("API Unauthorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/submissions", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, ErrorBody{Error: "Unauthorized", Message: AccessRequiredMessage}, decodeError(t, w))
	})

	t.Run("Wrong Flag Value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: "gsotw_access", Value: "yes"})
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
	})

	t.Run("Granted", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/dashboard", nil, &alice)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Hej alice!")
	})

	t.Run("Health Is Open", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})
}

func TestAuthHandler(t *testing.T) {
	f := newFixture(t)

	post := func(code string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(url.Values{"code": {code}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		return w
	}

	t.Run("Form", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `name="code"`)
	})

	t.Run("Wrong Code", func(t *testing.T) {
		w := post("VINTER")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), gate.InvalidCodeMessage)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("Correct Code Any Case", func(t *testing.T) {
		w := post("sommar")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "gsotw_access", cookies[0].Name)
		assert.Equal(t, gate.FlagGranted, cookies[0].Value)
	})

	t.Run("Already Granted", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/auth", nil, nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/auth", nil, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestAPI(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		f := newFixture(t)

		w := f.do(t, http.MethodPost, "/api/search", searchRequest{Track: "Dancing Queen", Artist: "ABBA"}, &alice)
		require.Equal(t, http.StatusOK, w.Code)

		var resp searchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "t1", resp.Results[0].ID)
		assert.Empty(t, resp.Message)
	})

	t.Run("Search No Results", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.Results = nil

		w := f.do(t, http.MethodPost, "/api/search", searchRequest{Track: "zzz"}, &alice)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"results":[],"message":%q}`, tasks.NoResultsMessage), w.Body.String())
	})

	t.Run("Search Catalog Failure", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.TokenErr = &services.AuthConfigError{Missing: []string{"client_id"}}

		w := f.do(t, http.MethodPost, "/api/search", searchRequest{Track: "Dancing Queen"}, &alice)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "Spotify client credentials are not configured (missing client_id)", decodeError(t, w).Message)
	})

	t.Run("Search Bad Body", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader("{"))
		req.AddCookie(granted())
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Submit List Remove", func(t *testing.T) {
		f := newFixture(t)
		result := f.catalog.Results[0]

		w := f.do(t, http.MethodPost, "/api/submissions", result, &alice)
		require.Equal(t, http.StatusCreated, w.Code)

		var created submitResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, tasks.SuccessNotice("Dancing Queen", "ABBA"), created.Notice)
		id := created.Submission.ID

		w = f.do(t, http.MethodPost, "/api/submissions", result, &alice)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, ErrorBody{Error: "Conflict", Message: tasks.ConflictMessage}, decodeError(t, w))

		w = f.do(t, http.MethodGet, "/api/submissions", nil, &alice)
		require.Equal(t, http.StatusOK, w.Code)
		var listing struct {
			Items []models.Submission `json:"items"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
		require.Len(t, listing.Items, 1)
		got := listing.Items[0]
		assert.Equal(t, "Dancing Queen", got.Track)
		assert.Equal(t, "ABBA", got.Artist)
		assert.Equal(t, "https://i.scdn.co/image/t1", got.ImageURL)
		assert.Equal(t, "https://open.spotify.com/track/t1", got.ExternalURL)
		assert.Equal(t, "alice", got.Member)

		w = f.do(t, http.MethodDelete, "/api/submissions/"+id, nil, &bob)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, tasks.NotOwnerMessage, decodeError(t, w).Message)
		assert.Zero(t, f.store.Deletes)

		w = f.do(t, http.MethodDelete, "/api/submissions/"+id, nil, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, "anonymous visitors own nothing")

		w = f.do(t, http.MethodDelete, "/api/submissions/"+id, nil, &alice)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, 1, f.store.Deletes)

		w = f.do(t, http.MethodDelete, "/api/submissions/"+id, nil, &alice)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, tasks.RemoveFailedMessage, decodeError(t, w).Message)
	})

	t.Run("Submit Store Failure", func(t *testing.T) {
		f := newFixture(t)
		f.store.CreateErr = errors.New("disk full")

		w := f.do(t, http.MethodPost, "/api/submissions", f.catalog.Results[0], &alice)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, tasks.SubmitFailedMessage, decodeError(t, w).Message)
	})

	t.Run("List Failure", func(t *testing.T) {
		f := newFixture(t)
		f.store.ListErr = errors.New("connection refused")

		w := f.do(t, http.MethodGet, "/api/submissions", nil, &alice)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, tasks.QueueFailedMessage, decodeError(t, w).Message)
	})

	t.Run("Archive And Latest", func(t *testing.T) {
		f := newFixture(t)

		w := f.do(t, http.MethodGet, "/api/latest", nil, &alice)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"latest":null}`, w.Body.String())

		require.NoError(t, f.archive.Append(context.Background(), &models.ArchiveEntry{
			Track: "Waterloo", Artist: "ABBA", Member: "alice", Period: "2024-W01",
			CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		}))

		w = f.do(t, http.MethodGet, "/api/archive", nil, &alice)
		require.Equal(t, http.StatusOK, w.Code)
		var listing struct {
			Items []models.ArchiveEntry `json:"items"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
		require.Len(t, listing.Items, 1)
		assert.Equal(t, 1, listing.Items[0].Week)

		w = f.do(t, http.MethodGet, "/api/latest", nil, &alice)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"track":"Waterloo"`)
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, http.MethodPut, "/api/submissions", nil, &alice)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestPages(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	token, err := identity.Sign(alice, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	jar.SetCookies(base, []*http.Cookie{granted(), {Name: "__session", Value: token}})

	client := &http.Client{Jar: jar}
	read := func(resp *http.Response) string {
		t.Helper()
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(b)
	}

	t.Run("Search Then Submit", func(t *testing.T) {
		resp, err := client.PostForm(srv.URL+"/add/search", url.Values{"track": {"Dancing Queen"}, "artist": {"ABBA"}})
		require.NoError(t, err)
		body := read(resp)
		assert.Equal(t, "/add", resp.Request.URL.Path)
		assert.Contains(t, body, `value="t1"`)
		assert.Contains(t, body, `value="Dancing Queen"`)

		resp, err = client.PostForm(srv.URL+"/add/submit", url.Values{"id": {"t1"}})
		require.NoError(t, err)
		body = read(resp)
		assert.Contains(t, body, "har lagts till i utlottningen!")
		assert.NotContains(t, body, `value="t1"`)
	})

	t.Run("Submit Unknown Result", func(t *testing.T) {
		resp, err := client.PostForm(srv.URL+"/add/submit", url.Values{"id": {"nope"}})
		require.NoError(t, err)
		assert.Contains(t, read(resp), tasks.SubmitFailedMessage)
	})

	t.Run("Queue Shows Own Remove Button", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/next")
		require.NoError(t, err)
		body := read(resp)
		assert.Contains(t, body, "Dancing Queen")
		assert.Contains(t, body, "/remove")

		w := f.do(t, http.MethodGet, "/next", nil, &bob)
		assert.Contains(t, w.Body.String(), "Dancing Queen")
		assert.NotContains(t, w.Body.String(), "/remove")
	})

	t.Run("Remove Rejected For Other Member", func(t *testing.T) {
		rows, err := f.store.List(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 1)

		w := f.do(t, http.MethodPost, "/next/"+rows[0].ID+"/remove", nil, &bob)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), tasks.NotOwnerMessage)
		assert.Zero(t, f.store.Deletes)

		resp, err := client.Post(srv.URL+"/next/"+rows[0].ID+"/remove", "application/x-www-form-urlencoded", nil)
		require.NoError(t, err)
		assert.Contains(t, read(resp), "Inga låtar ännu")
		assert.Equal(t, 1, f.store.Deletes)
	})

	t.Run("Archive", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/arkiv")
		require.NoError(t, err)
		assert.Contains(t, read(resp), "Arkivet är tomt.")
	})

	t.Run("Session Cookie Set Once", func(t *testing.T) {
		var sid []*http.Cookie
		for _, c := range jar.Cookies(base) {
			if c.Name == SessionCookie {
				sid = append(sid, c)
			}
		}
		assert.Len(t, sid, 1)
	})
}

func TestLogging(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	out := f.logs.String()
	assert.Contains(t, out, "method=GET")
	assert.Contains(t, out, "path=/health")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "duration=")
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	f.app.health = func(context.Context) error { return errors.New("db down") }

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("wrap: %w", shared.ErrConflict), http.StatusConflict},
		{&tasks.DisplayError{Message: "x", Err: shared.ErrNotOwner}, http.StatusForbidden},
		{&services.TokenExchangeError{Status: 401}, http.StatusBadGateway},
		{&services.SearchError{Status: 404}, http.StatusBadGateway},
		{&services.AuthConfigError{}, http.StatusBadGateway},
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrMissingArgument, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

func TestSessions(t *testing.T) {
	clock := tu.NewFakeClock(time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC))
	wf := tasks.NewWorkflow(&tu.MockCatalog{}, tu.NewMemorySubmissions(), tasks.WithClock(clock))
	sessions := NewSessions(wf, clock, time.Minute)

	id, first := sessions.Get("")
	require.NotEmpty(t, id)

	sameID, same := sessions.Get(id)
	assert.Equal(t, id, sameID)
	assert.Same(t, first, same)

	otherID, _ := sessions.Get("forged")
	assert.NotEqual(t, "forged", otherID)
	assert.Equal(t, 2, sessions.Len())

	clock.Advance(30 * time.Second)
	sessions.Get(id)
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, sessions.Sweep())
	assert.Equal(t, 1, sessions.Len())
}

func TestQueueWebsocket(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.app.hub.Run(ctx)

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	t.Run("Requires Access", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/queue", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Receives Queue Updates", func(t *testing.T) {
		header := http.Header{}
		header.Add("Cookie", granted().String())
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/queue", header)
		require.NoError(t, err)
		defer conn.Close()

		require.Eventually(t, func() bool { return f.app.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

		w := f.do(t, http.MethodPost, "/api/submissions", f.catalog.Results[0], &alice)
		require.Equal(t, http.StatusCreated, w.Code)

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var e tasks.Event
		require.NoError(t, conn.ReadJSON(&e))
		assert.Equal(t, tasks.EventQueueUpdated, e.Type)
		assert.Equal(t, "added", e.Action)
		assert.NotEmpty(t, e.SubmissionID)
	})
}
