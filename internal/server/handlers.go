package server

import (
	"errors"
	"net/http"

	"github.com/desertthunder/gsotw/internal/identity"
	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/shared"
	"github.com/desertthunder/gsotw/internal/tasks"
	"github.com/desertthunder/gsotw/internal/web"
)

// StatusFor maps a workflow error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrAuthConfig),
		errors.Is(err, shared.ErrTokenExchange),
		errors.Is(err, shared.ErrSearch):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func apiError(w http.ResponseWriter, err error) {
	ErrorResponse(w, StatusFor(err), tasks.Message(err))
}

type dashboardView struct {
	Latest *models.ArchiveEntry
	Queued int
	Error  string
}

type addView struct {
	State tasks.SearchState
}

type queueRow struct {
	*models.Submission
	Owned bool
}

type nextView struct {
	Listing tasks.Listing[*models.Submission]
	Rows    []queueRow
	Error   string
}

func (a *App) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	page := web.Page{
		Title:  title,
		Path:   "/" + name,
		Member: identity.MemberFrom(r.Context()).Name(),
		Data:   data,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := a.pages.Render(w, name, page); err != nil {
		a.logger.Error("failed to render page", "page", name, "error", err)
	}
}

func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view := dashboardView{}

	latest, err := a.listings.Latest(r.Context())
	if err != nil {
		view.Error = tasks.Message(err)
	}
	view.Latest = latest

	queue := a.listings.ListCurrent(r.Context())
	if queue.State == tasks.ListError && view.Error == "" {
		view.Error = queue.Error
	}
	view.Queued = len(queue.Items)

	a.render(w, r, http.StatusOK, "dashboard", "Hem", view)
}

func (a *App) handleAdd(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "add", "Lägg till", addView{State: a.sessionFrom(r).State()})
}

// handleAddSearch runs the search and redirects back to /add, which renders the session state.
func (a *App) handleAddSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	_, _ = a.sessionFrom(r).Search(r.Context(), r.PostFormValue("track"), r.PostFormValue("artist"))
	http.Redirect(w, r, "/add", http.StatusSeeOther)
}

// handleAddSubmit submits one of the results currently shown in the visitor's session.
func (a *App) handleAddSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	session := a.sessionFrom(r)
	var chosen models.SearchResult
	id := r.PostFormValue("id")
	for _, result := range session.State().Results {
		if result.ID == id {
			chosen = result
			break
		}
	}

	_, _ = session.Submit(r.Context(), chosen, identity.MemberFrom(r.Context()))
	http.Redirect(w, r, "/add", http.StatusSeeOther)
}

func (a *App) nextView(r *http.Request) nextView {
	member := identity.MemberFrom(r.Context())
	listing := a.listings.ListCurrent(r.Context())

	rows := make([]queueRow, 0, len(listing.Items))
	for _, s := range listing.Items {
		rows = append(rows, queueRow{Submission: s, Owned: s.OwnedBy(member)})
	}
	return nextView{Listing: listing, Rows: rows}
}

func (a *App) handleNext(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "next", "Nästa", a.nextView(r))
}

func (a *App) handleNextRemove(w http.ResponseWriter, r *http.Request) {
	err := a.sessionFrom(r).Remove(r.Context(), r.PathValue("id"), identity.MemberFrom(r.Context()))
	if err != nil {
		view := a.nextView(r)
		view.Error = tasks.Message(err)
		a.render(w, r, StatusFor(err), "next", "Nästa", view)
		return
	}
	http.Redirect(w, r, "/next", http.StatusSeeOther)
}

func (a *App) handleArchive(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "arkiv", "Arkiv", a.listings.ListArchive(r.Context()))
}

type searchRequest struct {
	Track  string `json:"track"`
	Artist string `json:"artist"`
}

type searchResponse struct {
	Results []models.SearchResult `json:"results"`
	Message string                `json:"message,omitempty"`
}

type submitResponse struct {
	Submission *models.Submission `json:"submission"`
	Notice     string             `json:"notice"`
}

func (a *App) apiSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := ParseJSONBody(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	results, err := a.sessionFrom(r).Search(r.Context(), req.Track, req.Artist)
	if err != nil {
		apiError(w, err)
		return
	}

	resp := searchResponse{Results: results}
	if len(results) == 0 {
		resp.Message = tasks.NoResultsMessage
	}
	JSONResponse(w, http.StatusOK, resp)
}

func (a *App) apiListSubmissions(w http.ResponseWriter, r *http.Request) {
	listing := a.listings.ListCurrent(r.Context())
	if listing.State == tasks.ListError {
		ErrorResponse(w, http.StatusInternalServerError, listing.Error)
		return
	}
	JSONResponse(w, http.StatusOK, listing)
}

func (a *App) apiCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var result models.SearchResult
	if err := ParseJSONBody(r, &result); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	session := a.sessionFrom(r)
	sub, err := session.Submit(r.Context(), result, identity.MemberFrom(r.Context()))
	if err != nil {
		apiError(w, err)
		return
	}
	JSONResponse(w, http.StatusCreated, submitResponse{Submission: sub, Notice: session.State().Notice})
}

func (a *App) apiDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	if err := a.sessionFrom(r).Remove(r.Context(), r.PathValue("id"), identity.MemberFrom(r.Context())); err != nil {
		apiError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) apiListArchive(w http.ResponseWriter, r *http.Request) {
	listing := a.listings.ListArchive(r.Context())
	if listing.State == tasks.ListError {
		ErrorResponse(w, http.StatusInternalServerError, listing.Error)
		return
	}
	JSONResponse(w, http.StatusOK, listing)
}

func (a *App) apiLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := a.listings.Latest(r.Context())
	if err != nil {
		apiError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]*models.ArchiveEntry{"latest": latest})
}
