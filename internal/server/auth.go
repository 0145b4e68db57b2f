package server

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/gsotw/internal/gate"
	"github.com/desertthunder/gsotw/internal/shared"
	"github.com/desertthunder/gsotw/internal/web"
)

type authView struct {
	Error string
}

// AuthHandler serves the code-entry screen.
// Implements the Handler interface for registration with a Router.
type AuthHandler struct {
	gate       *gate.Gate
	pages      *web.Renderer
	cookieName string
	secure     bool
	logger     *log.Logger
}

// NewAuthHandler creates the code-entry handler. The flag is written to the cookie named in cfg.
func NewAuthHandler(g *gate.Gate, pages *web.Renderer, cfg shared.AccessConfig, secure bool, logger *log.Logger) *AuthHandler {
	return &AuthHandler{gate: g, pages: pages, cookieName: cfg.CookieName, secure: secure, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/auth"}
}

// ServeHTTP renders the form on GET and checks the entered code on POST.
//
// A correct code writes the access flag and redirects to the dashboard. A wrong code re-renders the
// form with [gate.InvalidCodeMessage] and writes nothing.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store := gate.NewCookieStore(w, r, h.secure)
	store.Name = h.cookieName

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if h.gate.Check(store) == gate.Granted {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		h.render(w, http.StatusOK, "")

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			h.render(w, http.StatusBadRequest, gate.InvalidCodeMessage)
			return
		}

		err := h.gate.Unlock(store, r.PostFormValue("code"))
		switch {
		case err == nil:
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		case errors.Is(err, shared.ErrInvalidCode):
			h.render(w, http.StatusUnauthorized, gate.InvalidCodeMessage)
		default:
			h.logger.Error("failed to grant access", "error", err)
			h.render(w, http.StatusInternalServerError, gate.InvalidCodeMessage)
		}

	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AuthHandler) render(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.Render(w, "auth", web.Page{Title: "Access", Path: "/auth", Data: authView{Error: message}}); err != nil {
		h.logger.Error("failed to render auth page", "error", err)
	}
}
