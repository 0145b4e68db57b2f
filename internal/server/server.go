// package server contains middleware & handlers for the weekly song web service
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/gsotw/internal/gate"
	"github.com/desertthunder/gsotw/internal/identity"
	"github.com/desertthunder/gsotw/internal/shared"
	"github.com/desertthunder/gsotw/internal/tasks"
	"github.com/desertthunder/gsotw/internal/web"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, the access gate, identity and visitor sessions.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own several routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

const (
	// SessionTTL is how long an idle visitor session is kept.
	SessionTTL    = 30 * time.Minute
	sweepInterval = time.Minute
	shutdownWait  = 10 * time.Second
)

// Options carries the dependencies of an [App].
type Options struct {
	Config   *shared.Config
	Gate     *gate.Gate
	Verifier *identity.Verifier
	Workflow *tasks.Workflow
	Listings *tasks.Listings
	Clock    shared.Clock
	Logger   *log.Logger

	// Health reports whether backing services are reachable, e.g. [sql.DB.PingContext].
	Health func(ctx context.Context) error
}

// App is the web surface: pages, the JSON API and the queue websocket.
type App struct {
	config   *shared.Config
	gate     *gate.Gate
	verifier *identity.Verifier
	workflow *tasks.Workflow
	listings *tasks.Listings
	health   func(ctx context.Context) error
	logger   *log.Logger

	pages    *web.Renderer
	sessions *Sessions
	hub      *Hub
}

// New wires an [App]. Workflow events are forwarded to the websocket hub.
func New(opts Options) (*App, error) {
	if opts.Config == nil || opts.Gate == nil || opts.Workflow == nil || opts.Listings == nil {
		return nil, fmt.Errorf("%w: server requires config, gate, workflow and listings", shared.ErrMissingConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Clock == nil {
		opts.Clock = shared.SystemClock{}
	}
	if opts.Verifier == nil {
		v, err := identity.NewVerifier(shared.IdentityConfig{})
		if err != nil {
			return nil, err
		}
		opts.Verifier = v
	}

	pages, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	a := &App{
		config:   opts.Config,
		gate:     opts.Gate,
		verifier: opts.Verifier,
		workflow: opts.Workflow,
		listings: opts.Listings,
		health:   opts.Health,
		logger:   opts.Logger,
		pages:    pages,
		sessions: NewSessions(opts.Workflow, opts.Clock, SessionTTL),
		hub:      NewHub(shared.WithLogger(opts.Logger, "component", "hub")),
	}
	a.workflow.Subscribe(a.hub.Publish)
	return a, nil
}

// Routes builds the router.
//
// /health and /auth are registered before the gate so they stay reachable without the access flag.
func (a *App) Routes() http.Handler {
	r := NewBasicRouter()
	r.Use(Logging(a.logger))

	r.HandleFunc(http.MethodGet, "/health", a.handleHealth)
	r.Handler(NewAuthHandler(a.gate, a.pages, a.config.Access, a.config.Server.SecureCookies, a.logger))

	r.Use(
		Identity(a.verifier, a.logger),
		Gate(a.gate, a.config.Access.CookieName, a.config.Server.SecureCookies),
		a.sessions.Middleware(a.config.Server.SecureCookies),
	)

	r.HandleFunc(http.MethodGet, "/{$}", a.handleDashboard)
	r.HandleFunc(http.MethodGet, "/dashboard", a.handleDashboard)
	r.HandleFunc(http.MethodGet, "/add", a.handleAdd)
	r.HandleFunc(http.MethodPost, "/add/search", a.handleAddSearch)
	r.HandleFunc(http.MethodPost, "/add/submit", a.handleAddSubmit)
	r.HandleFunc(http.MethodGet, "/next", a.handleNext)
	r.HandleFunc(http.MethodPost, "/next/{id}/remove", a.handleNextRemove)
	r.HandleFunc(http.MethodGet, "/arkiv", a.handleArchive)

	r.HandleFunc(http.MethodPost, "/api/search", a.apiSearch)
	r.HandleFunc(http.MethodGet, "/api/submissions", a.apiListSubmissions)
	r.HandleFunc(http.MethodPost, "/api/submissions", a.apiCreateSubmission)
	r.HandleFunc(http.MethodDelete, "/api/submissions/{id}", a.apiDeleteSubmission)
	r.HandleFunc(http.MethodGet, "/api/archive", a.apiListArchive)
	r.HandleFunc(http.MethodGet, "/api/latest", a.apiLatest)

	r.HandleFunc(http.MethodGet, "/ws/queue", a.hub.ServeWS)
	return r
}

// Run serves on addr until ctx is cancelled, alongside the websocket hub and the session sweeper.
func (a *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.sessions.Run(ctx, sweepInterval)
		return nil
	})
	g.Go(func() error {
		a.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		a.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			a.logger.Error("health check failed", "error", err)
			ErrorResponse(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
