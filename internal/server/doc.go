// Package server provides HTTP routing, middleware and handlers for the weekly song web app.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// Middleware only wraps routes registered after it is added, which is how /health and /auth stay outside the gate.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so "GET /next" and
// "POST /next/{id}/remove" live side by side and other methods get 405.
//
// # Middleware Stack
//
//   - [Logging] records method, path, status and duration
//   - [Identity] resolves the signed-in member from the session token
//   - [Gate] redirects visitors without the access flag to /auth
//   - [Sessions.Middleware] attaches the visitor's search session, keyed by the gsotw_sid cookie
//
// # Routes
//
//	GET  /health                    liveness and database ping
//	GET  /auth, POST /auth          code entry (ungated)
//	GET  /, /dashboard              latest pick
//	GET  /add                       search form and results
//	POST /add/search, /add/submit   form posts, redirect back to /add
//	GET  /next                      this week's queue
//	POST /next/{id}/remove          owner-only removal
//	GET  /arkiv                     archive
//	POST /api/search                JSON search
//	GET  /api/submissions           JSON queue
//	POST /api/submissions           JSON submit
//	DELETE /api/submissions/{id}    JSON remove
//	GET  /api/archive, /api/latest  JSON archive
//	GET  /ws/queue                  websocket queue-updated events
//
// API errors use the envelope {"error": <status text>, "message": <display message>}.
// See [StatusFor] for the status mapping.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// [AuthHandler] is registered this way.
package server
