// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/codex-agent/daemon/internal/agentproc"
	"github.com/codex-agent/daemon/internal/auth"
	"github.com/codex-agent/daemon/internal/bookmark"
	"github.com/codex-agent/daemon/internal/filechange"
	"github.com/codex-agent/daemon/internal/group"
	"github.com/codex-agent/daemon/internal/hub"
	"github.com/codex-agent/daemon/internal/httpapi/handlers"
	"github.com/codex-agent/daemon/internal/queue"
)

// Deps is every component the route table wires to a handler.
type Deps struct {
	Sessions       handlers.SessionFacade
	FileIndex      *filechange.Store
	Groups         *group.Store
	Queues         *queue.Store
	Bookmarks      *bookmark.Store
	Tokens         *auth.Store
	Hub            *hub.Hub
	Runner         *agentproc.Runner
	GroupRunner    group.ProcessRunner
	QueueRunner    queue.ProcessRunner
	MaxConcurrency int
	StaticToken    string
	AllowedOrigin  string
	Logger         *log.Logger
}

// NewServer builds the full route table behind the middleware chain
// (Logging, Recovery, CORS, Auth) and returns it as an http.Handler.
func NewServer(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}

	rt := NewRouter()

	sessions := handlers.NewSessionHandler(d.Sessions, d.FileIndex, d.Runner)
	groups := handlers.NewGroupHandler(d.Groups, d.GroupRunner, d.MaxConcurrency)
	queues := handlers.NewQueueHandler(d.Queues, d.QueueRunner)
	files := handlers.NewFileHandler(d.FileIndex, d.Sessions)
	bookmarks := handlers.NewBookmarkHandler(d.Bookmarks)

	rt.Add(http.MethodGet, "/health", func(w http.ResponseWriter, r *http.Request, _ handlers.Params) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	rt.Add(http.MethodGet, "/status", func(w http.ResponseWriter, r *http.Request, _ handlers.Params) {
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "time": time.Now()})
	})
	rt.Add(http.MethodGet, "/ws", func(w http.ResponseWriter, r *http.Request, _ handlers.Params) {
		d.Hub.ServeWS(w, r)
	})

	const (
		sessionRead   = auth.PermSessionRead
		groupAll      = auth.PermGroupAll
		queueAll      = auth.PermQueueAll
		bookmarkAll   = auth.PermBookmarkAll
		sessionCreate = auth.PermSessionCreate
	)

	rt.Add(http.MethodGet, "/api/sessions", wrap(sessionRead, sessions.List))
	rt.Add(http.MethodGet, "/api/sessions/search", wrap(sessionRead, sessions.Search))
	rt.Add(http.MethodGet, "/api/sessions/:id", wrap(sessionRead, sessions.Get))
	rt.Add(http.MethodGet, "/api/sessions/:id/search", wrap(sessionRead, sessions.SearchTranscript))
	rt.Add(http.MethodGet, "/api/sessions/:id/events", wrap(sessionRead, sessions.Events))
	rt.Add(http.MethodGet, "/api/sessions/:id/export", wrap(sessionRead, sessions.Export))
	rt.Add(http.MethodPost, "/api/sessions/:id/fork", wrap(sessionCreate, sessions.Fork))

	rt.Add(http.MethodGet, "/api/groups", wrap(groupAll, groups.List))
	rt.Add(http.MethodPost, "/api/groups", wrap(groupAll, groups.Create))
	rt.Add(http.MethodGet, "/api/groups/:id", wrap(groupAll, groups.Get))
	rt.Add(http.MethodDelete, "/api/groups/:id", wrap(groupAll, groups.Delete))
	rt.Add(http.MethodPost, "/api/groups/:id/sessions", wrap(groupAll, groups.AddSession))
	rt.Add(http.MethodDelete, "/api/groups/:id/sessions", wrap(groupAll, groups.RemoveSession))
	rt.Add(http.MethodPost, "/api/groups/:id/run", wrap(groupAll, groups.Run))
	rt.Add(http.MethodPost, "/api/groups/:id/pause", wrap(groupAll, groups.Pause))
	rt.Add(http.MethodPost, "/api/groups/:id/resume", wrap(groupAll, groups.Resume))

	rt.Add(http.MethodGet, "/api/queues", wrap(queueAll, queues.List))
	rt.Add(http.MethodPost, "/api/queues", wrap(queueAll, queues.Create))
	rt.Add(http.MethodGet, "/api/queues/:id", wrap(queueAll, queues.Get))
	rt.Add(http.MethodDelete, "/api/queues/:id", wrap(queueAll, queues.Delete))
	rt.Add(http.MethodPost, "/api/queues/:id/prompts", wrap(queueAll, queues.AddPrompt))
	rt.Add(http.MethodPatch, "/api/queues/:id/prompts/:promptId", wrap(queueAll, queues.UpdatePrompt))
	rt.Add(http.MethodDelete, "/api/queues/:id/prompts/:promptId", wrap(queueAll, queues.RemovePrompt))
	rt.Add(http.MethodPost, "/api/queues/:id/run", wrap(queueAll, queues.Run))
	rt.Add(http.MethodPost, "/api/queues/:id/stop", wrap(queueAll, queues.Stop))
	rt.Add(http.MethodPost, "/api/queues/:id/pause", wrap(queueAll, queues.Pause))
	rt.Add(http.MethodPost, "/api/queues/:id/resume", wrap(queueAll, queues.Resume))

	rt.Add(http.MethodGet, "/api/files/find", wrap(sessionRead, files.Find))
	rt.Add(http.MethodGet, "/api/files/:id", wrap(sessionRead, files.Get))
	rt.Add(http.MethodPost, "/api/files/rebuild", wrap(sessionRead, files.Rebuild))

	rt.Add(http.MethodGet, "/api/bookmarks", wrap(bookmarkAll, bookmarks.List))
	rt.Add(http.MethodPost, "/api/bookmarks", wrap(bookmarkAll, bookmarks.Create))
	rt.Add(http.MethodGet, "/api/bookmarks/:id", wrap(bookmarkAll, bookmarks.Get))
	rt.Add(http.MethodPost, "/api/bookmarks/:id", wrap(bookmarkAll, bookmarks.Update))
	rt.Add(http.MethodDelete, "/api/bookmarks/:id", wrap(bookmarkAll, bookmarks.Delete))

	var handler http.Handler = rt
	handler = Auth(d.Tokens, d.StaticToken)(handler)
	handler = CORS(d.AllowedOrigin)(handler)
	handler = Recovery(logger)(handler)
	handler = Logging(logger)(handler)
	return handler
}

// wrap adapts a HandlerFunc with a required permission into the form
// Router.Add expects.
func wrap(perm auth.Permission, h HandlerFunc) HandlerFunc {
	return requirePermission(perm, h)
}

// NewHTTPServer wraps handler in an *http.Server bound to addr, following
// the graceful-shutdown convention the daemon package drives via Shutdown.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Shutdown gracefully stops srv, bounded by ctx.
func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
