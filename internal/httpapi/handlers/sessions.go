// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/codex-agent/daemon/internal/activity"
	"github.com/codex-agent/daemon/internal/agentproc"
	"github.com/codex-agent/daemon/internal/apperr"
	"github.com/codex-agent/daemon/internal/filechange"
	"github.com/codex-agent/daemon/internal/rollout"
	"github.com/codex-agent/daemon/internal/search"
	"github.com/codex-agent/daemon/internal/session"
)

// SessionFacade is the subset of the session index facade (C4) the
// handler needs.
type SessionFacade interface {
	List(filter session.Filter, sortKey session.SortKey, desc bool, page session.Page) (session.ListResult, error)
	FindByID(id string) (*session.Session, error)
	FindLatest(cwd string) (*session.Session, error)
}

// SessionHandler serves the read-only session surface (C4, C14, C15) plus
// the supplemented export and fork endpoints.
type SessionHandler struct {
	facade    SessionFacade
	fileIndex *filechange.Store
	runner    *agentproc.Runner
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(facade SessionFacade, fileIndex *filechange.Store, runner *agentproc.Runner) *SessionHandler {
	return &SessionHandler{facade: facade, fileIndex: fileIndex, runner: runner}
}

// List handles GET /api/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request, _ Params) {
	q := r.URL.Query()
	filter := session.Filter{
		Source:    q.Get("source"),
		Cwd:       q.Get("cwd"),
		GitBranch: q.Get("gitBranch"),
	}
	sortKey := session.SortCreatedAt
	if q.Get("sort") == "updated_at" {
		sortKey = session.SortUpdatedAt
	}
	desc := q.Get("desc") != "false"
	page := session.Page{Limit: parseIntDefault(q.Get("limit"), 50), Offset: parseIntDefault(q.Get("offset"), 0)}

	res, err := h.facade.List(filter, sortKey, desc, page)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Search handles GET /api/sessions/search: the cwd-scoped "find the latest
// matching session" lookup, distinct from the per-session transcript text
// search at SearchTranscript.
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request, _ Params) {
	cwd := r.URL.Query().Get("cwd")
	s, err := h.facade.FindLatest(cwd)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s)
}

// Get handles GET /api/sessions/:id.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request, params Params) {
	s, err := h.facade.FindByID(params["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s)
}

// Events handles GET /api/sessions/:id/events: the full parsed rollout, for
// clients that want a one-shot read instead of a live /ws tail.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request, params Params) {
	s, err := h.facade.FindByID(params["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	lines, err := rollout.ReadLines(s.RolloutPath)
	if err != nil {
		WriteError(w, apperr.Wrap(apperr.Transient, "read rollout", err))
		return
	}
	WriteJSON(w, http.StatusOK, lines)
}

// SearchTranscript handles GET /api/sessions/:id/search (C15).
func (h *SessionHandler) SearchTranscript(w http.ResponseWriter, r *http.Request, params Params) {
	s, err := h.facade.FindByID(params["id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	q := r.URL.Query()
	text := q.Get("q")
	if text == "" {
		WriteError(w, apperr.New(apperr.Invalid, "q is required"))
		return
	}

	query := search.Query{
		Text:          text,
		Role:          search.Role(q.Get("role")),
		CaseSensitive: q.Get("caseSensitive") == "true",
		Budget: search.Budget{
			MaxBytes:  int64(parseIntDefault(q.Get("maxBytes"), 0)),
			MaxEvents: int64(parseIntDefault(q.Get("maxEvents"), 0)),
		},
	}
	if ms := parseIntDefault(q.Get("timeoutMs"), 0); ms > 0 {
		query.Budget.Timeout = time.Duration(ms) * time.Millisecond
	}

	res, err := search.Search(s.RolloutPath, query)
	if err != nil {
		WriteError(w, apperr.Wrap(apperr.Transient, "search transcript", err))
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// exportBundle is the supplemented session export shape (SPEC_FULL §C): a
// self-contained snapshot of one session for tooling that doesn't want to
// re-parse JSONL itself.
type exportBundle struct {
	Session     *session.Session         `json:"session"`
	Lines       []*rollout.Line          `json:"lines"`
	FileChanges []filechange.ChangedFile `json:"fileChanges"`
	Activity    activity.Entry           `json:"activity"`
}

// Export handles GET /api/sessions/:id/export.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request, params Params) {
	s, err := h.facade.FindByID(params["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	lines, err := rollout.ReadLines(s.RolloutPath)
	if err != nil {
		WriteError(w, apperr.Wrap(apperr.Transient, "read rollout", err))
		return
	}
	changes, err := h.fileIndex.Get(s.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, exportBundle{
		Session:     s,
		Lines:       lines,
		FileChanges: changes,
		Activity:    activity.Fold(lines),
	})
}

// forkRequest is the body of POST /api/sessions/:id/fork.
type forkRequest struct {
	Prompt     string            `json:"prompt"`
	NthMessage int               `json:"nthMessage"`
	Options    agentOptionsInput `json:"options"`
}

// Fork handles POST /api/sessions/:id/fork (SPEC_FULL §C): resume a prior
// session from its nth message as a new branch.
func (h *SessionHandler) Fork(w http.ResponseWriter, r *http.Request, params Params) {
	sessionID := params["id"]
	if _, err := h.facade.FindByID(sessionID); err != nil {
		WriteError(w, err)
		return
	}

	var body forkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apperr.New(apperr.Invalid, "invalid JSON body"))
		return
	}
	if body.Prompt == "" {
		WriteError(w, apperr.New(apperr.Invalid, "prompt is required"))
		return
	}

	exitCode, lines, err := h.runner.SpawnExec(r.Context(), "", agentproc.ModeFork, sessionID, body.NthMessage, body.Prompt, body.Options.toOptions())
	if err != nil {
		WriteError(w, apperr.Wrap(apperr.Transient, "spawn fork", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"exitCode": exitCode, "lines": lines})
}

// agentOptionsInput is the wire shape of agentproc.Options accepted in
// request bodies.
type agentOptionsInput struct {
	Model           string   `json:"model"`
	SandboxMode     string   `json:"sandboxMode"`
	ApprovalMode    string   `json:"approvalMode"`
	FullAuto        bool     `json:"fullAuto"`
	Images          []string `json:"images"`
	ConfigOverrides []string `json:"configOverrides"`
}

func (o agentOptionsInput) toOptions() agentproc.Options {
	return agentproc.Options{
		Model:           o.Model,
		SandboxMode:     o.SandboxMode,
		ApprovalMode:    o.ApprovalMode,
		FullAuto:        o.FullAuto,
		Images:          o.Images,
		ConfigOverrides: o.ConfigOverrides,
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
