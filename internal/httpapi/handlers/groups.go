// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/codex-agent/daemon/internal/apperr"
	"github.com/codex-agent/daemon/internal/group"
)

// GroupHandler serves the session-group surface (C10) and its backing
// store.
type GroupHandler struct {
	store         *group.Store
	runner        group.ProcessRunner
	maxConcurrent int
}

// NewGroupHandler constructs a GroupHandler. defaultMaxConcurrent is used
// for a run request that doesn't override it.
func NewGroupHandler(store *group.Store, runner group.ProcessRunner, defaultMaxConcurrent int) *GroupHandler {
	return &GroupHandler{store: store, runner: runner, maxConcurrent: defaultMaxConcurrent}
}

// List handles GET /api/groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request, _ Params) {
	groups, err := h.store.List()
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, groups)
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/groups.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request, _ Params) {
	var body createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apperr.New(apperr.Invalid, "invalid JSON body"))
		return
	}
	if body.Name == "" {
		WriteError(w, apperr.New(apperr.Invalid, "name is required"))
		return
	}
	g, err := h.store.Create(body.Name, body.Description)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, g)
}

// Get handles GET /api/groups/:id.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request, params Params) {
	g, err := h.store.Find(params["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

// Delete handles DELETE /api/groups/:id.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request, params Params) {
	if err := h.store.Delete(params["id"]); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type groupSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// AddSession handles POST /api/groups/:id/sessions.
func (h *GroupHandler) AddSession(w http.ResponseWriter, r *http.Request, params Params) {
	var body groupSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SessionID == "" {
		WriteError(w, apperr.New(apperr.Invalid, "sessionId is required"))
		return
	}
	g, err := h.store.AddSession(params["id"], body.SessionID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

// RemoveSession handles DELETE /api/groups/:id/sessions?sessionId=....
func (h *GroupHandler) RemoveSession(w http.ResponseWriter, r *http.Request, params Params) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		WriteError(w, apperr.New(apperr.Invalid, "sessionId query parameter is required"))
		return
	}
	g, err := h.store.RemoveSession(params["id"], sessionID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

// Pause handles POST /api/groups/:id/pause.
func (h *GroupHandler) Pause(w http.ResponseWriter, r *http.Request, params Params) {
	g, err := h.store.SetPaused(params["id"], true)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

// Resume handles POST /api/groups/:id/resume.
func (h *GroupHandler) Resume(w http.ResponseWriter, r *http.Request, params Params) {
	g, err := h.store.SetPaused(params["id"], false)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

type runGroupRequest struct {
	Prompt        string            `json:"prompt"`
	MaxConcurrent int               `json:"maxConcurrent"`
	Options       agentOptionsInput `json:"options"`
}

// Run handles POST /api/groups/:id/run: a newline-delimited JSON stream of
// group.Event, one per line, flushed as each is produced. The client
// cancels the run by disconnecting, which cancels the request context the
// scheduler was started with.
func (h *GroupHandler) Run(w http.ResponseWriter, r *http.Request, params Params) {
	g, err := h.store.Find(params["id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	var body runGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apperr.New(apperr.Invalid, "invalid JSON body"))
		return
	}
	if body.Prompt == "" {
		WriteError(w, apperr.New(apperr.Invalid, "prompt is required"))
		return
	}
	maxConcurrent := body.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = h.maxConcurrent
	}

	events, err := group.RunGroup(r.Context(), h.runner, *g, body.Prompt, group.Options{
		MaxConcurrent:  maxConcurrent,
		ProcessOptions: body.Options.toOptions(),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	streamEvents(w, events)
}
