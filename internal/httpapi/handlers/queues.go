// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/codex-agent/daemon/internal/apperr"
	"github.com/codex-agent/daemon/internal/queue"
)

// QueueHandler serves the prompt-queue surface (C11) and its backing
// store. It also tracks one live StopSignal per in-flight run so a
// separate POST .../stop request can reach the goroutine RunQueue started.
type QueueHandler struct {
	store  *queue.Store
	runner queue.ProcessRunner

	mu    sync.Mutex
	stops map[string]*queue.StopSignal
}

// NewQueueHandler constructs a QueueHandler.
func NewQueueHandler(store *queue.Store, runner queue.ProcessRunner) *QueueHandler {
	return &QueueHandler{store: store, runner: runner, stops: map[string]*queue.StopSignal{}}
}

// List handles GET /api/queues.
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request, _ Params) {
	queues, err := h.store.List()
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, queues)
}

type createQueueRequest struct {
	Name        string `json:"name"`
	ProjectPath string `json:"projectPath"`
}

// Create handles POST /api/queues.
func (h *QueueHandler) Create(w http.ResponseWriter, r *http.Request, _ Params) {
	var body createQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apperr.New(apperr.Invalid, "invalid JSON body"))
		return
	}
	if body.Name == "" || body.ProjectPath == "" {
		WriteError(w, apperr.New(apperr.Invalid, "name and projectPath are required"))
		return
	}
	q, err := h.store.Create(body.Name, body.ProjectPath)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, q)
}

// Get handles GET /api/queues/:id.
func (h *QueueHandler) Get(w http.ResponseWriter, r *http.Request, params Params) {
	q, err := h.store.Find(params["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, q)
}

// Delete handles DELETE /api/queues/:id.
func (h *QueueHandler) Delete(w http.ResponseWriter, r *http.Request, params Params) {
	if err := h.store.Delete(params["id"]); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addPromptRequest struct {
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
}

// AddPrompt handles POST /api/queues/:id/prompts.
func (h *QueueHandler) AddPrompt(w http.ResponseWriter, r *http.Request, params Params) {
	var body addPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Prompt == "" {
		WriteError(w, apperr.New(apperr.Invalid, "prompt is required"))
		return
	}
	q, err := h.store.AddPrompt(params["id"], body.Prompt, body.Images)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, q)
}

type patchPromptRequest struct {
	Prompt  *string `json:"prompt"`
	Mode    *string `json:"mode"`
	ToIndex *int    `json:"toIndex"`
}

// UpdatePrompt handles PATCH /api/queues/:id/prompts/:promptId. Exactly one
// of prompt/mode/toIndex is expected per call; whichever is present is
// applied.
func (h *QueueHandler) UpdatePrompt(w http.ResponseWriter, r *http.Request, params Params) {
	var body patchPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apperr.New(apperr.Invalid, "invalid JSON body"))
		return
	}

	queueID, promptID := params["id"], params["promptId"]
	var q queue.PromptQueue
	var err error

	switch {
	case body.Prompt != nil:
		q, err = h.store.UpdatePrompt(queueID, promptID, *body.Prompt)
	case body.Mode != nil:
		q, err = h.store.SetMode(queueID, promptID, queue.Mode(*body.Mode))
	case body.ToIndex != nil:
		q, err = h.store.MovePrompt(queueID, promptID, *body.ToIndex)
	default:
		WriteError(w, apperr.New(apperr.Invalid, "one of prompt, mode, toIndex is required"))
		return
	}
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, q)
}

// RemovePrompt handles DELETE /api/queues/:id/prompts/:promptId.
func (h *QueueHandler) RemovePrompt(w http.ResponseWriter, r *http.Request, params Params) {
	q, err := h.store.RemovePrompt(params["id"], params["promptId"])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, q)
}

// Pause handles POST /api/queues/:id/pause.
func (h *QueueHandler) Pause(w http.ResponseWriter, r *http.Request, params Params) {
	q, err := h.store.SetPaused(params["id"], true)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, q)
}

// Resume handles POST /api/queues/:id/resume.
func (h *QueueHandler) Resume(w http.ResponseWriter, r *http.Request, params Params) {
	q, err := h.store.SetPaused(params["id"], false)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, q)
}

type runQueueRequest struct {
	Options agentOptionsInput `json:"options"`
}

// Run handles POST /api/queues/:id/run: a newline-delimited JSON stream of
// queue.Event (see GroupHandler.Run for the same streaming convention).
func (h *QueueHandler) Run(w http.ResponseWriter, r *http.Request, params Params) {
	queueID := params["id"]

	var body runQueueRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	stop := &queue.StopSignal{}
	h.mu.Lock()
	h.stops[queueID] = stop
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.stops, queueID)
		h.mu.Unlock()
	}()

	events, err := queue.RunQueue(r.Context(), h.store, queueID, h.runner, stop, body.Options.toOptions())
	if err != nil {
		WriteError(w, err)
		return
	}
	streamEvents(w, events)
}

// Stop handles POST /api/queues/:id/stop: ask an in-flight run to wind
// down gracefully after its current prompt.
func (h *QueueHandler) Stop(w http.ResponseWriter, r *http.Request, params Params) {
	h.mu.Lock()
	stop, ok := h.stops[params["id"]]
	h.mu.Unlock()
	if !ok {
		WriteError(w, apperr.New(apperr.Conflict, "queue is not running"))
		return
	}
	stop.Stop()
	w.WriteHeader(http.StatusNoContent)
}
