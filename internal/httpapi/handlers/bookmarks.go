// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/codex-agent/daemon/internal/apperr"
	"github.com/codex-agent/daemon/internal/bookmark"
)

// BookmarkHandler serves the bookmark surface (C7).
type BookmarkHandler struct {
	store *bookmark.Store
}

// NewBookmarkHandler constructs a BookmarkHandler.
func NewBookmarkHandler(store *bookmark.Store) *BookmarkHandler {
	return &BookmarkHandler{store: store}
}

// List handles GET /api/bookmarks.
func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request, _ Params) {
	bookmarks, err := h.store.List()
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, bookmarks)
}

type createBookmarkRequest struct {
	Type          bookmark.Type `json:"type"`
	SessionID     string        `json:"sessionId"`
	MessageID     string        `json:"messageId"`
	FromMessageID string        `json:"fromMessageId"`
	ToMessageID   string        `json:"toMessageId"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Tags          []string      `json:"tags"`
}

// Create handles POST /api/bookmarks.
func (h *BookmarkHandler) Create(w http.ResponseWriter, r *http.Request, _ Params) {
	var body createBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apperr.New(apperr.Invalid, "invalid JSON body"))
		return
	}
	if body.Name == "" {
		WriteError(w, apperr.New(apperr.Invalid, "name is required"))
		return
	}

	b, err := h.store.Create(bookmark.Bookmark{
		Type:          body.Type,
		SessionID:     body.SessionID,
		MessageID:     body.MessageID,
		FromMessageID: body.FromMessageID,
		ToMessageID:   body.ToMessageID,
		Name:          body.Name,
		Description:   body.Description,
		Tags:          body.Tags,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, b)
}

// Get handles GET /api/bookmarks/:id.
func (h *BookmarkHandler) Get(w http.ResponseWriter, r *http.Request, params Params) {
	b, err := h.store.Find(params["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, b)
}

type updateBookmarkRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Update handles POST /api/bookmarks/:id: the route table has no PATCH verb
// for bookmarks, so updates ride the same POST used elsewhere for mutation.
func (h *BookmarkHandler) Update(w http.ResponseWriter, r *http.Request, params Params) {
	var body updateBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apperr.New(apperr.Invalid, "invalid JSON body"))
		return
	}
	b, err := h.store.Update(params["id"], body.Name, body.Description, body.Tags)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, b)
}

// Delete handles DELETE /api/bookmarks/:id.
func (h *BookmarkHandler) Delete(w http.ResponseWriter, r *http.Request, params Params) {
	if err := h.store.Delete(params["id"]); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
