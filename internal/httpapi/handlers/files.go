// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/codex-agent/daemon/internal/apperr"
	"github.com/codex-agent/daemon/internal/filechange"
	"github.com/codex-agent/daemon/internal/rollout"
	"github.com/codex-agent/daemon/internal/session"
)

// maxRebuildPage bounds the single List call Rebuild issues; the file-change
// index is expected to cover the same session population sessionindex
// already enumerates in one page.
const maxRebuildPage = 100000

// FileHandler serves the file-change index surface (C6).
type FileHandler struct {
	store  *filechange.Store
	facade SessionFacade
}

// NewFileHandler constructs a FileHandler.
func NewFileHandler(store *filechange.Store, facade SessionFacade) *FileHandler {
	return &FileHandler{store: store, facade: facade}
}

// Find handles GET /api/files/find?path=....
func (h *FileHandler) Find(w http.ResponseWriter, r *http.Request, _ Params) {
	path := r.URL.Query().Get("path")
	if path == "" {
		WriteError(w, apperr.New(apperr.Invalid, "path is required"))
		return
	}
	matches, err := h.store.FindByFile(path)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, matches)
}

// Get handles GET /api/files/:id, where :id is the session id whose changed
// files are being requested.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request, params Params) {
	changes, err := h.store.Get(params["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, changes)
}

// Rebuild handles POST /api/files/rebuild: re-extract every known session's
// changed files from its rollout, replacing that session's index entry.
// Entries for sessions the facade no longer lists, or whose rollout cannot
// be read, are left as they were.
func (h *FileHandler) Rebuild(w http.ResponseWriter, r *http.Request, _ Params) {
	res, err := h.facade.List(session.Filter{}, session.SortCreatedAt, true, session.Page{Limit: maxRebuildPage})
	if err != nil {
		WriteError(w, err)
		return
	}

	rebuilt := 0
	for _, s := range res.Sessions {
		lines, err := rollout.ReadLines(s.RolloutPath)
		if err != nil {
			continue
		}
		if _, err := h.store.Update(s.ID, lines); err != nil {
			WriteError(w, err)
			return
		}
		rebuilt++
	}
	WriteJSON(w, http.StatusOK, map[string]int{"rebuilt": rebuilt})
}
