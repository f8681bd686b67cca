// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-agent/daemon/internal/bookmark"
)

func newBookmarkHandler(t *testing.T) *BookmarkHandler {
	return NewBookmarkHandler(bookmark.NewStore(filepath.Join(t.TempDir(), "bookmarks.json")))
}

func TestBookmarkHandlerCreateRequiresName(t *testing.T) {
	h := newBookmarkHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bookmarks", strings.NewReader(`{"type":"session","sessionId":"s1"}`))
	h.Create(rec, req, Params{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookmarkHandlerCreateGetUpdateDelete(t *testing.T) {
	h := newBookmarkHandler(t)

	createRec := httptest.NewRecorder()
	createReq := httptest.NewRequest(http.MethodPost, "/api/bookmarks",
		strings.NewReader(`{"type":"session","sessionId":"s1","name":"before"}`))
	h.Create(createRec, createReq, Params{})
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created bookmark.Bookmark
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	getRec := httptest.NewRecorder()
	h.Get(getRec, httptest.NewRequest(http.MethodGet, "/x", nil), Params{"id": created.ID})
	assert.Equal(t, http.StatusOK, getRec.Code)

	updateRec := httptest.NewRecorder()
	updateReq := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"after","tags":["a","a","b"]}`))
	h.Update(updateRec, updateReq, Params{"id": created.ID})
	require.Equal(t, http.StatusOK, updateRec.Code)

	var updated bookmark.Bookmark
	require.NoError(t, json.Unmarshal(updateRec.Body.Bytes(), &updated))
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, []string{"a", "b"}, updated.Tags)

	deleteRec := httptest.NewRecorder()
	h.Delete(deleteRec, httptest.NewRequest(http.MethodDelete, "/x", nil), Params{"id": created.ID})
	assert.Equal(t, http.StatusNoContent, deleteRec.Code)

	missingRec := httptest.NewRecorder()
	h.Get(missingRec, httptest.NewRequest(http.MethodGet, "/x", nil), Params{"id": created.ID})
	assert.Equal(t, http.StatusNotFound, missingRec.Code)
}

func TestBookmarkHandlerCreateRejectsInvalidTypeInvariant(t *testing.T) {
	h := newBookmarkHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bookmarks",
		strings.NewReader(`{"type":"message","sessionId":"s1","name":"x"}`))
	h.Create(rec, req, Params{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
