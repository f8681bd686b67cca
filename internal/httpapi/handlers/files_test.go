// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-agent/daemon/internal/filechange"
	"github.com/codex-agent/daemon/internal/session"
)

type fakeFileFacade struct {
	sessions []session.Session
}

func (f fakeFileFacade) List(filter session.Filter, sortKey session.SortKey, desc bool, page session.Page) (session.ListResult, error) {
	return session.ListResult{Sessions: f.sessions, Total: len(f.sessions)}, nil
}
func (fakeFileFacade) FindByID(id string) (*session.Session, error) { return nil, nil }
func (fakeFileFacade) FindLatest(cwd string) (*session.Session, error) { return nil, nil }

func writeRolloutFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "rollout.jsonl")
	lines := `{"timestamp":"2026-01-01T00:00:00Z","type":"event_msg","payload":{"type":"ExecCommandBegin","call_id":"c","turn_id":"t","cwd":"/tmp","command":["touch","src/new.ts"]}}
{"timestamp":"2026-01-01T00:00:01Z","type":"event_msg","payload":{"type":"ExecCommandBegin","call_id":"c2","turn_id":"t","cwd":"/tmp","command":["rm","src/old.ts"]}}
`
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestFileHandlerGetReturnsChangesForSession(t *testing.T) {
	store := filechange.NewStore(filepath.Join(t.TempDir(), "files.json"))
	dir := t.TempDir()
	rolloutPath := writeRolloutFixture(t, dir)

	facade := fakeFileFacade{sessions: []session.Session{{ID: "s1", RolloutPath: rolloutPath}}}
	h := NewFileHandler(store, facade)

	rebuildRec := httptest.NewRecorder()
	h.Rebuild(rebuildRec, httptest.NewRequest(http.MethodPost, "/api/files/rebuild", nil), Params{})
	require.Equal(t, http.StatusOK, rebuildRec.Code)

	var rebuildResult map[string]int
	require.NoError(t, json.Unmarshal(rebuildRec.Body.Bytes(), &rebuildResult))
	assert.Equal(t, 1, rebuildResult["rebuilt"])

	getRec := httptest.NewRecorder()
	h.Get(getRec, httptest.NewRequest(http.MethodGet, "/api/files/s1", nil), Params{"id": "s1"})
	require.Equal(t, http.StatusOK, getRec.Code)

	var changes []filechange.ChangedFile
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &changes))
	require.Len(t, changes, 2)
}

func TestFileHandlerFindRequiresPath(t *testing.T) {
	store := filechange.NewStore(filepath.Join(t.TempDir(), "files.json"))
	h := NewFileHandler(store, fakeFileFacade{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/files/find", nil)
	h.Find(rec, req, Params{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileHandlerFindLocatesSessionByPath(t *testing.T) {
	store := filechange.NewStore(filepath.Join(t.TempDir(), "files.json"))
	dir := t.TempDir()
	rolloutPath := writeRolloutFixture(t, dir)

	facade := fakeFileFacade{sessions: []session.Session{{ID: "s1", RolloutPath: rolloutPath}}}
	h := NewFileHandler(store, facade)

	h.Rebuild(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/files/rebuild", nil), Params{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/files/find?path=src/new.ts", nil)
	h.Find(rec, req, Params{})
	require.Equal(t, http.StatusOK, rec.Code)

	var matches []filechange.SessionFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "s1", matches[0].SessionID)
}

func TestFileHandlerGetUnknownSessionReturnsEmpty(t *testing.T) {
	store := filechange.NewStore(filepath.Join(t.TempDir(), "files.json"))
	h := NewFileHandler(store, fakeFileFacade{})

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/files/missing", nil), Params{"id": "missing"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}
