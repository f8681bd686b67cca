// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-agent/daemon/internal/agentproc"
	"github.com/codex-agent/daemon/internal/queue"
)

type fakeQueueRunner struct{}

func (fakeQueueRunner) RunFresh(ctx context.Context, dir, prompt string, images []string, opts agentproc.Options) (int, error) {
	return 0, nil
}

func newQueueHandler(t *testing.T) (*QueueHandler, *queue.Store) {
	st := queue.NewStore(filepath.Join(t.TempDir(), "queues.json"))
	return NewQueueHandler(st, fakeQueueRunner{}), st
}

func TestQueueHandlerCreateAndGet(t *testing.T) {
	h, _ := newQueueHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/queues", strings.NewReader(`{"name":"q1","projectPath":"/proj"}`))
	h.Create(rec, req, Params{})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created queue.PromptQueue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "q1", created.Name)

	getRec := httptest.NewRecorder()
	h.Get(getRec, httptest.NewRequest(http.MethodGet, "/api/queues/"+created.ID, nil), Params{"id": created.ID})
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestQueueHandlerCreateRejectsMissingFields(t *testing.T) {
	h, _ := newQueueHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/queues", strings.NewReader(`{"name":""}`))
	h.Create(rec, req, Params{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueHandlerAddAndUpdatePrompt(t *testing.T) {
	h, st := newQueueHandler(t)
	q, err := st.Create("q1", "/proj")
	require.NoError(t, err)

	addRec := httptest.NewRecorder()
	addReq := httptest.NewRequest(http.MethodPost, "/api/queues/"+q.ID+"/prompts", strings.NewReader(`{"prompt":"do thing"}`))
	h.AddPrompt(addRec, addReq, Params{"id": q.ID})
	require.Equal(t, http.StatusCreated, addRec.Code)

	var withPrompt queue.PromptQueue
	require.NoError(t, json.Unmarshal(addRec.Body.Bytes(), &withPrompt))
	promptID := withPrompt.Prompts[0].ID

	patchRec := httptest.NewRecorder()
	patchReq := httptest.NewRequest(http.MethodPatch, "/x", strings.NewReader(`{"prompt":"do other thing"}`))
	h.UpdatePrompt(patchRec, patchReq, Params{"id": q.ID, "promptId": promptID})
	require.Equal(t, http.StatusOK, patchRec.Code)

	var updated queue.PromptQueue
	require.NoError(t, json.Unmarshal(patchRec.Body.Bytes(), &updated))
	assert.Equal(t, "do other thing", updated.Prompts[0].Prompt)
}

func TestQueueHandlerUpdatePromptRequiresOneField(t *testing.T) {
	h, st := newQueueHandler(t)
	q, err := st.Create("q1", "/proj")
	require.NoError(t, err)
	added, err := st.AddPrompt(q.ID, "p", nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/x", strings.NewReader(`{}`))
	h.UpdatePrompt(rec, req, Params{"id": q.ID, "promptId": added.Prompts[0].ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueHandlerRunStreamsNDJSONAndStopRegistersSignal(t *testing.T) {
	h, st := newQueueHandler(t)
	q, err := st.Create("q1", "/proj")
	require.NoError(t, err)
	_, err = st.AddPrompt(q.ID, "p1", nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/queues/"+q.ID+"/run", strings.NewReader(`{}`))
	done := make(chan struct{})
	go func() {
		h.Run(rec, req, Params{"id": q.ID})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for run to finish")
	}

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "queue_completed")
}

func TestQueueHandlerStopWithoutRunningQueueConflicts(t *testing.T) {
	h, st := newQueueHandler(t)
	q, err := st.Create("q1", "/proj")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Stop(rec, httptest.NewRequest(http.MethodPost, "/x", nil), Params{"id": q.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
