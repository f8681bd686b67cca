// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-agent/daemon/internal/session"
)

type stubResolver struct {
	sessions map[string]*session.Session
}

func (r *stubResolver) FindByID(id string) (*session.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, assertNotFound{}
	}
	return s, nil
}

type assertNotFound struct{}

func (assertNotFound) Error() string { return "not found" }

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHubSubscribeSessionReceivesTailedLine(t *testing.T) {
	dir := t.TempDir()
	rolloutPath := filepath.Join(dir, "rollout-sess-1.jsonl")
	require.NoError(t, os.WriteFile(rolloutPath, nil, 0644))

	resolver := &stubResolver{sessions: map[string]*session.Session{
		"sess-1": {ID: "sess-1", RolloutPath: rolloutPath},
	}}
	h := New(resolver, dir)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(clientMessage{Type: msgSubscribeSession, SessionID: "sess-1"}))

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(rolloutPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"timestamp":"2026-01-01T00:00:00Z","type":"event_msg","payload":{"type":"TaskComplete"}}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got sessionEventMessage
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "session_event", got.Type)
	assert.Equal(t, "sess-1", got.SessionID)
	require.NotNil(t, got.Line)
}

func TestHubUnsubscribeSessionStopsTailer(t *testing.T) {
	dir := t.TempDir()
	rolloutPath := filepath.Join(dir, "rollout-sess-1.jsonl")
	require.NoError(t, os.WriteFile(rolloutPath, nil, 0644))

	resolver := &stubResolver{sessions: map[string]*session.Session{
		"sess-1": {ID: "sess-1", RolloutPath: rolloutPath},
	}}
	h := New(resolver, dir)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(clientMessage{Type: msgSubscribeSession, SessionID: "sess-1"}))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.WriteJSON(clientMessage{Type: msgUnsubscribeSession, SessionID: "sess-1"}))
	time.Sleep(50 * time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Empty(t, h.tailers)
}
