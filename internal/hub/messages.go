// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package hub implements the WebSocket hub (C12): per-connection session
// subscriptions fanned out from reference-counted tailers, plus a
// new-session watcher.
package hub

import "github.com/codex-agent/daemon/internal/rollout"

// clientMessage is an inbound WS frame from a browser client.
type clientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

const (
	msgSubscribeSession     = "subscribe_session"
	msgUnsubscribeSession   = "unsubscribe_session"
	msgSubscribeNewSessions = "subscribe_new_sessions"
	msgUnsubscribeNewSessions = "unsubscribe_new_sessions"
)

// sessionEventMessage is the outbound envelope for a tailed rollout line.
type sessionEventMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"sessionId"`
	Line      *rollout.Line `json:"line"`
}

// newSessionMessage is the outbound envelope for a newly discovered rollout.
type newSessionMessage struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

func newSessionEvent(sessionID string, line *rollout.Line) sessionEventMessage {
	return sessionEventMessage{Type: "session_event", SessionID: sessionID, Line: line}
}

func newNewSessionEvent(path string) newSessionMessage {
	return newSessionMessage{Type: "new_session", Path: path}
}
