// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codex-agent/daemon/internal/session"
	"github.com/codex-agent/daemon/internal/tailer"
)

// PathResolver looks a session id up to its rollout file path, the only
// thing the hub needs from C4 to wire a subscription to a tailer.
type PathResolver interface {
	FindByID(id string) (*session.Session, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type tailerRef struct {
	mu        sync.Mutex
	path      string
	sessionID string
	t         *tailer.Tailer
	subID     int
	conns     map[*Conn]struct{}
}

// Hub coordinates every live WebSocket connection, the tailers they share,
// and the lazily-started new-session watcher.
type Hub struct {
	resolver  PathResolver
	codexHome string
	logger    *log.Logger

	mu      sync.Mutex
	conns   map[*Conn]struct{}
	tailers map[string]*tailerRef

	watcherCancel context.CancelFunc
	watcherWG     sync.WaitGroup
}

// New constructs a Hub. codexHome roots the new-session watcher's scan.
func New(resolver PathResolver, codexHome string) *Hub {
	return &Hub{
		resolver:  resolver,
		codexHome: codexHome,
		logger:    log.New(os.Stderr, "[hub] ", log.LstdFlags),
		conns:     map[*Conn]struct{}{},
		tailers:   map[string]*tailerRef{},
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and runs its
// lifecycle until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := newConn(ws)

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	go conn.writePump()

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var msg clientMessage
		if json.Unmarshal(raw, &msg) != nil {
			continue
		}
		h.handleClientMessage(conn, msg)
	}

	h.disconnect(conn)
}

func (h *Hub) handleClientMessage(conn *Conn, msg clientMessage) {
	switch msg.Type {
	case msgSubscribeSession:
		h.subscribeSession(conn, msg.SessionID)
	case msgUnsubscribeSession:
		h.unsubscribeSession(conn, msg.SessionID)
	case msgSubscribeNewSessions:
		conn.setSubscribedNewSessions(true)
		h.ensureWatcher()
	case msgUnsubscribeNewSessions:
		conn.setSubscribedNewSessions(false)
		h.stopWatcherIfIdle()
	}
}

func (h *Hub) subscribeSession(conn *Conn, sessionID string) {
	if sessionID == "" || conn.isSubscribedToSession(sessionID) {
		return
	}
	sess, err := h.resolver.FindByID(sessionID)
	if err != nil {
		return
	}

	h.mu.Lock()
	ref, ok := h.tailers[sess.RolloutPath]
	if !ok {
		t := tailer.New(sess.RolloutPath)
		if startErr := t.Start(); startErr != nil {
			h.mu.Unlock()
			return
		}
		subID, ch := t.Subscribe()
		ref = &tailerRef{path: sess.RolloutPath, sessionID: sessionID, t: t, subID: subID, conns: map[*Conn]struct{}{}}
		h.tailers[sess.RolloutPath] = ref
		go h.pump(ref, ch)
	}
	ref.mu.Lock()
	ref.conns[conn] = struct{}{}
	ref.mu.Unlock()
	h.mu.Unlock()

	conn.setSubscribedSession(sessionID, true)
}

func (h *Hub) unsubscribeSession(conn *Conn, sessionID string) {
	if !conn.isSubscribedToSession(sessionID) {
		return
	}
	conn.setSubscribedSession(sessionID, false)
	h.releaseTailerFor(conn, sessionID)
}

func (h *Hub) releaseTailerFor(conn *Conn, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for path, ref := range h.tailers {
		if ref.sessionID != sessionID {
			continue
		}
		ref.mu.Lock()
		delete(ref.conns, conn)
		empty := len(ref.conns) == 0
		ref.mu.Unlock()
		if empty {
			ref.t.Unsubscribe(ref.subID)
			ref.t.Stop()
			delete(h.tailers, path)
		}
		return
	}
}

func (h *Hub) pump(ref *tailerRef, ch <-chan tailer.Event) {
	for ev := range ch {
		if ev.Line == nil {
			continue
		}
		ref.mu.Lock()
		targets := make([]*Conn, 0, len(ref.conns))
		for c := range ref.conns {
			targets = append(targets, c)
		}
		ref.mu.Unlock()

		out := newSessionEvent(ref.sessionID, ev.Line)
		for _, c := range targets {
			c.writeJSON(out)
		}
	}
}

func (h *Hub) disconnect(conn *Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()

	for _, id := range conn.sessionIDs() {
		h.releaseTailerFor(conn, id)
	}
	close(conn.send)
	h.stopWatcherIfIdle()
}

func (h *Hub) anyWantsNewSessions() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if c.wantsNewSessions() {
			return true
		}
	}
	return false
}

func (h *Hub) ensureWatcher() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watcherCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.watcherCancel = cancel
	h.watcherWG.Add(1)
	go h.runWatcher(ctx)
}

func (h *Hub) stopWatcherIfIdle() {
	if h.anyWantsNewSessions() {
		return
	}
	h.mu.Lock()
	cancel := h.watcherCancel
	h.watcherCancel = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (h *Hub) runWatcher(ctx context.Context) {
	defer h.watcherWG.Done()
	watchNewSessions(ctx, h.codexHome, func(path string) {
		ev := newNewSessionEvent(path)
		h.mu.Lock()
		targets := make([]*Conn, 0, len(h.conns))
		for c := range h.conns {
			if c.wantsNewSessions() {
				targets = append(targets, c)
			}
		}
		h.mu.Unlock()
		for _, c := range targets {
			c.writeJSON(ev)
		}
	})
}

// Shutdown stops every tailer and the new-session watcher, used during
// daemon shutdown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	cancel := h.watcherCancel
	h.watcherCancel = nil
	for _, ref := range h.tailers {
		ref.t.Stop()
	}
	h.tailers = map[string]*tailerRef{}
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	h.watcherWG.Wait()
}
