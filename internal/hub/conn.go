// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Conn is one WebSocket connection's hub-side state.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	send    chan []byte

	mu                    sync.Mutex
	subscribedSessions    map[string]bool
	subscribedNewSessions bool
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:                 ws,
		send:               make(chan []byte, sendBuffer),
		subscribedSessions: map[string]bool{},
	}
}

// enqueue drops the oldest pending message for this connection if the send
// buffer is full, then enqueues msg. Per-connection ordering holds when no
// drop occurs; a drop can reorder relative to the dropped message's peers.
func (c *Conn) enqueue(msg []byte) {
	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Conn) writeJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.enqueue(b)
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.writeMu.Lock()
				_ = c.ws.WriteMessage(websocket.CloseMessage, nil)
				c.writeMu.Unlock()
				return
			}
			c.writeMu.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.TextMessage, msg)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Conn) setSubscribedSession(sessionID string, subscribed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if subscribed {
		c.subscribedSessions[sessionID] = true
	} else {
		delete(c.subscribedSessions, sessionID)
	}
}

func (c *Conn) isSubscribedToSession(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribedSessions[sessionID]
}

func (c *Conn) setSubscribedNewSessions(subscribed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribedNewSessions = subscribed
}

func (c *Conn) wantsNewSessions() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribedNewSessions
}

// sessionIDs returns a snapshot of subscribed session ids, used on
// disconnect to release every tailer reference this connection held.
func (c *Conn) sessionIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subscribedSessions))
	for id := range c.subscribedSessions {
		out = append(out, id)
	}
	return out
}
