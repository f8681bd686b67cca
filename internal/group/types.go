// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package group implements the session group data model and the group
// scheduler (C10): bounded parallel fan-out of a prompt across a group's
// session ids.
package group

import "time"

// SessionGroup is a named, ordered, paused-or-active collection of existing
// session ids used as fan-out targets.
type SessionGroup struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Paused      bool      `json:"paused"`
	SessionIDs  []string  `json:"sessionIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Document is the persisted shape of groups.json.
type Document struct {
	Groups []SessionGroup `json:"groups"`
}

func emptyDocument() Document { return Document{} }

// addSessionID appends id to the group's ordered set if not already present.
func addSessionID(g *SessionGroup, id string) {
	for _, existing := range g.SessionIDs {
		if existing == id {
			return
		}
	}
	g.SessionIDs = append(g.SessionIDs, id)
}
