// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package group

import (
	"time"

	"github.com/google/uuid"

	"github.com/codex-agent/daemon/internal/apperr"
	"github.com/codex-agent/daemon/internal/store"
)

// Store persists the SessionGroup collection (groups.json).
type Store struct {
	doc *store.JSONStore[Document]
}

// NewStore constructs a Store backed by path.
func NewStore(path string) *Store {
	return &Store{doc: store.New(path, emptyDocument)}
}

// List returns every group.
func (s *Store) List() ([]SessionGroup, error) {
	d, err := s.doc.Load()
	if err != nil {
		return nil, err
	}
	return d.Groups, nil
}

// Find looks a group up by id or by its human-chosen name alias.
func (s *Store) Find(idOrName string) (*SessionGroup, error) {
	d, err := s.doc.Load()
	if err != nil {
		return nil, err
	}
	for i := range d.Groups {
		if d.Groups[i].ID == idOrName || d.Groups[i].Name == idOrName {
			g := d.Groups[i]
			return &g, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "group not found: "+idOrName)
}

// Create adds a new group.
func (s *Store) Create(name, description string) (SessionGroup, error) {
	g := SessionGroup{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	_, err := s.doc.Update(func(d Document) (Document, error) {
		d.Groups = append(d.Groups, g)
		return d, nil
	})
	return g, err
}

// Delete removes a group by id.
func (s *Store) Delete(id string) error {
	_, err := s.doc.Update(func(d Document) (Document, error) {
		out := d.Groups[:0]
		for _, g := range d.Groups {
			if g.ID != id {
				out = append(out, g)
			}
		}
		d.Groups = out
		return d, nil
	})
	return err
}

// AddSession appends a session id to the group's ordered set.
func (s *Store) AddSession(groupID, sessionID string) (SessionGroup, error) {
	return s.mutate(groupID, func(g *SessionGroup) error {
		addSessionID(g, sessionID)
		return nil
	})
}

// RemoveSession removes a session id from the group's ordered set.
func (s *Store) RemoveSession(groupID, sessionID string) (SessionGroup, error) {
	return s.mutate(groupID, func(g *SessionGroup) error {
		out := g.SessionIDs[:0]
		for _, id := range g.SessionIDs {
			if id != sessionID {
				out = append(out, id)
			}
		}
		g.SessionIDs = out
		return nil
	})
}

// SetPaused updates the group's paused flag.
func (s *Store) SetPaused(groupID string, paused bool) (SessionGroup, error) {
	return s.mutate(groupID, func(g *SessionGroup) error {
		g.Paused = paused
		return nil
	})
}

func (s *Store) mutate(groupID string, fn func(*SessionGroup) error) (SessionGroup, error) {
	var result SessionGroup
	_, err := s.doc.Update(func(d Document) (Document, error) {
		for i := range d.Groups {
			if d.Groups[i].ID == groupID {
				if err := fn(&d.Groups[i]); err != nil {
					return d, err
				}
				d.Groups[i].UpdatedAt = time.Now()
				result = d.Groups[i]
				return d, nil
			}
		}
		return d, apperr.New(apperr.NotFound, "group not found: "+groupID)
	})
	return result, err
}
