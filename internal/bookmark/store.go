// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package bookmark

import (
	"time"

	"github.com/google/uuid"

	"github.com/codex-agent/daemon/internal/apperr"
	"github.com/codex-agent/daemon/internal/store"
)

// Store persists the Bookmark collection (bookmarks.json).
type Store struct {
	doc *store.JSONStore[Document]
}

// NewStore constructs a Store backed by path.
func NewStore(path string) *Store {
	return &Store{doc: store.New(path, emptyDocument)}
}

// List returns every bookmark.
func (s *Store) List() ([]Bookmark, error) {
	d, err := s.doc.Load()
	if err != nil {
		return nil, err
	}
	return d.Bookmarks, nil
}

// Find looks a bookmark up by id.
func (s *Store) Find(id string) (*Bookmark, error) {
	d, err := s.doc.Load()
	if err != nil {
		return nil, err
	}
	for i := range d.Bookmarks {
		if d.Bookmarks[i].ID == id {
			b := d.Bookmarks[i]
			return &b, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "bookmark not found: "+id)
}

// Create validates and persists a new bookmark.
func (s *Store) Create(b Bookmark) (Bookmark, error) {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now()
	b.UpdatedAt = time.Now()
	if err := validate(b); err != nil {
		return Bookmark{}, err
	}
	_, err := s.doc.Update(func(d Document) (Document, error) {
		d.Bookmarks = append(d.Bookmarks, b)
		return d, nil
	})
	return b, err
}

// Delete removes a bookmark by id.
func (s *Store) Delete(id string) error {
	_, err := s.doc.Update(func(d Document) (Document, error) {
		out := d.Bookmarks[:0]
		for _, b := range d.Bookmarks {
			if b.ID != id {
				out = append(out, b)
			}
		}
		d.Bookmarks = out
		return d, nil
	})
	return err
}

// Update rewrites name/description/tags on an existing bookmark. Type and
// the fields it governs are immutable after creation.
func (s *Store) Update(id, name, description string, tags []string) (Bookmark, error) {
	var result Bookmark
	_, err := s.doc.Update(func(d Document) (Document, error) {
		for i := range d.Bookmarks {
			if d.Bookmarks[i].ID == id {
				d.Bookmarks[i].Name = name
				d.Bookmarks[i].Description = description
				d.Bookmarks[i].Tags = nil
				for _, tag := range tags {
					addTag(&d.Bookmarks[i], tag)
				}
				d.Bookmarks[i].UpdatedAt = time.Now()
				result = d.Bookmarks[i]
				return d, nil
			}
		}
		return d, apperr.New(apperr.NotFound, "bookmark not found: "+id)
	})
	return result, err
}
