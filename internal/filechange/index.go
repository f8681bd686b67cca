// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package filechange

import (
	"path/filepath"
	"time"

	"github.com/codex-agent/daemon/internal/rollout"
	"github.com/codex-agent/daemon/internal/store"
)

// Index is the persisted per-session file-change map (file-changes-index.json).
type Index struct {
	Sessions  map[string][]ChangedFile `json:"sessions"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

func emptyIndex() Index { return Index{Sessions: map[string][]ChangedFile{}} }

// Store persists Index with atomic read-modify-write semantics.
type Store struct {
	doc *store.JSONStore[Index]
}

// NewStore constructs a Store backed by path.
func NewStore(path string) *Store {
	return &Store{doc: store.New(path, emptyIndex)}
}

// Get returns the changed-file list recorded for a session, if any.
func (s *Store) Get(sessionID string) ([]ChangedFile, error) {
	idx, err := s.doc.Load()
	if err != nil {
		return nil, err
	}
	return idx.Sessions[sessionID], nil
}

// Update re-extracts sessionID's changes from lines and replaces its entry
// in the index.
func (s *Store) Update(sessionID string, lines []*rollout.Line) ([]ChangedFile, error) {
	changes := Extract(lines)

	list := make([]ChangedFile, 0, len(changes))
	for _, cf := range changes {
		list = append(list, *cf)
	}

	_, err := s.doc.Update(func(idx Index) (Index, error) {
		if idx.Sessions == nil {
			idx.Sessions = map[string][]ChangedFile{}
		}
		idx.Sessions[sessionID] = list
		idx.UpdatedAt = time.Now()
		return idx, nil
	})
	return list, err
}

// SessionFile pairs a ChangedFile with the session id it was recorded
// under, the shape FindByFile reports across sessions.
type SessionFile struct {
	SessionID string      `json:"sessionId"`
	File      ChangedFile `json:"file"`
}

// FindByFile scans every session's recorded changes for an entry whose path
// matches queryPath. Paths are compared after normalizePath (resolving "."
// and ".." components to an absolute form); the comparison is not
// case-folded (see the normalization decision in DESIGN.md).
func (s *Store) FindByFile(queryPath string) ([]SessionFile, error) {
	idx, err := s.doc.Load()
	if err != nil {
		return nil, err
	}
	want := normalizePath(queryPath)

	var out []SessionFile
	for sessionID, files := range idx.Sessions {
		for _, f := range files {
			if normalizePath(f.Path) == want {
				out = append(out, SessionFile{SessionID: sessionID, File: f})
			}
		}
	}
	return out, nil
}

func normalizePath(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return filepath.Clean(abs)
}
