// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package sessionindex implements the session index facade (C4): try the
// SQLite fast path, fall back to a filesystem scan plus header parsing.
package sessionindex

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/codex-agent/daemon/internal/apperr"
	"github.com/codex-agent/daemon/internal/rollout"
	"github.com/codex-agent/daemon/internal/session"
)

// SQLReader is the subset of *sqlindex.Reader the facade depends on.
type SQLReader interface {
	Available() bool
	FindByID(id string) (*session.Session, error)
	FindLatest(cwd string) (*session.Session, error)
	List(filter session.Filter, sortKey session.SortKey, desc bool, page session.Page) (session.ListResult, error)
}

// Facade is the session index facade (C4).
type Facade struct {
	codexHome string
	sql       SQLReader
}

// New constructs a Facade. sql may be nil, in which case every operation
// goes straight to the filesystem scan.
func New(codexHome string, sql SQLReader) *Facade {
	return &Facade{codexHome: codexHome, sql: sql}
}

func (f *Facade) sqlAvailable() bool {
	return f.sql != nil && f.sql.Available()
}

// FindByID returns the session with the given id. The scan fallback is
// accelerated by a filename substring match before any file is opened.
func (f *Facade) FindByID(id string) (*session.Session, error) {
	if f.sqlAvailable() {
		if s, err := f.sql.FindByID(id); err == nil {
			return s, nil
		}
	}

	for path := range rollout.Discover(f.codexHome) {
		if !strings.Contains(filepath.Base(path), id) {
			continue
		}
		s, ok := parseHeader(f.codexHome, path)
		if ok && s.ID == id {
			return s, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, fmt.Sprintf("session not found: %s", id))
}

// FindLatest returns the latest session, optionally restricted to a working
// directory: on the SQLite path the one with the newest updated_at, on the
// scan path the first in the scanner's newest-first order. cwd equality uses resolved absolute
// paths on both sides.
func (f *Facade) FindLatest(cwd string) (*session.Session, error) {
	normalizedCwd := normalizePath(cwd)

	if f.sqlAvailable() {
		if s, err := f.sql.FindLatest(normalizedCwd); err == nil {
			return s, nil
		}
	}

	for path := range rollout.Discover(f.codexHome) {
		s, ok := parseHeader(f.codexHome, path)
		if !ok {
			continue
		}
		if normalizedCwd != "" && normalizePath(s.Cwd) != normalizedCwd {
			continue
		}
		return s, nil
	}
	return nil, apperr.New(apperr.NotFound, "no sessions found")
}

// List returns a filtered, sorted, paginated view of all sessions.
func (f *Facade) List(filter session.Filter, sortKey session.SortKey, desc bool, page session.Page) (session.ListResult, error) {
	if f.sqlAvailable() {
		if res, err := f.sql.List(filter, sortKey, desc, page); err == nil {
			return res, nil
		}
	}

	normalizedCwd := normalizePath(filter.Cwd)

	var all []session.Session
	for path := range rollout.Discover(f.codexHome) {
		s, ok := parseHeader(f.codexHome, path)
		if !ok {
			continue
		}
		if filter.Source != "" && s.Source != filter.Source {
			continue
		}
		if normalizedCwd != "" && normalizePath(s.Cwd) != normalizedCwd {
			continue
		}
		if filter.GitBranch != "" && (s.Git == nil || s.Git.Branch != filter.GitBranch) {
			continue
		}
		all = append(all, *s)
	}

	sort.Slice(all, func(i, j int) bool {
		var ti, tj time.Time
		if sortKey == session.SortUpdatedAt {
			ti, tj = all[i].UpdatedAt, all[j].UpdatedAt
		} else {
			ti, tj = all[i].CreatedAt, all[j].CreatedAt
		}
		if desc {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})

	total := len(all)
	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return session.ListResult{Sessions: all[start:end], Total: total}, nil
}

// parseHeader parses only the first line of the rollout at path. Title
// falls back to the session id, since a header-only read has no access to
// the first user message (spec's "first user message or id" fallback).
func parseHeader(codexHome, path string) (*session.Session, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		return nil, false
	}

	line := rollout.ParseLine(scanner.Bytes())
	if line == nil {
		return nil, false
	}
	meta, ok := line.SessionMeta()
	if !ok {
		return nil, false
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	s := &session.Session{
		ID:            meta.Meta.ID,
		RolloutPath:   path,
		UpdatedAt:     st.ModTime(),
		Source:        meta.Meta.Source,
		Cwd:           meta.Meta.Cwd,
		CliVersion:    meta.Meta.CliVersion,
		ModelProvider: meta.Meta.ModelProvider,
		Title:         meta.Meta.ID,
		ForkedFromID:  meta.Meta.ForkedFromID,
		Git:           meta.Git,
	}
	if t, err := time.Parse(time.RFC3339, meta.Meta.Timestamp); err == nil {
		s.CreatedAt = t
	} else {
		s.CreatedAt = st.ModTime()
	}

	archivedDir := filepath.Join(codexHome, "archived_sessions")
	if strings.HasPrefix(path, archivedDir+string(filepath.Separator)) {
		t := s.UpdatedAt
		s.ArchivedAt = &t
	}

	return s, true
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
