// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package sqlindex is the read-only SQLite fast path (C3) over the external
// agent's own state database, when present and schema-compatible.
package sqlindex

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codex-agent/daemon/internal/rollout"
	"github.com/codex-agent/daemon/internal/session"
)

// ErrUnavailable is returned by every query method when the database could
// not be opened or does not carry the expected schema. Per the facade's
// contract (C4), this is always treated as "fall back to a filesystem
// scan" — no error class is surfaced specially.
var ErrUnavailable = errors.New("sqlite index unavailable")

// Reader is a read-only handle onto {home}/state.
type Reader struct {
	db        *sql.DB
	available bool
}

// Open probes {codexHome}/state for a usable `threads` table. It never
// returns an error: any failure (missing file, open failure, missing
// table) simply leaves the Reader unavailable, and every query method then
// returns ErrUnavailable so the facade can devolve to a scan uniformly.
func Open(codexHome string) *Reader {
	r := &Reader{}

	path := filepath.Join(codexHome, "state")
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=0", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return r
	}
	db.SetMaxOpenConns(1)

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='threads'`).Scan(&name)
	if err != nil || name != "threads" {
		db.Close()
		return r
	}

	r.db = db
	r.available = true
	return r
}

// Available reports whether the fast path can be used.
func (r *Reader) Available() bool { return r != nil && r.available }

// Close releases the underlying database handle.
func (r *Reader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const selectColumns = `id, rollout_path, cwd, cli_version, source,
	model_provider, forked_from_id, title, first_user_message,
	created_at, updated_at, archived_at, git_sha, git_branch, git_origin_url`

func (r *Reader) scanRow(scanner interface {
	Scan(dest ...interface{}) error
}) (session.Session, error) {
	var (
		s                                             session.Session
		modelProvider, forkedFromID, firstUserMessage sql.NullString
		createdAt, updatedAt, archivedAt              sql.NullString
		gitSha, gitBranch, gitOriginURL               sql.NullString
	)
	if err := scanner.Scan(
		&s.ID, &s.RolloutPath, &s.Cwd, &s.CliVersion, &s.Source,
		&modelProvider, &forkedFromID, &s.Title, &firstUserMessage,
		&createdAt, &updatedAt, &archivedAt, &gitSha, &gitBranch, &gitOriginURL,
	); err != nil {
		return session.Session{}, err
	}
	s.ModelProvider = modelProvider.String
	s.ForkedFromID = forkedFromID.String
	s.FirstUserMessage = firstUserMessage.String
	if t, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
		s.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt.String); err == nil {
		s.UpdatedAt = t
	}
	if archivedAt.Valid && archivedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, archivedAt.String); err == nil {
			s.ArchivedAt = &t
		}
	}
	if gitSha.Valid || gitBranch.Valid || gitOriginURL.Valid {
		s.Git = &rollout.GitInfo{Sha: gitSha.String, Branch: gitBranch.String, OriginURL: gitOriginURL.String}
	}
	return s, nil
}

// FindByID looks up one session by its UUID.
func (r *Reader) FindByID(id string) (*session.Session, error) {
	if !r.Available() {
		return nil, ErrUnavailable
	}
	row := r.db.QueryRow(`SELECT `+selectColumns+` FROM threads WHERE id = ?`, id)
	s, err := r.scanRow(row)
	if err != nil {
		return nil, ErrUnavailable
	}
	return &s, nil
}

// FindLatest returns the most recently updated session, optionally filtered
// by cwd.
func (r *Reader) FindLatest(cwd string) (*session.Session, error) {
	if !r.Available() {
		return nil, ErrUnavailable
	}
	query := `SELECT ` + selectColumns + ` FROM threads`
	args := []interface{}{}
	if cwd != "" {
		query += ` WHERE cwd = ?`
		args = append(args, cwd)
	}
	query += ` ORDER BY updated_at DESC LIMIT 1`
	row := r.db.QueryRow(query, args...)
	s, err := r.scanRow(row)
	if err != nil {
		return nil, ErrUnavailable
	}
	return &s, nil
}

// List returns a filtered, sorted, paginated set of sessions.
func (r *Reader) List(filter session.Filter, sortKey session.SortKey, desc bool, page session.Page) (session.ListResult, error) {
	if !r.Available() {
		return session.ListResult{}, ErrUnavailable
	}

	where := ""
	args := []interface{}{}
	add := func(clause string, arg interface{}) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, arg)
	}
	if filter.Source != "" {
		add("source = ?", filter.Source)
	}
	if filter.Cwd != "" {
		add("cwd = ?", filter.Cwd)
	}
	if filter.GitBranch != "" {
		add("git_branch = ?", filter.GitBranch)
	}

	col := "created_at"
	if sortKey == session.SortUpdatedAt {
		col = "updated_at"
	}
	order := "ASC"
	if desc {
		order = "DESC"
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM threads` + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return session.ListResult{}, ErrUnavailable
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + selectColumns + ` FROM threads` + where +
		` ORDER BY ` + col + ` ` + order + ` LIMIT ? OFFSET ?`
	rows, err := r.db.Query(query, append(args, limit, page.Offset)...)
	if err != nil {
		return session.ListResult{}, ErrUnavailable
	}
	defer rows.Close()

	var out []session.Session
	for rows.Next() {
		s, err := r.scanRow(rows)
		if err != nil {
			return session.ListResult{}, ErrUnavailable
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return session.ListResult{}, ErrUnavailable
	}

	return session.ListResult{Sessions: out, Total: total}, nil
}
