// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session holds the Session value type shared by the SQLite index
// reader (C3), the session index facade (C4), and everything downstream.
package session

import (
	"time"

	"github.com/codex-agent/daemon/internal/rollout"
)

// Session is derived from a rollout's session_meta line plus filesystem
// stat. It is immutable from this system's perspective — the external
// agent owns the rollout file; this system only re-reads it.
type Session struct {
	ID               string          `json:"id"`
	RolloutPath      string          `json:"rolloutPath"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Source           string          `json:"source"`
	Cwd              string          `json:"cwd"`
	CliVersion       string          `json:"cliVersion"`
	ModelProvider    string          `json:"modelProvider,omitempty"`
	Title            string          `json:"title"`
	FirstUserMessage string          `json:"firstUserMessage,omitempty"`
	ArchivedAt       *time.Time      `json:"archivedAt,omitempty"`
	Git              *rollout.GitInfo `json:"git,omitempty"`
	ForkedFromID     string          `json:"forkedFromId,omitempty"`
}

// Filter narrows a List query. Zero values mean "don't filter on this field".
type Filter struct {
	Source    string
	Cwd       string
	GitBranch string
}

// SortKey names the field List results are ordered by.
type SortKey string

const (
	SortCreatedAt SortKey = "created_at"
	SortUpdatedAt SortKey = "updated_at"
)

// Page requests a window of results with a total count for pagination.
type Page struct {
	Limit  int
	Offset int
}

// ListResult is one page of sessions plus the total matching count.
type ListResult struct {
	Sessions []Session
	Total    int
}
