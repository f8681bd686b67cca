// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package search implements the transcript searcher (C15): a streaming
// substring scan of a rollout file under a byte/event/deadline budget.
package search

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/codex-agent/daemon/internal/rollout"
)

// Role filters which side of the conversation to search.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleBoth      Role = "both"
)

// Budget bounds how much of a rollout a search will scan. Zero values mean
// unbounded for that dimension.
type Budget struct {
	MaxBytes  int64
	MaxEvents int64
	Timeout   time.Duration
}

// Query is one search request.
type Query struct {
	Text          string
	Role          Role
	CaseSensitive bool
	Budget        Budget
}

// Result is the search report.
type Result struct {
	Matched       bool          `json:"matched"`
	MatchCount    int           `json:"matchCount"`
	ScannedBytes  int64         `json:"scannedBytes"`
	ScannedEvents int64         `json:"scannedEvents"`
	Truncated     bool          `json:"truncated"`
	TimedOut      bool          `json:"timedOut"`
	Duration      time.Duration `json:"-"`
	DurationMs    int64         `json:"durationMs"`
}

// Search streams path line by line, extracting role-appropriate text from
// each rollout line and counting overlapping-free occurrences of q.Text,
// until it matches the end of file or a budget limit is hit.
func Search(path string, q Query) (Result, error) {
	start := time.Now()
	role := q.Role
	if role == "" {
		role = RoleBoth
	}

	needle := q.Text
	if !q.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	var result Result
	deadline := time.Time{}
	if q.Budget.Timeout > 0 {
		deadline = start.Add(q.Budget.Timeout)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			result.TimedOut = true
			break
		}

		raw := scanner.Bytes()
		line := rollout.ParseLine(raw)
		if line == nil {
			continue
		}

		text := extractText(line, role)
		if text == "" {
			continue
		}
		textBytes := int64(len(text))

		if q.Budget.MaxBytes > 0 && result.ScannedBytes+textBytes > q.Budget.MaxBytes {
			result.Truncated = true
			break
		}
		if q.Budget.MaxEvents > 0 && result.ScannedEvents+1 > q.Budget.MaxEvents {
			result.Truncated = true
			break
		}

		result.ScannedBytes += textBytes
		result.ScannedEvents++

		haystack := text
		if !q.CaseSensitive {
			haystack = strings.ToLower(haystack)
		}
		result.MatchCount += strings.Count(haystack, needle)
	}

	result.Matched = result.MatchCount > 0
	result.Duration = time.Since(start)
	result.DurationMs = result.Duration.Milliseconds()
	return result, nil
}

// extractText pulls the searchable text out of one rollout line, filtered
// by role, per the field mapping in spec §4.15.
func extractText(line *rollout.Line, role Role) string {
	var parts []string

	switch line.Kind {
	case rollout.KindEventMsg:
		em, ok := line.EventMsg()
		if !ok {
			return ""
		}
		switch em.Type {
		case "UserMessage":
			if role == RoleUser || role == RoleBoth {
				parts = append(parts, em.Message)
			}
		case "AgentMessage":
			if role == RoleAssistant || role == RoleBoth {
				parts = append(parts, em.Message)
			}
		case "AgentReasoning":
			if role == RoleAssistant || role == RoleBoth {
				parts = append(parts, em.Text)
			}
		case "TurnComplete":
			if role == RoleAssistant || role == RoleBoth {
				parts = append(parts, em.LastAgentMessage)
			}
		}

	case rollout.KindResponseItem:
		ri, ok := line.ResponseItem()
		if !ok {
			return ""
		}
		itemRole := Role(ri.Role)
		if itemRole != "" && role != RoleBoth && itemRole != role {
			return ""
		}
		for _, c := range ri.Content {
			if c.Type == "input_text" || c.Type == "output_text" {
				parts = append(parts, c.Text)
			}
		}
		if role == RoleAssistant || role == RoleBoth {
			for _, r := range ri.Summary {
				parts = append(parts, r.Text)
			}
		}
	}

	return strings.Join(parts, "\n")
}
