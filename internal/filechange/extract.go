// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package filechange implements the file-change extractor (C6): a pure
// function over a rollout line stream that infers created/modified/deleted
// file paths per session.
package filechange

import (
	"regexp"
	"strings"
	"time"

	"github.com/codex-agent/daemon/internal/rollout"
)

// Operation is the inferred effect a shell command had on a file path.
type Operation string

const (
	Created  Operation = "created"
	Modified Operation = "modified"
	Deleted  Operation = "deleted"
)

// ChangedFile accumulates observations for one path across a session.
type ChangedFile struct {
	Path         string    `json:"path"`
	Operation    Operation `json:"operation"`
	ChangeCount  int       `json:"changeCount"`
	LastModified time.Time `json:"lastModified"`
}

var candidatePath = regexp.MustCompile(`(^|/)[A-Za-z0-9._-]+\.[A-Za-z0-9._-]+$`)

func isCandidatePath(tok string) bool {
	if tok == "" {
		return false
	}
	if strings.HasPrefix(tok, "-") {
		return false
	}
	if strings.Contains(tok, "*") {
		return false
	}
	if strings.HasPrefix(tok, `"`) || strings.HasPrefix(tok, "'") {
		return false
	}
	return candidatePath.MatchString(tok)
}

var modifiedPrefixes = []string{"mv ", "cp ", "tee ", "sed -i", "apply_patch", "git add ", "git mv "}
var createdPrefixes = []string{"touch ", "cat >", "echo >"}

func classify(cmd string) Operation {
	if strings.HasPrefix(cmd, "rm ") {
		return Deleted
	}
	for _, p := range modifiedPrefixes {
		if strings.HasPrefix(cmd, p) {
			return Modified
		}
	}
	for _, p := range createdPrefixes {
		if strings.HasPrefix(cmd, p) {
			return Created
		}
	}
	if strings.HasPrefix(cmd, "git rm ") {
		return Deleted
	}
	return Modified
}

// Extract folds a stream of rollout lines into per-path change records.
// Once a path is observed with a deleted operation, it stays deleted
// regardless of later commands touching the same path (spec §3: "operation
// resolves to deleted if any delete observed after a create, else
// last-seen").
func Extract(lines []*rollout.Line) map[string]*ChangedFile {
	out := make(map[string]*ChangedFile)

	for _, line := range lines {
		argv, ts := commandFromLine(line)
		if argv == nil {
			continue
		}
		cmd := strings.Join(argv, " ")
		op := classify(cmd)

		for _, tok := range argv {
			if !isCandidatePath(tok) {
				continue
			}
			entry, ok := out[tok]
			if !ok {
				entry = &ChangedFile{Path: tok}
				out[tok] = entry
			}
			entry.ChangeCount++
			entry.LastModified = ts
			if entry.Operation != Deleted {
				entry.Operation = op
			}
		}
	}

	return out
}

func commandFromLine(line *rollout.Line) ([]string, time.Time) {
	ts, _ := time.Parse(time.RFC3339, line.Timestamp)

	switch line.Kind {
	case rollout.KindEventMsg:
		em, ok := line.EventMsg()
		if !ok || len(em.Command) == 0 {
			return nil, ts
		}
		if em.Type != "ExecCommandBegin" && em.Type != "ExecCommandEnd" {
			return nil, ts
		}
		return em.Command, ts
	case rollout.KindResponseItem:
		ri, ok := line.ResponseItem()
		if !ok || ri.Type != "local_shell_call" || ri.Action == nil || len(ri.Action.Command) == 0 {
			return nil, ts
		}
		return ri.Action.Command, ts
	default:
		return nil, ts
	}
}
