// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package activity implements the activity projection (C14): folding a
// rollout's lines into one current ActivityEntry.
package activity

import (
	"strings"
	"time"

	"github.com/codex-agent/daemon/internal/rollout"
)

// State is one of the four activity states a session can be in.
type State string

const (
	StateIdle            State = "idle"
	StateRunning         State = "running"
	StateWaitingApproval State = "waiting_approval"
	StateFailed          State = "failed"
)

// Entry is the folded activity state as of the last observed transition.
// The field is named and tagged Status, not State, to match the status
// field of the ActivityEntry data model. Entry carries no sessionId: Fold
// sees only the lines, so the session id is not part of its result.
type Entry struct {
	Status    State     `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Fold walks lines in order, starting from idle, and returns the entry as
// of the last transition. A nil/empty lines yields the zero-value idle
// entry with a zero UpdatedAt.
func Fold(lines []*rollout.Line) Entry {
	entry := Entry{Status: StateIdle}
	for _, line := range lines {
		next, ts, ok := transition(line)
		if !ok {
			continue
		}
		entry = Entry{Status: next, UpdatedAt: ts}
	}
	return entry
}

func transition(line *rollout.Line) (State, time.Time, bool) {
	ts, _ := time.Parse(time.RFC3339, line.Timestamp)

	switch line.Kind {
	case rollout.KindEventMsg:
		em, ok := line.EventMsg()
		if !ok {
			return "", time.Time{}, false
		}
		switch em.Type {
		case "TurnStarted", "ExecCommandBegin":
			return StateRunning, ts, true
		case "TurnComplete", "ExecCommandEnd":
			return StateIdle, ts, true
		case "TurnAborted", "Error":
			return StateFailed, ts, true
		}
		return "", time.Time{}, false

	case rollout.KindResponseItem:
		ri, ok := line.ResponseItem()
		if !ok || ri.Type != "local_shell_call" {
			return "", time.Time{}, false
		}
		status := strings.ToLower(ri.Status)
		switch {
		case strings.Contains(status, "approval"), strings.Contains(status, "consent"):
			return StateWaitingApproval, ts, true
		case status == "in_progress", status == "running":
			return StateRunning, ts, true
		}
		return "", time.Time{}, false
	}
	return "", time.Time{}, false
}
