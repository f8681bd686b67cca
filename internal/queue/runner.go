// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/codex-agent/daemon/internal/agentproc"
)

// ProcessRunner is the subset of the process runner (C9) the queue runner
// needs: spawn a fresh exec against a working directory and wait for exit.
type ProcessRunner interface {
	RunFresh(ctx context.Context, dir, prompt string, images []string, opts agentproc.Options) (exitCode int, err error)
}

// StopSignal is a cooperative, idempotent stop flag a caller holds onto to
// ask a running queue to wind down after its current prompt.
type StopSignal struct {
	stopped atomic.Bool
}

// Stop requests a graceful stop.
func (s *StopSignal) Stop() { s.stopped.Store(true) }

// Stopped reports whether Stop has been called.
func (s *StopSignal) Stopped() bool { return s.stopped.Load() }

// EventType names one of the events the queue runner emits.
type EventType string

const (
	EventPromptStarted   EventType = "prompt_started"
	EventPromptCompleted EventType = "prompt_completed"
	EventPromptFailed    EventType = "prompt_failed"
	EventQueueStopped    EventType = "queue_stopped"
	EventQueueCompleted  EventType = "queue_completed"
)

// Snapshot is the observable grouping of a queue's prompts by status at the
// moment an event was emitted.
type Snapshot struct {
	Pending   []string `json:"pending"`
	Running   []string `json:"running"`
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
}

// Event is one item of the queue run's event stream.
type Event struct {
	Type     EventType `json:"type"`
	PromptID string    `json:"promptId,omitempty"`
	ExitCode int       `json:"exitCode,omitempty"`
	Snapshot Snapshot  `json:"snapshot"`
}

const pausePollInterval = 500 * time.Millisecond

func snapshotOf(q PromptQueue) Snapshot {
	var s Snapshot
	for _, p := range q.Prompts {
		switch p.Status {
		case StatusPending:
			s.Pending = append(s.Pending, p.ID)
		case StatusRunning:
			s.Running = append(s.Running, p.ID)
		case StatusCompleted:
			s.Completed = append(s.Completed, p.ID)
		case StatusFailed:
			s.Failed = append(s.Failed, p.ID)
		}
	}
	return s
}

// nextAuto scans from the head for the first pending prompt in auto mode.
// Manual-mode prompts are left in place for external triggering and are
// never picked up by the automatic drain.
func nextAuto(q PromptQueue) (QueuePrompt, bool) {
	for _, p := range q.Prompts {
		if p.Status == StatusPending && p.Mode == ModeAuto {
			return p, true
		}
	}
	return QueuePrompt{}, false
}

// RunQueue drains queueID's pending auto-mode prompts in order, one at a
// time, against its store. See nextAuto for the manual-mode skip rule and
// Stop for cooperative cancellation.
func RunQueue(ctx context.Context, st *Store, queueID string, runner ProcessRunner, stop *StopSignal, opts agentproc.Options) (<-chan Event, error) {
	if _, err := st.Find(queueID); err != nil {
		return nil, err
	}

	events := make(chan Event, 64)

	go func() {
		defer close(events)

		emit := func(typ EventType, promptID string, exitCode int, q PromptQueue) {
			ev := Event{Type: typ, PromptID: promptID, ExitCode: exitCode, Snapshot: snapshotOf(q)}
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		for {
			q, err := st.Find(queueID)
			if err != nil {
				return
			}

			if stop.Stopped() {
				emit(EventQueueStopped, "", 0, q)
				return
			}

			if q.Paused {
				select {
				case <-time.After(pausePollInterval):
				case <-ctx.Done():
					return
				}
				continue
			}

			prompt, ok := nextAuto(q)
			if !ok {
				emit(EventQueueCompleted, "", 0, q)
				return
			}

			if _, err := st.markRunning(queueID, prompt.ID); err != nil {
				return
			}
			emit(EventPromptStarted, prompt.ID, 0, q)

			exitCode, runErr := runner.RunFresh(ctx, q.ProjectPath, prompt.Prompt, prompt.Images, opts)
			if runErr != nil && exitCode == 0 {
				exitCode = 1
			}

			updated, err := st.markDone(queueID, prompt.ID, exitCode)
			if err != nil {
				return
			}
			if exitCode == 0 {
				emit(EventPromptCompleted, prompt.ID, exitCode, updated)
			} else {
				emit(EventPromptFailed, prompt.ID, exitCode, updated)
			}

			if ctx.Err() != nil {
				return
			}
		}
	}()

	return events, nil
}
