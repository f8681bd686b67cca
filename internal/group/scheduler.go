// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package group

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/codex-agent/daemon/internal/agentproc"
	"github.com/codex-agent/daemon/internal/apperr"
)

// ProcessRunner is the subset of the process runner (C9) the scheduler
// needs: resume a prior session with a new prompt and wait for its exit.
type ProcessRunner interface {
	RunResume(ctx context.Context, sessionID, prompt string, opts agentproc.Options) (exitCode int, err error)
}

// EventType names one of the four events the scheduler emits.
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventSessionCompleted EventType = "session_completed"
	EventSessionFailed    EventType = "session_failed"
	EventGroupCompleted   EventType = "group_completed"
)

// Snapshot is the observable state of all four disjoint sets at the moment
// an event was emitted.
type Snapshot struct {
	Pending   []string `json:"pending"`
	Running   []string `json:"running"`
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
}

// Event is one item of the group run's event stream.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	ExitCode  int       `json:"exitCode,omitempty"`
	Snapshot  Snapshot  `json:"snapshot"`
}

// Options configures a group run.
type Options struct {
	MaxConcurrent  int
	ProcessOptions agentproc.Options
}

// state holds the scheduler loop's four disjoint sets, guarded by mu.
type state struct {
	mu        sync.Mutex
	pending   []string
	running   map[string]context.CancelFunc
	completed []string
	failed    []string
}

func (st *state) snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	running := make([]string, 0, len(st.running))
	for id := range st.running {
		running = append(running, id)
	}
	return Snapshot{
		Pending:   append([]string(nil), st.pending...),
		Running:   running,
		Completed: append([]string(nil), st.completed...),
		Failed:    append([]string(nil), st.failed...),
	}
}

// RunGroup runs prompt against every session id in g.SessionIDs, at most
// opts.MaxConcurrent at a time, and returns the ordered event stream.
// Rejecting a paused group happens at call entry.
func RunGroup(ctx context.Context, runner ProcessRunner, g SessionGroup, prompt string, opts Options) (<-chan Event, error) {
	if g.Paused {
		return nil, apperr.New(apperr.Conflict, "group is paused")
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}

	st := &state{
		pending: append([]string(nil), g.SessionIDs...),
		running: make(map[string]context.CancelFunc),
	}

	events := make(chan Event, 64)

	go func() {
		defer close(events)

		sem := semaphore.NewWeighted(int64(maxConcurrent))
		var wg sync.WaitGroup
		emit := func(ev Event) {
			ev.Snapshot = st.snapshot()
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		for {
			st.mu.Lock()
			empty := len(st.pending) == 0
			paused := g.Paused
			st.mu.Unlock()
			if empty || paused || ctx.Err() != nil {
				break
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}

			st.mu.Lock()
			if len(st.pending) == 0 {
				st.mu.Unlock()
				sem.Release(1)
				break
			}
			id := st.pending[0]
			st.pending = st.pending[1:]
			sctx, cancel := context.WithCancel(ctx)
			st.running[id] = cancel
			st.mu.Unlock()

			emit(Event{Type: EventSessionStarted, SessionID: id})

			wg.Add(1)
			go func(id string, sctx context.Context, cancel context.CancelFunc) {
				defer wg.Done()
				defer sem.Release(1)
				defer cancel()

				exitCode, err := runner.RunResume(sctx, id, prompt, opts.ProcessOptions)

				st.mu.Lock()
				delete(st.running, id)
				if err != nil || exitCode != 0 {
					st.failed = append(st.failed, id)
					st.mu.Unlock()
					emit(Event{Type: EventSessionFailed, SessionID: id, ExitCode: 1})
					return
				}
				st.completed = append(st.completed, id)
				st.mu.Unlock()
				emit(Event{Type: EventSessionCompleted, SessionID: id, ExitCode: 0})
			}(id, sctx, cancel)
		}

		wg.Wait()

		// Best-effort cancel of anything still running (consumer dropped
		// the stream or the context was cancelled).
		st.mu.Lock()
		for _, cancel := range st.running {
			cancel()
		}
		st.mu.Unlock()

		emit(Event{Type: EventGroupCompleted})
	}()

	return events, nil
}
