// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package group

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-agent/daemon/internal/agentproc"
)

type fakeRunner struct {
	mu      sync.Mutex
	started []string
	exit    map[string]int
	delay   time.Duration
}

func (f *fakeRunner) RunResume(ctx context.Context, sessionID, prompt string, opts agentproc.Options) (int, error) {
	f.mu.Lock()
	f.started = append(f.started, sessionID)
	code := f.exit[sessionID]
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return code, nil
}

func drainEvents(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatal("timeout draining events")
			return got
		}
	}
}

func TestRunGroupCompletesAllSessions(t *testing.T) {
	g := SessionGroup{ID: "g1", Name: "g1", SessionIDs: []string{"s1", "s2", "s3"}}
	runner := &fakeRunner{exit: map[string]int{"s1": 0, "s2": 0, "s3": 0}}

	events, err := RunGroup(context.Background(), runner, g, "go", Options{MaxConcurrent: 2})
	require.NoError(t, err)

	got := drainEvents(t, events)
	require.NotEmpty(t, got)
	assert.Equal(t, EventGroupCompleted, got[len(got)-1].Type)

	final := got[len(got)-1].Snapshot
	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, final.Completed)
	assert.Empty(t, final.Failed)
	assert.Empty(t, final.Pending)
	assert.Empty(t, final.Running)
}

func TestRunGroupRespectsMaxConcurrent(t *testing.T) {
	g := SessionGroup{ID: "g1", Name: "g1", SessionIDs: []string{"s1", "s2", "s3", "s4"}}
	runner := &fakeRunner{exit: map[string]int{"s1": 0, "s2": 0, "s3": 0, "s4": 0}, delay: 50 * time.Millisecond}

	events, err := RunGroup(context.Background(), runner, g, "go", Options{MaxConcurrent: 1})
	require.NoError(t, err)

	var maxRunning int
	for _, ev := range drainEvents(t, events) {
		if n := len(ev.Snapshot.Running); n > maxRunning {
			maxRunning = n
		}
	}
	assert.LessOrEqual(t, maxRunning, 1)
}

func TestRunGroupMarksFailedOnNonZeroExit(t *testing.T) {
	g := SessionGroup{ID: "g1", Name: "g1", SessionIDs: []string{"s1"}}
	runner := &fakeRunner{exit: map[string]int{"s1": 1}}

	events, err := RunGroup(context.Background(), runner, g, "go", Options{MaxConcurrent: 1})
	require.NoError(t, err)

	got := drainEvents(t, events)
	var sawFailed bool
	for _, ev := range got {
		if ev.Type == EventSessionFailed {
			sawFailed = true
		}
	}
	assert.True(t, sawFailed)
}

func TestRunGroupRejectsPausedGroup(t *testing.T) {
	g := SessionGroup{ID: "g1", Name: "g1", SessionIDs: []string{"s1"}, Paused: true}
	_, err := RunGroup(context.Background(), &fakeRunner{}, g, "go", Options{})
	assert.Error(t, err)
}

func TestRunGroupDefaultsMaxConcurrent(t *testing.T) {
	g := SessionGroup{ID: "g1", Name: "g1", SessionIDs: []string{"s1"}}
	runner := &fakeRunner{exit: map[string]int{"s1": 0}}
	events, err := RunGroup(context.Background(), runner, g, "go", Options{})
	require.NoError(t, err)
	drainEvents(t, events)
	assert.Equal(t, []string{"s1"}, runner.started)
}
