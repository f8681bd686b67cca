// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tailer implements the live tailer (C5): follow a single growing
// rollout file, emit newly appended parsed lines, and survive rotation and
// truncation.
package tailer

import (
	"bufio"
	"bytes"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codex-agent/daemon/internal/rollout"
)

// Event is one item delivered to a subscriber: either a parsed line, a
// non-terminal error, or a terminal error that ends the tailer.
type Event struct {
	Line     *rollout.Line
	Err      error
	Terminal bool
}

// defaultPollInterval is the poll-loop fallback cadence used alongside
// fsnotify, since rotation (unlink+recreate under the same name) can race
// a watch re-Add.
const defaultPollInterval = 500 * time.Millisecond

// Tailer watches one rollout file. Zero value is not usable; use New.
type Tailer struct {
	path         string
	pollInterval time.Duration
	logger       *log.Logger

	mu      sync.Mutex
	subs    map[int]chan Event
	nextID  int
	offset  int64
	fileID  os.FileInfo // used with os.SameFile to detect rotation
	partial []byte

	watcher *fsnotify.Watcher
	wake    chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped bool
}

// New constructs a Tailer for path. Call Start to begin watching.
func New(path string) *Tailer {
	return &Tailer{
		path:         path,
		pollInterval: defaultPollInterval,
		logger:       log.New(os.Stderr, "[tailer] ", log.LstdFlags),
		subs:         make(map[int]chan Event),
		wake:         make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start performs the initial stat (tailing begins from the file's current
// end — only lines appended after this call are ever emitted) and launches
// the background watch loop. A NOT_FOUND failure on this initial stat is
// terminal: the tailer never successfully started and Start returns an
// error. Any other initial stat failure is treated as transient and the
// watch loop retries.
func (t *Tailer) Start() error {
	info, err := os.Stat(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		// Transient: start anyway, the poll loop will keep retrying.
	} else {
		t.offset = info.Size()
		t.fileID = info
	}

	w, err := fsnotify.NewWatcher()
	if err == nil {
		t.watcher = w
		_ = w.Add(t.path)
		go t.watchEvents()
	}

	go t.run()
	return nil
}

// Subscribe registers a listener for this tailer's events. Removal via
// Unsubscribe is eventually consistent: an event already queued for
// delivery may still arrive once after Unsubscribe returns.
func (t *Tailer) Subscribe() (int, <-chan Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	ch := make(chan Event, 256)
	t.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener.
func (t *Tailer) Unsubscribe(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, id)
}

// Stop terminates the watch loop and releases the fsnotify watcher.
func (t *Tailer) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	close(t.stopCh)
	if t.watcher != nil {
		t.watcher.Close()
	}
	<-t.doneCh
}

func (t *Tailer) watchEvents() {
	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				t.nudge()
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				// The watch may have been invalidated by the unlink/rename;
				// re-add so a subsequent create under the same name is seen.
				_ = t.watcher.Add(t.path)
				t.nudge()
			}
		case _, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (t *Tailer) nudge() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Tailer) run() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		t.poll()
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
		case <-t.wake:
		}
	}
}

func (t *Tailer) poll() {
	info, err := os.Stat(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.broadcast(Event{Err: err, Terminal: true})
			go t.Stop()
			return
		}
		t.broadcast(Event{Err: err})
		return
	}

	t.mu.Lock()
	rotated := t.fileID != nil && !os.SameFile(t.fileID, info)
	truncated := !rotated && info.Size() < t.offset
	if rotated || truncated {
		t.offset = 0
		t.partial = nil
	}
	t.fileID = info
	offset := t.offset
	t.mu.Unlock()

	if info.Size() <= offset {
		return
	}

	f, err := os.Open(t.path)
	if err != nil {
		t.broadcast(Event{Err: err})
		return
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		t.broadcast(Event{Err: err})
		return
	}

	fileData := mustReadAll(f)

	t.mu.Lock()
	buf := append(t.partial, fileData...)
	t.partial = nil
	t.mu.Unlock()

	lines := bytes.Split(buf, []byte("\n"))
	complete := lines[:len(lines)-1]
	tail := lines[len(lines)-1]

	for _, raw := range complete {
		if line := rollout.ParseLine(raw); line != nil {
			t.broadcast(Event{Line: line})
		}
	}

	t.mu.Lock()
	t.partial = append([]byte(nil), tail...)
	t.offset = offset + int64(len(fileData))
	t.mu.Unlock()
}

func mustReadAll(f *os.File) []byte {
	r := bufio.NewReader(f)
	data, _ := io.ReadAll(r)
	return data
}

func (t *Tailer) broadcast(ev Event) {
	t.mu.Lock()
	subs := make([]chan Event, 0, len(t.subs))
	for _, ch := range t.subs {
		subs = append(subs, ch)
	}
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// Subscriber too slow; the hub applies its own drop-oldest
			// backpressure policy on top of this channel (C12). Here we
			// simply don't block the tailer's single producer loop.
			t.logger.Printf("dropping event for slow subscriber on %s", t.path)
		}
	}
}
