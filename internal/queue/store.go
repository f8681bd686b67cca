// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/codex-agent/daemon/internal/apperr"
	"github.com/codex-agent/daemon/internal/store"
)

// Store persists the PromptQueue collection (queues.json).
type Store struct {
	doc *store.JSONStore[Document]
}

// NewStore constructs a Store backed by path.
func NewStore(path string) *Store {
	return &Store{doc: store.New(path, emptyDocument)}
}

// List returns every queue.
func (s *Store) List() ([]PromptQueue, error) {
	d, err := s.doc.Load()
	if err != nil {
		return nil, err
	}
	return d.Queues, nil
}

// Find looks a queue up by id.
func (s *Store) Find(id string) (*PromptQueue, error) {
	d, err := s.doc.Load()
	if err != nil {
		return nil, err
	}
	for i := range d.Queues {
		if d.Queues[i].ID == id {
			q := d.Queues[i]
			return &q, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "queue not found: "+id)
}

// Create adds a new, empty queue.
func (s *Store) Create(name, projectPath string) (PromptQueue, error) {
	q := PromptQueue{
		ID:          uuid.NewString(),
		Name:        name,
		ProjectPath: projectPath,
		CreatedAt:   time.Now(),
	}
	_, err := s.doc.Update(func(d Document) (Document, error) {
		d.Queues = append(d.Queues, q)
		return d, nil
	})
	return q, err
}

// Delete removes a queue by id.
func (s *Store) Delete(id string) error {
	_, err := s.doc.Update(func(d Document) (Document, error) {
		out := d.Queues[:0]
		for _, q := range d.Queues {
			if q.ID != id {
				out = append(out, q)
			}
		}
		d.Queues = out
		return d, nil
	})
	return err
}

// SetPaused updates the queue's paused flag.
func (s *Store) SetPaused(queueID string, paused bool) (PromptQueue, error) {
	return s.mutate(queueID, func(q *PromptQueue) error {
		q.Paused = paused
		return nil
	})
}

// AddPrompt appends a new prompt in pending/auto state to the tail of the
// queue.
func (s *Store) AddPrompt(queueID, prompt string, images []string) (PromptQueue, error) {
	return s.mutate(queueID, func(q *PromptQueue) error {
		q.Prompts = append(q.Prompts, QueuePrompt{
			ID:      uuid.NewString(),
			Prompt:  prompt,
			Status:  StatusPending,
			Mode:    ModeAuto,
			AddedAt: time.Now(),
			Images:  images,
		})
		return nil
	})
}

// UpdatePrompt rewrites a prompt's text, whatever its status. Editing a running prompt
// does not interrupt it; the edit is only observed on the runner's next
// pass over the queue, since this just rewrites the persisted document.
func (s *Store) UpdatePrompt(queueID, promptID, text string) (PromptQueue, error) {
	return s.mutate(queueID, func(q *PromptQueue) error {
		p, err := findPrompt(q, promptID)
		if err != nil {
			return err
		}
		p.Prompt = text
		return nil
	})
}

// SetMode toggles a prompt between auto and manual drain.
func (s *Store) SetMode(queueID, promptID string, mode Mode) (PromptQueue, error) {
	return s.mutate(queueID, func(q *PromptQueue) error {
		p, err := findPrompt(q, promptID)
		if err != nil {
			return err
		}
		p.Mode = mode
		return nil
	})
}

// RemovePrompt deletes a prompt from the queue.
func (s *Store) RemovePrompt(queueID, promptID string) (PromptQueue, error) {
	return s.mutate(queueID, func(q *PromptQueue) error {
		out := q.Prompts[:0]
		for _, p := range q.Prompts {
			if p.ID != promptID {
				out = append(out, p)
			}
		}
		q.Prompts = out
		return nil
	})
}

// MovePrompt relocates a prompt to a new index in the ordered sequence.
// pending → pending moves do not change timestamps.
func (s *Store) MovePrompt(queueID, promptID string, toIndex int) (PromptQueue, error) {
	return s.mutate(queueID, func(q *PromptQueue) error {
		from := -1
		for i, p := range q.Prompts {
			if p.ID == promptID {
				from = i
				break
			}
		}
		if from < 0 {
			return apperr.New(apperr.NotFound, "prompt not found: "+promptID)
		}
		if toIndex < 0 {
			toIndex = 0
		}
		if toIndex > len(q.Prompts)-1 {
			toIndex = len(q.Prompts) - 1
		}
		p := q.Prompts[from]
		q.Prompts = append(q.Prompts[:from], q.Prompts[from+1:]...)
		head := append([]QueuePrompt(nil), q.Prompts[:toIndex]...)
		head = append(head, p)
		q.Prompts = append(head, q.Prompts[toIndex:]...)
		return nil
	})
}

// markRunning transitions a pending prompt to running, stamping startedAt.
// Used by the runner, not exposed as an editing operation.
func (s *Store) markRunning(queueID, promptID string) (PromptQueue, error) {
	return s.mutate(queueID, func(q *PromptQueue) error {
		p, err := findPrompt(q, promptID)
		if err != nil {
			return err
		}
		now := time.Now()
		p.Status = StatusRunning
		p.StartedAt = &now
		return nil
	})
}

// markDone transitions a running prompt to completed or failed, stamping
// completedAt and recording the exit code.
func (s *Store) markDone(queueID, promptID string, exitCode int) (PromptQueue, error) {
	return s.mutate(queueID, func(q *PromptQueue) error {
		p, err := findPrompt(q, promptID)
		if err != nil {
			return err
		}
		now := time.Now()
		p.CompletedAt = &now
		p.Result = &Result{ExitCode: exitCode}
		if exitCode == 0 {
			p.Status = StatusCompleted
		} else {
			p.Status = StatusFailed
		}
		return nil
	})
}

func findPrompt(q *PromptQueue, promptID string) (*QueuePrompt, error) {
	for i := range q.Prompts {
		if q.Prompts[i].ID == promptID {
			return &q.Prompts[i], nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "prompt not found: "+promptID)
}

func (s *Store) mutate(queueID string, fn func(*PromptQueue) error) (PromptQueue, error) {
	var result PromptQueue
	_, err := s.doc.Update(func(d Document) (Document, error) {
		for i := range d.Queues {
			if d.Queues[i].ID == queueID {
				if err := fn(&d.Queues[i]); err != nil {
					return d, err
				}
				result = d.Queues[i]
				return d, nil
			}
		}
		return d, apperr.New(apperr.NotFound, "queue not found: "+queueID)
	})
	return result, err
}
