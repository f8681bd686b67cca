// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package bookmark implements the bookmark data model (part of C7): a named
// reference to a session, a specific message, or a message range.
package bookmark

import (
	"time"

	"github.com/codex-agent/daemon/internal/apperr"
)

// Type selects which fields a Bookmark carries.
type Type string

const (
	TypeSession Type = "session"
	TypeMessage Type = "message"
	TypeRange   Type = "range"
)

// Bookmark is a named reference into one session's transcript.
type Bookmark struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	SessionID     string    `json:"sessionId"`
	MessageID     string    `json:"messageId,omitempty"`
	FromMessageID string    `json:"fromMessageId,omitempty"`
	ToMessageID   string    `json:"toMessageId,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Document is the persisted shape of bookmarks.json.
type Document struct {
	Bookmarks []Bookmark `json:"bookmarks"`
}

func emptyDocument() Document { return Document{} }

// validate enforces the type-conditioned field invariants: session forbids
// message/range fields; message requires messageId and forbids range
// fields; range requires both endpoints and forbids messageId.
func validate(b Bookmark) error {
	switch b.Type {
	case TypeSession:
		if b.MessageID != "" || b.FromMessageID != "" || b.ToMessageID != "" {
			return apperr.New(apperr.Invalid, "session bookmark forbids message/range fields")
		}
	case TypeMessage:
		if b.MessageID == "" {
			return apperr.New(apperr.Invalid, "message bookmark requires messageId")
		}
		if b.FromMessageID != "" || b.ToMessageID != "" {
			return apperr.New(apperr.Invalid, "message bookmark forbids range fields")
		}
	case TypeRange:
		if b.FromMessageID == "" || b.ToMessageID == "" {
			return apperr.New(apperr.Invalid, "range bookmark requires both endpoints")
		}
		if b.MessageID != "" {
			return apperr.New(apperr.Invalid, "range bookmark forbids messageId")
		}
	default:
		return apperr.New(apperr.Invalid, "unknown bookmark type: "+string(b.Type))
	}
	if b.SessionID == "" {
		return apperr.New(apperr.Invalid, "bookmark requires sessionId")
	}
	return nil
}

// addTag appends tag to the insertion-ordered tag set if not already
// present.
func addTag(b *Bookmark, tag string) {
	for _, existing := range b.Tags {
		if existing == tag {
			return
		}
	}
	b.Tags = append(b.Tags, tag)
}
