// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package bookmark

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	return NewStore(filepath.Join(t.TempDir(), "bookmarks.json"))
}

func TestCreateSessionBookmark(t *testing.T) {
	s := newStore(t)
	b, err := s.Create(Bookmark{Type: TypeSession, SessionID: "sess-1", Name: "checkpoint"})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)

	found, err := s.Find(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "checkpoint", found.Name)
}

func TestCreateSessionBookmarkRejectsMessageID(t *testing.T) {
	s := newStore(t)
	_, err := s.Create(Bookmark{Type: TypeSession, SessionID: "sess-1", MessageID: "m1", Name: "x"})
	assert.Error(t, err)
}

func TestCreateMessageBookmarkRequiresMessageID(t *testing.T) {
	s := newStore(t)
	_, err := s.Create(Bookmark{Type: TypeMessage, SessionID: "sess-1", Name: "x"})
	assert.Error(t, err)
}

func TestCreateMessageBookmarkRejectsRangeFields(t *testing.T) {
	s := newStore(t)
	_, err := s.Create(Bookmark{
		Type: TypeMessage, SessionID: "sess-1", MessageID: "m1",
		FromMessageID: "m1", Name: "x",
	})
	assert.Error(t, err)
}

func TestCreateRangeBookmarkRequiresBothEndpoints(t *testing.T) {
	s := newStore(t)
	_, err := s.Create(Bookmark{Type: TypeRange, SessionID: "sess-1", FromMessageID: "m1", Name: "x"})
	assert.Error(t, err)
}

func TestCreateRangeBookmarkRejectsMessageID(t *testing.T) {
	s := newStore(t)
	_, err := s.Create(Bookmark{
		Type: TypeRange, SessionID: "sess-1", FromMessageID: "m1", ToMessageID: "m2",
		MessageID: "m3", Name: "x",
	})
	assert.Error(t, err)
}

func TestCreateRangeBookmarkSucceeds(t *testing.T) {
	s := newStore(t)
	b, err := s.Create(Bookmark{
		Type: TypeRange, SessionID: "sess-1", FromMessageID: "m1", ToMessageID: "m2", Name: "x",
	})
	require.NoError(t, err)
	assert.Equal(t, TypeRange, b.Type)
}

func TestUpdateDedupesTagsPreservingOrder(t *testing.T) {
	s := newStore(t)
	b, err := s.Create(Bookmark{Type: TypeSession, SessionID: "sess-1", Name: "x"})
	require.NoError(t, err)

	updated, err := s.Update(b.ID, "renamed", "desc", []string{"a", "b", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, updated.Tags)
	assert.Equal(t, "renamed", updated.Name)
}

func TestDeleteRemovesBookmark(t *testing.T) {
	s := newStore(t)
	b, _ := s.Create(Bookmark{Type: TypeSession, SessionID: "sess-1", Name: "x"})
	require.NoError(t, s.Delete(b.ID))

	_, err := s.Find(b.ID)
	assert.Error(t, err)
}
