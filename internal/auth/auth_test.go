// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	return NewStore(filepath.Join(t.TempDir(), "tokens.json"))
}

func TestCreateAndVerify(t *testing.T) {
	s := newStore(t)
	rec, wire, err := s.Create("t", []Permission{PermQueueAll}, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(wire, rec.ID+"."))

	got, ok := s.Verify(wire)
	assert.True(t, ok)
	assert.Equal(t, rec.ID, got.ID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	s := newStore(t)
	rec, _, err := s.Create("t", nil, nil)
	require.NoError(t, err)

	_, ok := s.Verify(rec.ID + ".notthesecret")
	assert.False(t, ok)
}

func TestVerifyRejectsUnknownID(t *testing.T) {
	s := newStore(t)
	_, ok := s.Verify("unknown-id.somesecret")
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	s := newStore(t)
	_, ok := s.Verify("no-dot-here")
	assert.False(t, ok)
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := newStore(t)
	past := time.Now().Add(-time.Hour)
	rec, wire, err := s.Create("t", nil, &past)
	require.NoError(t, err)
	require.NotNil(t, rec.ExpiresAt)

	_, ok := s.Verify(wire)
	assert.False(t, ok)
}

func TestRevokeThenVerifyFails(t *testing.T) {
	s := newStore(t)
	rec, wire, err := s.Create("t", []Permission{PermQueueAll}, nil)
	require.NoError(t, err)

	_, ok := s.Verify(wire)
	require.True(t, ok)

	require.NoError(t, s.Revoke(rec.ID))
	_, ok = s.Verify(wire)
	assert.False(t, ok)
}

func TestRotateIssuesNewSecretAndClearsRevocation(t *testing.T) {
	s := newStore(t)
	rec, oldWire, err := s.Create("t", nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(rec.ID))

	newWire, err := s.Rotate(rec.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldWire, newWire)

	_, ok := s.Verify(oldWire)
	assert.False(t, ok)
	_, ok = s.Verify(newWire)
	assert.True(t, ok)
}

func TestHasPermissionExactScope(t *testing.T) {
	rec := TokenRecord{Permissions: []Permission{PermSessionRead}}
	assert.True(t, HasPermission(rec, PermSessionRead))
	assert.False(t, HasPermission(rec, PermSessionCancel))
}

func TestHasPermissionWildcard(t *testing.T) {
	rec := TokenRecord{Permissions: []Permission{PermGroupAll}}
	assert.True(t, HasPermission(rec, Permission("group:pause")))
	assert.True(t, HasPermission(rec, PermGroupAll))
	assert.False(t, HasPermission(rec, PermQueueAll))
}
