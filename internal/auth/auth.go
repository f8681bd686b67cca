// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package auth implements the bearer-token authenticator (C8): token
// issuance, verification, revocation, rotation, and scope permission checks.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codex-agent/daemon/internal/apperr"
	"github.com/codex-agent/daemon/internal/store"
)

const secretBytes = 24

// Permission is one scope from the closed taxonomy.
type Permission string

const (
	PermSessionCreate Permission = "session:create"
	PermSessionRead   Permission = "session:read"
	PermSessionCancel Permission = "session:cancel"
	PermGroupAll      Permission = "group:*"
	PermQueueAll      Permission = "queue:*"
	PermBookmarkAll   Permission = "bookmark:*"
)

// TokenRecord is a persisted bearer token. The plaintext secret is never
// stored; only its sha256 hash is.
type TokenRecord struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty"`
	RevokedAt   *time.Time   `json:"revokedAt,omitempty"`
	TokenHash   string       `json:"tokenHash"`
}

// Document is the persisted shape of tokens.json.
type Document struct {
	Tokens []TokenRecord `json:"tokens"`
}

func emptyDocument() Document { return Document{} }

// Store persists the TokenRecord collection and performs verification.
type Store struct {
	doc *store.JSONStore[Document]
}

// NewStore constructs a Store backed by path.
func NewStore(path string) *Store {
	return &Store{doc: store.New(path, emptyDocument)}
}

// List returns every token record (without secrets, which were never
// stored in the first place).
func (s *Store) List() ([]TokenRecord, error) {
	d, err := s.doc.Load()
	if err != nil {
		return nil, err
	}
	return d.Tokens, nil
}

// Create mints a new token, persists its record, and returns the plaintext
// wire token "<id>.<secret>" exactly once.
func (s *Store) Create(name string, permissions []Permission, expiresAt *time.Time) (TokenRecord, string, error) {
	id := uuid.NewString()
	secret, err := randomSecret()
	if err != nil {
		return TokenRecord{}, "", apperr.Wrap(apperr.Transient, "generate token secret", err)
	}

	rec := TokenRecord{
		ID:          id,
		Name:        name,
		Permissions: permissions,
		CreatedAt:   time.Now(),
		ExpiresAt:   expiresAt,
		TokenHash:   hashSecret(secret),
	}

	_, err = s.doc.Update(func(d Document) (Document, error) {
		d.Tokens = append(d.Tokens, rec)
		return d, nil
	})
	if err != nil {
		return TokenRecord{}, "", err
	}

	return rec, id + "." + secret, nil
}

// Revoke marks a token revoked. Verify will reject it thereafter.
func (s *Store) Revoke(id string) error {
	_, err := s.mutate(id, func(rec *TokenRecord) error {
		now := time.Now()
		rec.RevokedAt = &now
		return nil
	})
	return err
}

// Rotate replaces a token's secret and clears any revocation, returning the
// new plaintext wire token.
func (s *Store) Rotate(id string) (string, error) {
	secret, err := randomSecret()
	if err != nil {
		return "", apperr.Wrap(apperr.Transient, "generate token secret", err)
	}
	_, err = s.mutate(id, func(rec *TokenRecord) error {
		rec.TokenHash = hashSecret(secret)
		rec.RevokedAt = nil
		return nil
	})
	if err != nil {
		return "", err
	}
	return id + "." + secret, nil
}

// Verify parses a wire token, looks up its record, and checks it is known,
// unrevoked, and unexpired, then compares the presented secret against the
// stored hash in constant time.
func (s *Store) Verify(wireToken string) (TokenRecord, bool) {
	id, secret, ok := splitWireToken(wireToken)
	if !ok {
		return TokenRecord{}, false
	}

	d, err := s.doc.Load()
	if err != nil {
		return TokenRecord{}, false
	}

	for _, rec := range d.Tokens {
		if rec.ID != id {
			continue
		}
		if rec.RevokedAt != nil {
			return TokenRecord{}, false
		}
		if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
			return TokenRecord{}, false
		}
		if !constantTimeEqual(hashSecret(secret), rec.TokenHash) {
			return TokenRecord{}, false
		}
		return rec, true
	}
	return TokenRecord{}, false
}

// HasPermission reports whether rec grants scope, either directly or via a
// matching wildcard in scope's prefix.
func HasPermission(rec TokenRecord, scope Permission) bool {
	prefix := strings.SplitN(string(scope), ":", 2)[0] + ":*"
	for _, p := range rec.Permissions {
		if p == scope || string(p) == prefix {
			return true
		}
	}
	return false
}

func (s *Store) mutate(id string, fn func(*TokenRecord) error) (TokenRecord, error) {
	var result TokenRecord
	_, err := s.doc.Update(func(d Document) (Document, error) {
		for i := range d.Tokens {
			if d.Tokens[i].ID == id {
				if err := fn(&d.Tokens[i]); err != nil {
					return d, err
				}
				result = d.Tokens[i]
				return d, nil
			}
		}
		return d, apperr.New(apperr.NotFound, "token not found: "+id)
	})
	return result, err
}

func randomSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// splitWireToken splits "<id>.<secret>" on the first dot. Tokens with no
// dot, or an empty id/secret half, are rejected.
func splitWireToken(wireToken string) (id, secret string, ok bool) {
	idx := strings.IndexByte(wireToken, '.')
	if idx <= 0 || idx == len(wireToken)-1 {
		return "", "", false
	}
	return wireToken[:idx], wireToken[idx+1:], true
}

// constantTimeEqual rejects a length mismatch immediately (not timing-safe
// for length, which spec §4.8 allows) and otherwise compares in constant
// time.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
