// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the HTTP handlers behind C13's route table,
// plus the shared response envelope they write through.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/codex-agent/daemon/internal/apperr"
)

// Params is a route's captured path segments, e.g. {"id": "abc"}.
type Params map[string]string

// errorEnvelope is the flat {"error": "..."} shape spec §4.13 requires, in
// place of the teacher's nested {error: {code, message}} envelope.
type errorEnvelope struct {
	Error string `json:"error"`
}

// WriteJSON writes data as the response body with status and a JSON
// Content-Type.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes the flat error envelope directly with status.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorEnvelope{Error: message})
}

// WriteError maps err onto its apperr.Kind's status code and writes the
// flat error envelope. A nil err is a caller bug and is treated as a 500.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		WriteErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	status := apperr.StatusCode(apperr.KindOf(err))
	WriteErrorMessage(w, status, err.Error())
}

// streamEvents writes each item of events as one newline-delimited JSON
// object, flushing after every write so a streaming HTTP client sees each
// event as it's produced. The group and queue run handlers use this to
// expose their event streams without needing a WebSocket upgrade. A client
// disconnect is observed by the producer the next time it tries to send,
// since the request's context is cancelled alongside the connection.
func streamEvents[T any](w http.ResponseWriter, events <-chan T) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)

	enc := json.NewEncoder(w)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}
