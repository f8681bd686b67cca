// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/codex-agent/daemon/internal/auth"
	"github.com/codex-agent/daemon/internal/httpapi/handlers"
)

type authContextKey struct{}

// authContext is what Auth records about the caller for requirePermission
// to check downstream.
type authContext struct {
	record     auth.TokenRecord
	fullAccess bool
}

// responseWriter wraps http.ResponseWriter to capture the status and byte
// count the logging middleware reports, while staying a valid upgrade
// target: Hijack passes through to the underlying writer so /ws keeps
// working through the middleware chain.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	return h.Hijack()
}

// Logging logs one line per request: method, path, status, size, duration.
func Logging(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)
			logger.Printf("%s %s %d %dB %s", r.Method, r.URL.Path, rw.status, rw.size, time.Since(start))
		})
	}
}

// Recovery recovers a panicking handler and reports it as a 500 with the
// flat error envelope, never the stack trace.
func Recovery(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Printf("panic: %v\n%s", rec, debug.Stack())
					handlers.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS answers preflight OPTIONS requests with 204 and stamps the
// Access-Control-Allow-* headers spec §4.13 requires on every response.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// noAuthPaths lists the routes exempt from bearer-token authentication.
var noAuthPaths = map[string]bool{
	"/health": true,
	"/status": true,
	"/ws":     true,
}

// Auth gates every route except noAuthPaths behind a valid bearer token and
// records the caller's grant on the request context for requirePermission
// to check per-route. staticToken, if non-empty, is accepted directly as a
// full-access bootstrap credential (the CODEX_AGENT_TOKEN value, see
// internal/daemon) ahead of a store lookup.
func Auth(store *auth.Store, staticToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if noAuthPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				handlers.WriteErrorMessage(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			ac := authContext{}
			if staticToken != "" && constantTimeStringsEqual(token, staticToken) {
				ac.fullAccess = true
			} else {
				rec, ok := store.Verify(token)
				if !ok {
					handlers.WriteErrorMessage(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				ac.record = rec
			}

			ctx := context.WithValue(r.Context(), authContextKey{}, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requirePermission wraps h so it 403s unless the authenticated caller (see
// Auth) has perm. Routes exempt from Auth (noAuthPaths) never carry an
// authContext and must not be wrapped with this.
func requirePermission(perm auth.Permission, h HandlerFunc) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params handlers.Params) {
		ac, _ := r.Context().Value(authContextKey{}).(authContext)
		if !ac.fullAccess && !auth.HasPermission(ac.record, perm) {
			handlers.WriteErrorMessage(w, http.StatusForbidden, "permission denied")
			return
		}
		h(w, r, params)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

func constantTimeStringsEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
