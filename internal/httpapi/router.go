// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package httpapi implements the HTTP router and server (C13): a
// hand-rolled `:name`-capture path matcher, the middleware chain, and the
// route table wiring every other component to the HTTP surface. gorilla/mux
// is dropped here (see DESIGN.md) since spec's literal router contract
// (add/match returning a handler plus a params map, or null) isn't one
// gorilla/mux exposes.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/codex-agent/daemon/internal/httpapi/handlers"
)

// HandlerFunc is a route handler, given the path's captured params.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, params handlers.Params)

type route struct {
	method   string
	segments []segment
	handler  HandlerFunc
}

type segment struct {
	literal string
	capture string // name captured by a ":name" segment; empty for a literal
}

// Match is what Router.Match reports for a method+path pair.
type Match struct {
	Handler HandlerFunc
	Params  handlers.Params
}

// Router is a minimal path-parametric dispatcher. Register routes with
// Add, then either call Match directly or use the Router itself as an
// http.Handler.
type Router struct {
	routes []route
}

// NewRouter constructs an empty Router.
func NewRouter() *Router {
	return &Router{}
}

// Add registers a handler for method and pattern. Pattern segments are
// separated by "/"; a segment beginning with ":" captures that path
// component under the name following the colon.
func (rt *Router) Add(method, pattern string, h HandlerFunc) {
	rt.routes = append(rt.routes, route{
		method:   method,
		segments: splitPattern(pattern),
		handler:  h,
	})
}

// Match looks up the route registered for method and path. ok is false if
// no route's method and segment count and literals all agree.
func (rt *Router) Match(method, path string) (Match, bool) {
	parts := splitPath(path)

	for _, rte := range rt.routes {
		if rte.method != method {
			continue
		}
		if len(rte.segments) != len(parts) {
			continue
		}
		params := handlers.Params{}
		matched := true
		for i, seg := range rte.segments {
			if seg.capture != "" {
				params[seg.capture] = parts[i]
				continue
			}
			if seg.literal != parts[i] {
				matched = false
				break
			}
		}
		if matched {
			return Match{Handler: rte.handler, Params: params}, true
		}
	}
	return Match{}, false
}

// ServeHTTP dispatches to the matched route, or writes a 404 error envelope
// when nothing matches (including a method mismatch on an otherwise known
// path: spec's error codes stop at 404, there is no 405).
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, ok := rt.Match(r.Method, r.URL.Path)
	if !ok {
		handlers.WriteErrorMessage(w, http.StatusNotFound, "not found")
		return
	}
	m.Handler(w, r, m.Params)
}

func splitPattern(pattern string) []segment {
	parts := splitPath(pattern)
	segs := make([]segment, len(parts))
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			segs[i] = segment{capture: p[1:]}
		} else {
			segs[i] = segment{literal: p}
		}
	}
	return segs
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
