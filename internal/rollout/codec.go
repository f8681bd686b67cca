// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package rollout implements the rollout codec (parsing one JSONL line into
// a tagged record) and the session-directory scanner.
package rollout

import "encoding/json"

// Kind is the closed set of envelope discriminators a rollout line may carry.
type Kind string

const (
	KindSessionMeta  Kind = "session_meta"
	KindResponseItem Kind = "response_item"
	KindEventMsg     Kind = "event_msg"
	KindCompacted    Kind = "compacted"
	KindTurnContext  Kind = "turn_context"
)

func (k Kind) valid() bool {
	switch k {
	case KindSessionMeta, KindResponseItem, KindEventMsg, KindCompacted, KindTurnContext:
		return true
	}
	return false
}

// Line is one parsed rollout record: {timestamp, type, payload}.
type Line struct {
	Timestamp string
	Kind      Kind
	Raw       json.RawMessage
}

type envelope struct {
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// ParseLine parses a single UTF-8 line (without trailing newline) into a
// Line. It never returns an error: malformed JSON or an envelope whose type
// falls outside the closed Kind set yields nil, and the caller is expected
// to skip it.
func ParseLine(data []byte) *Line {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}
	kind := Kind(env.Type)
	if !kind.valid() {
		return nil
	}
	return &Line{Timestamp: env.Timestamp, Kind: kind, Raw: env.Payload}
}

// GitInfo is the optional git state captured at session start.
type GitInfo struct {
	Sha       string `json:"sha,omitempty"`
	Branch    string `json:"branch,omitempty"`
	OriginURL string `json:"origin_url,omitempty"`
}

// SessionMetaInfo is the `meta` object of a session_meta payload.
type SessionMetaInfo struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	Cwd           string `json:"cwd"`
	Originator    string `json:"originator"`
	CliVersion    string `json:"cli_version"`
	Source        string `json:"source"`
	ModelProvider string `json:"model_provider,omitempty"`
	ForkedFromID  string `json:"forked_from_id,omitempty"`
}

// SessionMeta is the payload of a session_meta line.
type SessionMeta struct {
	Meta SessionMetaInfo `json:"meta"`
	Git  *GitInfo        `json:"git,omitempty"`
}

// SessionMeta decodes the line's payload as a session_meta record. ok is
// false if the line is not of that kind or the payload does not decode.
func (l *Line) SessionMeta() (*SessionMeta, bool) {
	if l.Kind != KindSessionMeta {
		return nil, false
	}
	var sm SessionMeta
	if err := json.Unmarshal(l.Raw, &sm); err != nil {
		return nil, false
	}
	return &sm, true
}

// ContentPart is one entry of a message response-item's content array.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ReasoningPart is one entry of a reasoning response-item's summary array.
type ReasoningPart struct {
	Text string `json:"text,omitempty"`
}

// ShellAction is the action object of a local_shell_call response-item.
type ShellAction struct {
	Command []string `json:"command,omitempty"`
}

// ResponseItem is the payload of a response_item line, tagged by Type.
// Unknown inner types still decode — their fields simply stay zero — and
// the raw JSON is kept in Other for forward compatibility.
type ResponseItem struct {
	Type    string                 `json:"type"`
	Role    string                 `json:"role,omitempty"`
	Content []ContentPart          `json:"content,omitempty"`
	Summary []ReasoningPart        `json:"summary,omitempty"`
	Status  string                 `json:"status,omitempty"`
	Action  *ShellAction           `json:"action,omitempty"`
	Other   map[string]interface{} `json:"-"`
}

// ResponseItem decodes the line's payload as a response_item record.
func (l *Line) ResponseItem() (*ResponseItem, bool) {
	if l.Kind != KindResponseItem {
		return nil, false
	}
	var ri ResponseItem
	if err := json.Unmarshal(l.Raw, &ri); err != nil {
		return nil, false
	}
	_ = json.Unmarshal(l.Raw, &ri.Other)
	return &ri, true
}

// EventMsg is the payload of an event_msg line, tagged by Type. Field names
// are reused across variants exactly as the wire schema does (e.g. Message
// backs both UserMessage.message and Error.message); Type disambiguates.
type EventMsg struct {
	Type             string                 `json:"type"`
	Message          string                 `json:"message,omitempty"`
	Images           []string               `json:"images,omitempty"`
	Text             string                 `json:"text,omitempty"`
	TurnID           string                 `json:"turn_id,omitempty"`
	LastAgentMessage string                 `json:"last_agent_message,omitempty"`
	Reason           string                 `json:"reason,omitempty"`
	TotalTokens      *int64                 `json:"total_tokens,omitempty"`
	CallID           string                 `json:"call_id,omitempty"`
	Command          []string               `json:"command,omitempty"`
	Cwd              string                 `json:"cwd,omitempty"`
	ExitCode         *int                   `json:"exit_code,omitempty"`
	Other            map[string]interface{} `json:"-"`
}

// EventMsg decodes the line's payload as an event_msg record.
func (l *Line) EventMsg() (*EventMsg, bool) {
	if l.Kind != KindEventMsg {
		return nil, false
	}
	var em EventMsg
	if err := json.Unmarshal(l.Raw, &em); err != nil {
		return nil, false
	}
	_ = json.Unmarshal(l.Raw, &em.Other)
	return &em, true
}

// TurnContext is the payload of a turn_context line.
type TurnContext struct {
	Model         string `json:"model,omitempty"`
	Cwd           string `json:"cwd,omitempty"`
	SandboxPolicy string `json:"sandbox_policy,omitempty"`
	ApprovalMode  string `json:"approval_mode,omitempty"`
}

// TurnContext decodes the line's payload as a turn_context record.
func (l *Line) TurnContext() (*TurnContext, bool) {
	if l.Kind != KindTurnContext {
		return nil, false
	}
	var tc TurnContext
	if err := json.Unmarshal(l.Raw, &tc); err != nil {
		return nil, false
	}
	return &tc, true
}
