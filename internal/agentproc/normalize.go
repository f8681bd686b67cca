// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package agentproc

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/codex-agent/daemon/internal/rollout"
)

// execStreamEnvelope is the shape of one line from the agent binary's
// "exec-stream" stdout mode (`thread.started`/`item.completed`/
// `turn.completed`), as distinct from the native rollout envelope.
type execStreamEnvelope struct {
	Type     string          `json:"type"`
	ThreadID string          `json:"thread_id,omitempty"`
	TurnID   string          `json:"turn_id,omitempty"`
	Item     *execStreamItem `json:"item,omitempty"`
}

// execStreamItem is the inner `item` object of an "item.completed" record.
type execStreamItem struct {
	ID       string   `json:"id,omitempty"`
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Command  []string `json:"command,omitempty"`
	ExitCode *int     `json:"exit_code,omitempty"`
}

// normalizeLine parses one line of the agent binary's stdout. A line already
// in the native {timestamp,type,payload} rollout envelope passes straight
// through ParseLine. A line in the exec-stream schema is first remapped onto
// that same envelope (e.g. an item.completed with type=agent_message becomes
// an event_msg AgentMessage) and then parsed the same way, so callers only
// ever see rollout.Line regardless of which stdout mode produced it.
func normalizeLine(raw []byte) *rollout.Line {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if line := rollout.ParseLine(raw); line != nil {
		return line
	}
	return normalizeExecStream(raw)
}

// normalizeExecStream maps one exec-stream record onto a rollout event_msg
// envelope. It returns nil for any type/inner-type it doesn't recognize,
// matching ParseLine's tolerant-skip contract.
func normalizeExecStream(raw []byte) *rollout.Line {
	var env execStreamEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}

	var payload map[string]interface{}
	switch env.Type {
	case "thread.started":
		payload = map[string]interface{}{"type": "TurnStarted", "turn_id": env.ThreadID}
	case "turn.completed":
		payload = map[string]interface{}{"type": "TurnComplete", "turn_id": env.TurnID}
	case "item.completed":
		if env.Item == nil {
			return nil
		}
		switch env.Item.Type {
		case "agent_message":
			payload = map[string]interface{}{"type": "AgentMessage", "message": env.Item.Text}
		case "reasoning":
			payload = map[string]interface{}{"type": "AgentReasoning", "text": env.Item.Text}
		case "command_execution":
			if env.Item.ExitCode != nil {
				payload = map[string]interface{}{
					"type": "ExecCommandEnd", "call_id": env.Item.ID,
					"command": env.Item.Command, "exit_code": *env.Item.ExitCode,
				}
			} else {
				payload = map[string]interface{}{
					"type": "ExecCommandBegin", "call_id": env.Item.ID,
					"command": env.Item.Command,
				}
			}
		default:
			return nil
		}
	default:
		return nil
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	envBytes, err := json.Marshal(map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"type":      "event_msg",
		"payload":   json.RawMessage(payloadBytes),
	})
	if err != nil {
		return nil
	}
	return rollout.ParseLine(envBytes)
}
