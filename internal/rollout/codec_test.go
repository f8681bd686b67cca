// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package rollout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineSessionMeta(t *testing.T) {
	line := ParseLine([]byte(`{"timestamp":"2026-01-01T00:00:00Z","type":"session_meta","payload":{"meta":{"id":"abc-123","timestamp":"2026-01-01T00:00:00Z","cwd":"/tmp","originator":"cli","cli_version":"1.0","source":"cli"}}}`))
	require.NotNil(t, line)
	assert.Equal(t, KindSessionMeta, line.Kind)
	sm, ok := line.SessionMeta()
	require.True(t, ok)
	assert.Equal(t, "abc-123", sm.Meta.ID)
}

func TestParseLineMalformedJSON(t *testing.T) {
	assert.Nil(t, ParseLine([]byte(`not json`)))
}

func TestParseLineUnknownKind(t *testing.T) {
	assert.Nil(t, ParseLine([]byte(`{"timestamp":"t","type":"mystery","payload":{}}`)))
}

func TestEventMsgVariants(t *testing.T) {
	line := ParseLine([]byte(`{"timestamp":"t","type":"event_msg","payload":{"type":"ExecCommandBegin","call_id":"c1","turn_id":"t1","command":["touch","a.ts"],"cwd":"/tmp"}}`))
	require.NotNil(t, line)
	em, ok := line.EventMsg()
	require.True(t, ok)
	assert.Equal(t, "ExecCommandBegin", em.Type)
	assert.Equal(t, []string{"touch", "a.ts"}, em.Command)
}

func TestResponseItemLocalShellCall(t *testing.T) {
	line := ParseLine([]byte(`{"timestamp":"t","type":"response_item","payload":{"type":"local_shell_call","status":"needs_approval","action":{"command":["rm","x"]}}}`))
	require.NotNil(t, line)
	ri, ok := line.ResponseItem()
	require.True(t, ok)
	assert.Equal(t, "needs_approval", ri.Status)
	require.NotNil(t, ri.Action)
	assert.Equal(t, []string{"rm", "x"}, ri.Action.Command)
}

func TestWrongVariantAccessorFails(t *testing.T) {
	line := ParseLine([]byte(`{"timestamp":"t","type":"compacted","payload":{}}`))
	require.NotNil(t, line)
	_, ok := line.EventMsg()
	assert.False(t, ok)
}
