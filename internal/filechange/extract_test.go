// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package filechange

import (
	"testing"

	"github.com/codex-agent/daemon/internal/rollout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execLine(t *testing.T, ts string, command []string) *rollout.Line {
	t.Helper()
	payload := `{"type":"ExecCommandBegin","call_id":"c","turn_id":"t","cwd":"/tmp","command":[`
	for i, c := range command {
		if i > 0 {
			payload += ","
		}
		payload += `"` + c + `"`
	}
	payload += `]}`
	raw := []byte(`{"timestamp":"` + ts + `","type":"event_msg","payload":` + payload + `}`)
	line := rollout.ParseLine(raw)
	require.NotNil(t, line)
	return line
}

func TestExtractFileChangeExample(t *testing.T) {
	lines := []*rollout.Line{
		execLine(t, "2026-01-01T00:00:00Z", []string{"touch", "src/new.ts"}),
		execLine(t, "2026-01-01T00:00:01Z", []string{"sed", "-i", "s/a/b/", "src/new.ts"}),
		execLine(t, "2026-01-01T00:00:02Z", []string{"rm", "src/old.ts"}),
	}

	result := Extract(lines)
	require.Len(t, result, 2)

	newEntry := result["src/new.ts"]
	require.NotNil(t, newEntry)
	assert.Equal(t, Modified, newEntry.Operation)
	assert.Equal(t, 2, newEntry.ChangeCount)

	oldEntry := result["src/old.ts"]
	require.NotNil(t, oldEntry)
	assert.Equal(t, Deleted, oldEntry.Operation)
	assert.Equal(t, 1, oldEntry.ChangeCount)
}

func TestExtractIgnoresFlagsAndGlobs(t *testing.T) {
	lines := []*rollout.Line{
		execLine(t, "2026-01-01T00:00:00Z", []string{"rm", "-rf", "*.log"}),
	}
	result := Extract(lines)
	assert.Empty(t, result)
}

func TestExtractDeleteStaysStickyAfterLaterModify(t *testing.T) {
	lines := []*rollout.Line{
		execLine(t, "2026-01-01T00:00:00Z", []string{"rm", "src/gone.ts"}),
		execLine(t, "2026-01-01T00:00:01Z", []string{"touch", "src/gone.ts"}),
	}
	result := Extract(lines)
	entry := result["src/gone.ts"]
	require.NotNil(t, entry)
	assert.Equal(t, Deleted, entry.Operation)
	assert.Equal(t, 2, entry.ChangeCount)
}

func TestExtractGitRmIsDeleted(t *testing.T) {
	lines := []*rollout.Line{
		execLine(t, "2026-01-01T00:00:00Z", []string{"git", "rm", "src/tracked.ts"}),
	}
	result := Extract(lines)
	assert.Equal(t, Deleted, result["src/tracked.ts"].Operation)
}
