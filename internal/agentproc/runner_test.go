// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package agentproc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeAgent(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-agent.sh")
	script := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestBuildArgvFresh(t *testing.T) {
	r := New("codex")
	argv := r.buildArgv(ModeFresh, "", 0, "do the thing", Options{Model: "o3", FullAuto: true})
	assert.Equal(t, []string{"exec", "--model", "o3", "--full-auto", "do the thing"}, argv)
}

func TestBuildArgvResume(t *testing.T) {
	r := New("codex")
	argv := r.buildArgv(ModeResume, "sess-1", 0, "continue", Options{})
	assert.Equal(t, []string{"exec", "resume", "sess-1", "continue"}, argv)
}

func TestBuildArgvFork(t *testing.T) {
	r := New("codex")
	argv := r.buildArgv(ModeFork, "sess-1", 4, "branch", Options{SandboxMode: "workspace-write"})
	assert.Equal(t, []string{"exec", "resume", "sess-1", "--nth-message", "4", "--sandbox", "workspace-write", "branch"}, argv)
}

func TestSpawnExecCapturesLinesAndExitCode(t *testing.T) {
	script := `echo '{"timestamp":"2026-01-01T00:00:00Z","type":"event_msg","payload":{"type":"TaskComplete"}}'
exit 0
`
	r := New(writeFakeAgent(t, script))

	exitCode, lines, err := r.SpawnExec(context.Background(), t.TempDir(), ModeFresh, "", 0, "hello", Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, exitCode)
	require.Len(t, lines, 1)
	em, ok := lines[0].EventMsg()
	require.True(t, ok)
	assert.Equal(t, "TaskComplete", em.Type)
}

func TestSpawnExecNonZeroExit(t *testing.T) {
	r := New(writeFakeAgent(t, "exit 3\n"))

	exitCode, _, err := r.SpawnExec(context.Background(), t.TempDir(), ModeFresh, "", 0, "hello", Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, exitCode)
}

func TestSpawnExecDropsMalformedLines(t *testing.T) {
	script := `echo 'not json'
echo '{"timestamp":"2026-01-01T00:00:00Z","type":"event_msg","payload":{"type":"TaskComplete"}}'
`
	r := New(writeFakeAgent(t, script))

	_, lines, err := r.SpawnExec(context.Background(), t.TempDir(), ModeFresh, "", 0, "hi", Options{})
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestSpawnStreamDeliversLinesBeforeCompletion(t *testing.T) {
	script := `echo '{"timestamp":"2026-01-01T00:00:00Z","type":"event_msg","payload":{"type":"TaskStarted"}}'
sleep 0.05
echo '{"timestamp":"2026-01-01T00:00:01Z","type":"event_msg","payload":{"type":"TaskComplete"}}'
exit 0
`
	r := New(writeFakeAgent(t, script))

	_, lines, completion, err := r.SpawnStream(context.Background(), t.TempDir(), ModeFresh, "", 0, "hi", Options{})
	require.NoError(t, err)

	var got []string
	deadline := time.After(5 * time.Second)
	for l := range lines {
		em, _ := l.EventMsg()
		got = append(got, em.Type)
	}
	select {
	case code := <-completion:
		assert.Equal(t, 0, code)
	case <-deadline:
		t.Fatal("timeout waiting for completion")
	}
	assert.Equal(t, []string{"TaskStarted", "TaskComplete"}, got)
}

func TestNormalizeExecStreamAgentMessage(t *testing.T) {
	raw := []byte(`{"type":"item.completed","item":{"id":"it-1","type":"agent_message","text":"hello there"}}`)
	line := normalizeLine(raw)
	require.NotNil(t, line)
	em, ok := line.EventMsg()
	require.True(t, ok)
	assert.Equal(t, "AgentMessage", em.Type)
	assert.Equal(t, "hello there", em.Message)
}

func TestNormalizeExecStreamTurnAndThreadEvents(t *testing.T) {
	started := normalizeLine([]byte(`{"type":"thread.started","thread_id":"th-1"}`))
	require.NotNil(t, started)
	em, ok := started.EventMsg()
	require.True(t, ok)
	assert.Equal(t, "TurnStarted", em.Type)
	assert.Equal(t, "th-1", em.TurnID)

	completed := normalizeLine([]byte(`{"type":"turn.completed","turn_id":"t-1"}`))
	require.NotNil(t, completed)
	em, ok = completed.EventMsg()
	require.True(t, ok)
	assert.Equal(t, "TurnComplete", em.Type)
	assert.Equal(t, "t-1", em.TurnID)
}

func TestNormalizeExecStreamCommandExecution(t *testing.T) {
	raw := []byte(`{"type":"item.completed","item":{"id":"call-1","type":"command_execution","command":["ls"],"exit_code":0}}`)
	line := normalizeLine(raw)
	require.NotNil(t, line)
	em, ok := line.EventMsg()
	require.True(t, ok)
	assert.Equal(t, "ExecCommandEnd", em.Type)
	assert.Equal(t, []string{"ls"}, em.Command)
	require.NotNil(t, em.ExitCode)
	assert.Equal(t, 0, *em.ExitCode)
}

func TestNormalizeExecStreamUnknownTypeReturnsNil(t *testing.T) {
	assert.Nil(t, normalizeLine([]byte(`{"type":"something.else"}`)))
}

func TestSpawnExecNormalizesExecStreamLines(t *testing.T) {
	script := `echo '{"type":"thread.started","thread_id":"th-1"}'
echo '{"type":"item.completed","item":{"id":"it-1","type":"agent_message","text":"done"}}'
echo '{"type":"turn.completed","turn_id":"t-1"}'
`
	r := New(writeFakeAgent(t, script))

	_, lines, err := r.SpawnExec(context.Background(), t.TempDir(), ModeFresh, "", 0, "hi", Options{})
	require.NoError(t, err)
	require.Len(t, lines, 3)

	em0, _ := lines[0].EventMsg()
	assert.Equal(t, "TurnStarted", em0.Type)
	em1, _ := lines[1].EventMsg()
	assert.Equal(t, "AgentMessage", em1.Type)
	assert.Equal(t, "done", em1.Message)
	em2, _ := lines[2].EventMsg()
	assert.Equal(t, "TurnComplete", em2.Type)
}

func TestRunResumeAndRunFreshExitCodes(t *testing.T) {
	r := New(writeFakeAgent(t, "exit 0\n"))

	code, err := r.RunResume(context.Background(), "sess-1", "continue", Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	code, err = r.RunFresh(context.Background(), t.TempDir(), "hi", nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestHandleKillEscalatesToSigkill(t *testing.T) {
	r := New(writeFakeAgent(t, "trap '' TERM\nsleep 5\n"))

	handle, err := r.Spawn(context.Background(), t.TempDir(), ModeFresh, "", 0, "hi", Options{})
	require.NoError(t, err)

	start := time.Now()
	handle.Kill(150 * time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
}
