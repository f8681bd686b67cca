// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package agentproc implements the process runner (C9): launch the
// external coding-agent binary, stream its stdout as parsed rollout lines,
// and report its exit.
package agentproc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/codex-agent/daemon/internal/rollout"
)

// Mode selects the argv shape for a spawn.
type Mode int

const (
	ModeFresh Mode = iota
	ModeResume
	ModeFork
)

// Options maps onto the external agent's CLI flags.
type Options struct {
	Model           string
	SandboxMode     string // tri-state: "" (unset), "read-only", "workspace-write", "danger-full-access"
	ApprovalMode    string
	FullAuto        bool
	Images          []string // filesystem paths; base64 payloads are spilled to temp files by the caller
	ConfigOverrides []string // "k=v" pairs passed as repeated -c
}

// Runner spawns the external agent binary (default "codex").
type Runner struct {
	Binary string
	logger *log.Logger
}

// New constructs a Runner. An empty binary defaults to "codex".
func New(binary string) *Runner {
	if binary == "" {
		binary = "codex"
	}
	return &Runner{Binary: binary, logger: log.New(os.Stderr, "[agentproc] ", log.LstdFlags)}
}

// buildArgv constructs the argv for the requested mode.
func (r *Runner) buildArgv(mode Mode, sessionID string, nth int, prompt string, opts Options) []string {
	argv := []string{"exec"}
	switch mode {
	case ModeResume:
		argv = append(argv, "resume", sessionID)
	case ModeFork:
		argv = append(argv, "resume", sessionID, "--nth-message", strconv.Itoa(nth))
	}
	if opts.Model != "" {
		argv = append(argv, "--model", opts.Model)
	}
	if opts.SandboxMode != "" {
		argv = append(argv, "--sandbox", opts.SandboxMode)
	}
	if opts.ApprovalMode != "" {
		argv = append(argv, "--ask-for-approval", opts.ApprovalMode)
	}
	if opts.FullAuto {
		argv = append(argv, "--full-auto")
	}
	for _, img := range opts.Images {
		argv = append(argv, "--image", img)
	}
	for _, kv := range opts.ConfigOverrides {
		argv = append(argv, "-c", kv)
	}
	argv = append(argv, prompt)
	return argv
}

// Handle is a live spawned process.
type Handle struct {
	cmd *exec.Cmd
	Pid int
}

// Kill terminates the process group: SIGTERM first, escalating to SIGKILL
// if the process hasn't exited within the grace period.
func (h *Handle) Kill(grace time.Duration) {
	if h.cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(h.cmd.Process.Pid)
	if err != nil {
		_ = h.cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_ = h.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
}

func (r *Runner) newCmd(ctx context.Context, dir string, argv []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.Binary, argv...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// Spawn starts the process without waiting and returns a Handle with its pid.
func (r *Runner) Spawn(ctx context.Context, dir string, mode Mode, sessionID string, nth int, prompt string, opts Options) (*Handle, error) {
	argv := r.buildArgv(mode, sessionID, nth, prompt, opts)
	cmd := r.newCmd(ctx, dir, argv)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", r.Binary, err)
	}
	return &Handle{cmd: cmd, Pid: cmd.Process.Pid}, nil
}

// SpawnExec waits for exit and returns the exit code plus every line parsed
// from stdout.
func (r *Runner) SpawnExec(ctx context.Context, dir string, mode Mode, sessionID string, nth int, prompt string, opts Options) (int, []*rollout.Line, error) {
	argv := r.buildArgv(mode, sessionID, nth, prompt, opts)
	cmd := r.newCmd(ctx, dir, argv)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 1, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 1, nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 1, nil, fmt.Errorf("spawn %s: %w", r.Binary, err)
	}
	go drainTo(stderr)

	var lines []*rollout.Line
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		if line := normalizeLine(scanner.Bytes()); line != nil {
			lines = append(lines, line)
		}
	}

	err = cmd.Wait()
	return exitCodeOf(cmd, err), lines, nil
}

// SpawnStream starts the process and returns an async stream of parsed
// lines plus a completion channel delivering the exit code once.
func (r *Runner) SpawnStream(ctx context.Context, dir string, mode Mode, sessionID string, nth int, prompt string, opts Options) (*Handle, <-chan *rollout.Line, <-chan int, error) {
	argv := r.buildArgv(mode, sessionID, nth, prompt, opts)
	cmd := r.newCmd(ctx, dir, argv)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("spawn %s: %w", r.Binary, err)
	}
	go drainTo(stderr)

	lines := make(chan *rollout.Line, 256)
	completion := make(chan int, 1)
	handle := &Handle{cmd: cmd, Pid: cmd.Process.Pid}

	var once sync.Once
	go func() {
		defer once.Do(func() { close(lines) })
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			if line := normalizeLine(scanner.Bytes()); line != nil {
				lines <- line
			}
		}
		err := cmd.Wait()
		completion <- exitCodeOf(cmd, err)
		close(completion)
	}()

	return handle, lines, completion, nil
}

// RunFresh satisfies queue.ProcessRunner: spawn a fresh exec against dir
// with prompt and wait for exit.
func (r *Runner) RunFresh(ctx context.Context, dir, prompt string, images []string, opts Options) (int, error) {
	opts.Images = append(append([]string(nil), opts.Images...), images...)
	exitCode, _, err := r.SpawnExec(ctx, dir, ModeFresh, "", 0, prompt, opts)
	return exitCode, err
}

// RunResume satisfies group.ProcessRunner: resume sessionID with prompt and
// wait for exit. The child inherits the daemon's working directory; resume
// doesn't need an explicit one since the agent binary reads it from the
// rollout it's resuming.
func (r *Runner) RunResume(ctx context.Context, sessionID, prompt string, opts Options) (int, error) {
	exitCode, _, err := r.SpawnExec(ctx, "", ModeResume, sessionID, 0, prompt, opts)
	return exitCode, err
}

func exitCodeOf(cmd *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if ok := asExitError(waitErr, &exitErr); ok {
		return exitErr.ExitCode()
	}
	return 1
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

// drainTo copies r to a discard sink. SpawnExec/SpawnStream run this over
// the child's stderr pipe so a verbose agent process can't block on a full
// pipe buffer while only stdout is being read.
func drainTo(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}
