// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package daemon wires every component into one running process: load
// configuration, construct the stores and runners, start the HTTP server,
// and shut everything down gracefully on signal. PID-file management and
// process supervision are out of scope (spec §1) — this package only owns
// its own in-process lifecycle.
package daemon

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/codex-agent/daemon/internal/agentproc"
	"github.com/codex-agent/daemon/internal/auth"
	"github.com/codex-agent/daemon/internal/bookmark"
	"github.com/codex-agent/daemon/internal/config"
	"github.com/codex-agent/daemon/internal/filechange"
	"github.com/codex-agent/daemon/internal/group"
	"github.com/codex-agent/daemon/internal/hub"
	"github.com/codex-agent/daemon/internal/httpapi"
	"github.com/codex-agent/daemon/internal/queue"
	"github.com/codex-agent/daemon/internal/sessionindex"
	"github.com/codex-agent/daemon/internal/sqlindex"
)

// Options holds the values main() gathers from flags and environment
// variables before constructing an App.
type Options struct {
	CodexHome     string // CODEX_HOME, default ~/.codex
	ConfigDir     string // holds groups.json, queues.json, etc; default ~/.config/codex-agent
	Host          string // CODEX_AGENT_HOST, default 127.0.0.1
	Port          int    // CODEX_AGENT_PORT, default 3100
	Token         string // CODEX_AGENT_TOKEN, bootstrap full-access credential
	Transport     string // CODEX_AGENT_TRANSPORT: "local-cli" or "app-server"
	AgentBinary   string
	MaxConcurrent int
	AllowedOrigin string
}

// DefaultOptions fills Options from environment variables and the
// config-file layer (config.hjson under ConfigDir), exactly as spec §6
// prescribes: environment variables win, the file only fills gaps.
func DefaultOptions() (Options, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	opts := Options{
		CodexHome: envOrDefault("CODEX_HOME", filepath.Join(home, ".codex")),
		ConfigDir: filepath.Join(home, ".config", "codex-agent"),
		Token:     os.Getenv("CODEX_AGENT_TOKEN"),
		Transport: envOrDefault("CODEX_AGENT_TRANSPORT", "local-cli"),
	}

	loader := config.NewLoader()
	cfgPath, findErr := loader.FindConfig(opts.ConfigDir)
	var cfg *config.Config
	if findErr == nil {
		cfg, err = loader.LoadWithDefaults(context.Background(), cfgPath)
	} else {
		cfg, err = loader.LoadWithDefaults(context.Background(), filepath.Join(opts.ConfigDir, "config.hjson"))
	}
	if err != nil {
		return Options{}, fmt.Errorf("load config: %w", err)
	}

	opts.Host = envOrDefault("CODEX_AGENT_HOST", cfg.Server.Host)
	opts.Port = envOrDefaultInt("CODEX_AGENT_PORT", cfg.Server.Port)
	opts.AgentBinary = cfg.Agent.Binary
	opts.MaxConcurrent = cfg.Group.MaxConcurrent
	opts.AllowedOrigin = cfg.CORS.AllowedOrigin

	return opts, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// App is the running daemon: every store, runner, and the HTTP server they
// are wired behind.
type App struct {
	opts Options

	hub       *hub.Hub
	tokens    *auth.Store
	groups    *group.Store
	queues    *queue.Store
	bookmarks *bookmark.Store
	files     *filechange.Store
	runner    *agentproc.Runner

	httpServer *http.Server

	done     chan struct{}
	stopOnce sync.Once
}

// New constructs an App from opts. It does not start listening; call Run or
// Start.
func New(opts Options) (*App, error) {
	if err := os.MkdirAll(opts.ConfigDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	sqlReader := sqlindex.Open(opts.CodexHome)
	facade := sessionindex.New(opts.CodexHome, sqlReader)

	runner := agentproc.New(opts.AgentBinary)

	app := &App{
		opts:      opts,
		hub:       hub.New(facade, opts.CodexHome),
		tokens:    auth.NewStore(filepath.Join(opts.ConfigDir, "tokens.json")),
		groups:    group.NewStore(filepath.Join(opts.ConfigDir, "groups.json")),
		queues:    queue.NewStore(filepath.Join(opts.ConfigDir, "queues.json")),
		bookmarks: bookmark.NewStore(filepath.Join(opts.ConfigDir, "bookmarks.json")),
		files:     filechange.NewStore(filepath.Join(opts.ConfigDir, "file-changes-index.json")),
		runner:    runner,
		done:      make(chan struct{}),
	}

	handler := httpapi.NewServer(httpapi.Deps{
		Sessions:       facade,
		FileIndex:      app.files,
		Groups:         app.groups,
		Queues:         app.queues,
		Bookmarks:      app.bookmarks,
		Tokens:         app.tokens,
		Hub:            app.hub,
		Runner:         app.runner,
		GroupRunner:    app.runner,
		QueueRunner:    app.runner,
		MaxConcurrency: opts.MaxConcurrent,
		StaticToken:    opts.Token,
		AllowedOrigin:  opts.AllowedOrigin,
		Logger:         log.New(os.Stderr, "[httpapi] ", log.LstdFlags),
	})

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	app.httpServer = httpapi.NewHTTPServer(addr, handler)

	return app, nil
}

// Start begins serving HTTP in the background. Run is preferred for a
// process that should block until shutdown; Start is exposed for tests and
// embedders that manage their own lifecycle.
func (a *App) Start(ctx context.Context) error {
	go func() {
		log.Printf("codex-agentd listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()
	return nil
}

// Run starts the daemon and blocks until it receives SIGINT/SIGTERM, ctx is
// cancelled, or Stop is called, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down", sig)
	case <-ctx.Done():
		log.Printf("context cancelled, shutting down")
	case <-a.done:
		log.Printf("shutdown requested")
	}

	return a.Shutdown(context.Background())
}

// Shutdown stops the HTTP server from accepting new connections and waits
// up to 30 seconds for in-flight requests (including group/queue run
// streams) to finish; it does not cancel those requests. It then stops the
// hub's tailers and watcher.
func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down http server: %v", err)
	}

	a.hub.Shutdown()

	log.Println("shutdown complete")
	return nil
}

// Stop requests a graceful shutdown; safe to call multiple times.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.done) })
}
