// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/codex-agent/daemon/internal/daemon"
)

var version = "0.1.0"

func main() {
	var (
		host        string
		port        int
		codexHome   string
		agentBinary string
		showVersion bool
	)

	flag.StringVar(&host, "host", "", "HTTP server host (overrides environment and config)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides environment and config)")
	flag.StringVar(&codexHome, "codex-home", "", "codex home directory (overrides CODEX_HOME)")
	flag.StringVar(&agentBinary, "agent-binary", "", "external agent binary name or path (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "show version")
	flag.Parse()

	if showVersion {
		fmt.Printf("codex-agentd %s\n", version)
		return
	}

	opts, err := daemon.DefaultOptions()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if host != "" {
		opts.Host = host
	}
	if port != 0 {
		opts.Port = port
	}
	if codexHome != "" {
		opts.CodexHome = codexHome
	}
	if agentBinary != "" {
		opts.AgentBinary = agentBinary
	}

	app, err := daemon.New(opts)
	if err != nil {
		log.Fatalf("failed to create daemon: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "daemon error: %v\n", err)
		os.Exit(1)
	}
}
