// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

// Config holds the optional on-disk overrides for values not supplied via
// environment variables. Environment variables (see internal/daemon) remain
// authoritative; this file only fills gaps.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Group   GroupConfig   `json:"group"`
	CORS    CORSConfig    `json:"cors"`
	Agent   AgentConfig   `json:"agent"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// GroupConfig supplies defaults for the group scheduler (C10).
type GroupConfig struct {
	MaxConcurrent int `json:"max_concurrent"`
}

type CORSConfig struct {
	AllowedOrigin string `json:"allowed_origin"`
}

// AgentConfig supplies defaults for the process runner (C9).
type AgentConfig struct {
	// Binary is the name or path of the external agent executable.
	Binary string `json:"binary"`
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3100
	}
	if cfg.Group.MaxConcurrent == 0 {
		cfg.Group.MaxConcurrent = 3
	}
	if cfg.CORS.AllowedOrigin == "" {
		cfg.CORS.AllowedOrigin = "*"
	}
	if cfg.Agent.Binary == "" {
		cfg.Agent.Binary = "codex"
	}
}
