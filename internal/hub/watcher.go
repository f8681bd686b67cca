// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"time"

	"github.com/codex-agent/daemon/internal/rollout"
)

const newSessionPollInterval = 2 * time.Second

// watchNewSessions polls the sessions tree under codexHome and calls emit
// for every rollout file not seen on a prior tick. The first tick only
// establishes the baseline; only files appearing afterward are reported,
// mirroring the tailer's tail-from-now semantics.
func watchNewSessions(ctx context.Context, codexHome string, emit func(path string)) {
	seen := map[string]bool{}
	for path := range rollout.Discover(codexHome) {
		seen[path] = true
	}

	ticker := time.NewTicker(newSessionPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for path := range rollout.Discover(codexHome) {
				if seen[path] {
					continue
				}
				seen[path] = true
				emit(path)
			}
		}
	}
}
