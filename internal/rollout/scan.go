// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package rollout

import (
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover walks {codexHome}/sessions/YYYY/MM/DD/ descending by year, month,
// day, then filename (filenames embed timestamps, so lexicographic
// descending is newest-first), then yields {codexHome}/archived_sessions/
// flat. Only names matching rollout-*.jsonl are yielded. Missing directories
// contribute nothing; no error is ever surfaced — this mirrors a lazy
// sequence a caller can break out of early (e.g. C4's id-lookup scan).
func Discover(codexHome string) iter.Seq[string] {
	return func(yield func(string) bool) {
		sessionsDir := filepath.Join(codexHome, "sessions")
		for _, year := range listDescending(sessionsDir) {
			yearDir := filepath.Join(sessionsDir, year)
			for _, month := range listDescending(yearDir) {
				monthDir := filepath.Join(yearDir, month)
				for _, day := range listDescending(monthDir) {
					dayDir := filepath.Join(monthDir, day)
					for _, name := range listDescending(dayDir) {
						if !isRolloutName(name) {
							continue
						}
						if !yield(filepath.Join(dayDir, name)) {
							return
						}
					}
				}
			}
		}

		archivedDir := filepath.Join(codexHome, "archived_sessions")
		for _, name := range listDescending(archivedDir) {
			if !isRolloutName(name) {
				continue
			}
			if !yield(filepath.Join(archivedDir, name)) {
				return
			}
		}
	}
}

func isRolloutName(name string) bool {
	return strings.HasPrefix(name, "rollout-") && strings.HasSuffix(name, ".jsonl")
}

// listDescending returns the entry names of dir sorted in descending
// lexicographic order. A missing or unreadable directory yields nil.
func listDescending(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}
