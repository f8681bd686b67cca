// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package rollout

import (
	"bufio"
	"os"
)

// ReadLines reads every line of the rollout file at path and parses each
// one, skipping unparseable lines exactly as ParseLine's caller contract
// requires. Used by callers that need a full rollout (event export, the
// file-change rebuild sweep) rather than a live tail or a header-only scan.
func ReadLines(path string) ([]*Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []*Line
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		if line := ParseLine(scanner.Bytes()); line != nil {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
