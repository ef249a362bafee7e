/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// These cases exercise the logger the way internal/raft and internal/node
// actually call it: one *Logger per node id as the component tag, fields
// bound with With for a role transition or an RPC peer, and many node
// goroutines (election loop, maintenance loop, transport dispatch)
// logging concurrently through the same process-wide output.

func TestNodeComponentLoggerTagsOutputWithNodeID(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	SetGlobalLevel(DEBUG)
	SetJSONMode(false)

	n1 := NewLogger("n1")
	n2 := NewLogger("n2")

	n1.Info("became leader", "term", "3")
	n2.Info("became follower", "term", "3")

	output := buf.String()
	if !strings.Contains(output, "[n1] became leader term=3") {
		t.Errorf("expected n1's line tagged [n1], got: %s", output)
	}
	if !strings.Contains(output, "[n2] became follower term=3") {
		t.Errorf("expected n2's line tagged [n2], got: %s", output)
	}
}

func TestWithBindsRPCPeerAcrossCalls(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	SetGlobalLevel(DEBUG)
	SetJSONMode(false)

	base := NewLogger("n1")
	peerLog := base.With("peer", "n2", "rpc", "append_entries")

	peerLog.Info("sent")
	peerLog.Warn("rejected", "reason", "stale_term")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %v", len(lines), lines)
	}
	for _, line := range lines {
		if !strings.Contains(line, "peer=n2") || !strings.Contains(line, "rpc=append_entries") {
			t.Errorf("expected bound peer/rpc fields on every call through With, got: %s", line)
		}
	}
	if !strings.Contains(lines[1], "reason=stale_term") {
		t.Errorf("expected per-call field alongside bound fields, got: %s", lines[1])
	}
}

func TestJSONModeRoundTripsRoleTransitionEntry(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	SetGlobalLevel(DEBUG)
	SetJSONMode(true)
	defer SetJSONMode(false)

	logger := NewLogger("n3").With("role", "candidate")
	logger.Info("election timed out, starting new election", "term", "7")

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if entry.Component != "n3" {
		t.Errorf("component = %q, want n3", entry.Component)
	}
	if entry.Fields["role"] != "candidate" || entry.Fields["term"] != "7" {
		t.Errorf("fields = %v, want role=candidate term=7", entry.Fields)
	}
}

// TestConcurrentNodeLoggersDoNotInterleaveLines simulates what actually
// happens at runtime: a node's election loop, maintenance loop, and
// transport dispatch goroutine share one process-wide output and may log
// at the same instant. Every line must come out whole, never spliced with
// another goroutine's line.
func TestConcurrentNodeLoggersDoNotInterleaveLines(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	SetGlobalLevel(DEBUG)
	SetJSONMode(false)

	const goroutines = 8
	const perGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			logger := NewLogger(fmt.Sprintf("n%d", g))
			for i := 0; i < perGoroutine; i++ {
				logger.Info("maintenance tick", "i", fmt.Sprintf("%d", i))
			}
		}(g)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != goroutines*perGoroutine {
		t.Fatalf("expected %d whole lines, got %d", goroutines*perGoroutine, len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "maintenance tick") || !strings.Contains(line, "i=") {
			t.Errorf("line looks spliced/corrupted: %q", line)
		}
	}
}
