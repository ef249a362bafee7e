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

package raft

import (
	"context"
	"testing"
	"time"

	"raftkv/internal/clock"
	"raftkv/internal/protocol"
	"raftkv/internal/transport"
)

func TestElectionTickPromotesTimedOutFollower(t *testing.T) {
	net := transport.NewNetwork()
	c := clock.NewFake(time.Unix(0, 0))
	n := newTestNode("n1", nil, net, c)

	n.mu.Lock()
	n.electionDeadline = c.Now().Add(-time.Millisecond) // already elapsed
	n.mu.Unlock()

	n.electionTick()

	if st := n.Status(); st.Role != RoleLeader {
		t.Fatalf("role = %v, want Leader (solo cluster promotes immediately)", st.Role)
	}
}

func TestElectionTickNoOpBeforeDeadline(t *testing.T) {
	net := transport.NewNetwork()
	c := clock.NewFake(time.Unix(0, 0))
	n := newTestNode("n1", nil, net, c)

	n.mu.Lock()
	n.electionDeadline = c.Now().Add(time.Hour)
	n.mu.Unlock()

	n.electionTick()

	if st := n.Status(); st.Role != RoleFollower {
		t.Fatalf("role = %v, want Follower (deadline not reached)", st.Role)
	}
}

func TestElectionTickOnLeaderJustResetsDeadline(t *testing.T) {
	net := transport.NewNetwork()
	c := clock.NewFake(time.Unix(0, 0))
	n := newSoloLeader("n1", net, c)

	n.mu.Lock()
	n.electionDeadline = c.Now().Add(-time.Millisecond)
	n.mu.Unlock()

	n.electionTick()

	st := n.Status()
	if st.Role != RoleLeader {
		t.Fatalf("role = %v, want still Leader", st.Role)
	}
	n.mu.Lock()
	stillFuture := n.electionDeadline.After(c.Now())
	n.mu.Unlock()
	if !stillFuture {
		t.Fatal("expected electionTick to push the deadline into the future for a leader")
	}
}

func TestMaintenanceTickDrivesCommitAndApply(t *testing.T) {
	net := transport.NewNetwork()
	c := clock.NewFake(time.Unix(0, 0))
	n := newSoloLeader("n1", net, c)

	n.HandleWrite("client", writeBodyFor("x", "1"))

	n.maintenanceTick()

	snap := n.KVSnapshot()
	if snap["x"] != "1" {
		t.Fatalf("kv[x] = %q, want %q after a maintenance tick on a solo leader", snap["x"], "1")
	}
}

func TestRunStartsLoopsAndStopsOnContextCancel(t *testing.T) {
	net := transport.NewNetwork()
	c := clock.NewFake(time.Unix(0, 0))
	n := newSoloLeader("n1", net, c)

	ctx, cancel := context.WithCancel(context.Background())
	n.Run(ctx)

	n.HandleWrite("client", writeBodyFor("x", "1"))

	// Repeatedly advance the fake clock so the test doesn't race the
	// maintenance/election goroutines' first call to Clock.After.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.Advance(time.Hour)
		if n.KVSnapshot()["x"] == "1" {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if got := n.KVSnapshot()["x"]; got != "1" {
		t.Fatalf("kv[x] = %q, want %q once Run's maintenance loop has ticked", got, "1")
	}

	cancel()
}

func writeBodyFor(key, value string) protocol.WriteBody {
	return protocol.WriteBody{
		Envelope: protocol.Envelope{Type: protocol.TypeWrite},
		Key:      key,
		Value:    value,
	}
}
