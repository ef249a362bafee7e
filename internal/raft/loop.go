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

import "context"

// Run starts the maintenance loop and the election loop as two goroutines
// under ctx, the two of the three cooperating activities in spec §5 that
// belong to the Raft core (the third, inbound dispatch, is owned by the
// transport). Run returns immediately; both loops exit when ctx is done.
func (n *Node) Run(ctx context.Context) {
	go n.maintenanceLoop(ctx)
	go n.electionLoop(ctx)
}

// maintenanceLoop paces replication, heartbeats, commit advancement, and
// state-machine application at the configured tick (spec §4.10). There is
// no extra sleep after a replication round: the tick itself is the only
// pacing, per the preserved decision in spec §9 item 3.
func (n *Node) maintenanceLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.clock.After(n.cfg.MaintenanceTick):
			n.maintenanceTick()
		}
	}
}

func (n *Node) maintenanceTick() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.replicateLogLocked(false)

	if n.role == RoleLeader && !n.clock.Now().Before(n.heartbeatDeadline) {
		n.replicateLogLocked(true)
		n.resetHeartbeatDeadlineLocked()
	}

	n.leaderAdvanceCommitIndexLocked()
	n.advanceStateMachineLocked()
}

// electionLoop wakes near election_deadline; if it has elapsed and the
// role is Follower or Candidate, it starts a new election. If Leader or
// Nascent, it just resets the deadline (spec §4.10).
func (n *Node) electionLoop(ctx context.Context) {
	for {
		n.mu.Lock()
		deadline := n.electionDeadline
		n.mu.Unlock()

		wait := deadline.Sub(n.clock.Now())
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-n.clock.After(wait):
			n.electionTick()
		}
	}
}

func (n *Node) electionTick() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.clock.Now().Before(n.electionDeadline) {
		// The deadline moved (e.g. a heartbeat was accepted) since this
		// wakeup was scheduled; go back to sleep for the new duration.
		return
	}

	switch n.role {
	case RoleFollower, RoleCandidate:
		n.becomeCandidateLocked()
	default: // Leader or Nascent
		n.resetElectionDeadlineLocked()
	}
}
