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

/*
Package raft implements the consensus core: the role state machine,
leader election, log replication, commit-index advancement, and
application of committed operations to the key-value state machine.

Node holds one non-reentrant sync.Mutex guarding every field below. Every
exported entry point locks it for the duration of a logical transition;
internal helpers that must run under an already-held lock are named with
a "Locked" suffix and never lock themselves, per the single-writer
discipline this package was rebuilt around (the source's reentrant node
mutex is deliberately not carried forward — see spec's REDESIGN FLAGS).

Node never touches os.Stdin/os.Stdout directly: it is driven entirely
through the injected transport.Transport and clock.Clock, so tests can
substitute transport.Fake and clock.Fake for a fully deterministic,
hermetic Raft simulation.

There is no durable persistence of current_term, voted_for, or the log.
A process crash loses all three; restarting a node starts it Nascent
again, as if joining fresh. This is a documented limitation, not an
oversight.
*/
package raft

import (
	"sync"
	"time"

	"raftkv/internal/clock"
	"raftkv/internal/config"
	"raftkv/internal/kvstore"
	"raftkv/internal/logging"
	"raftkv/internal/raftlog"
	"raftkv/internal/transport"
)

// Role is the Raft role state machine: Nascent -> Follower <-> Candidate,
// Candidate -> Leader, any role -> Follower on a higher term.
type Role int

const (
	RoleNascent Role = iota
	RoleFollower
	RoleCandidate
	RoleLeader
)

// String renders the role the way log lines and Status use it.
func (r Role) String() string {
	switch r {
	case RoleNascent:
		return "nascent"
	case RoleFollower:
		return "follower"
	case RoleCandidate:
		return "candidate"
	case RoleLeader:
		return "leader"
	default:
		return "unknown"
	}
}

// Node is one Raft-replicated key-value node.
type Node struct {
	mu sync.Mutex

	transport transport.Transport
	clock     clock.Clock
	log       *logging.Logger
	cfg       *config.Config

	// Cluster identity, set once by raft_init.
	selfID  string
	allIDs  []string
	peerIDs []string

	role Role

	// Persistent-like state.
	currentTerm uint64
	votedFor    string
	raftLog     *raftlog.Log

	// Volatile state on all nodes.
	commitIndex uint64
	lastApplied uint64

	// Leader-only next/match bookkeeping, nil when not leader. votes is the
	// tally of the current candidacy: set by becomeCandidateLocked, kept on
	// promotion to leader, nil after stepping down.
	nextIndex  map[string]uint64
	matchIndex map[string]uint64
	votes      map[string]bool

	electionDeadline  time.Time
	heartbeatDeadline time.Time

	kv *kvstore.Store
}

// New returns a Nascent Node. It does nothing until raft_init arrives.
func New(cfg *config.Config, t transport.Transport, c clock.Clock, logger *logging.Logger) *Node {
	return &Node{
		transport:   t,
		clock:       c,
		log:         logger,
		cfg:         cfg,
		role:        RoleNascent,
		raftLog:     raftlog.New(),
		lastApplied: 1,
		kv:          kvstore.New(),
	}
}

// Status is a point-in-time snapshot of Node's state, used for logging,
// the debug CLI, and tests.
type Status struct {
	SelfID      string
	Role        Role
	Term        uint64
	CommitIndex uint64
	LastApplied uint64
	LogSize     uint64
	PeerCount   int
}

// Status returns a consistent snapshot of the node's state.
func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Status{
		SelfID:      n.selfID,
		Role:        n.role,
		Term:        n.currentTerm,
		CommitIndex: n.commitIndex,
		LastApplied: n.lastApplied,
		LogSize:     n.raftLog.Size(),
		PeerCount:   len(n.peerIDs),
	}
}

// KVSnapshot returns a copy of the applied key-value state, for tests.
func (n *Node) KVSnapshot() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.kv.Snapshot()
}

func (n *Node) resetElectionDeadlineLocked() {
	n.electionDeadline = n.clock.Now().Add(clock.RandomElectionTimeout(n.cfg.ElectionTimeoutBase))
}

func (n *Node) resetHeartbeatDeadlineLocked() {
	n.heartbeatDeadline = n.clock.Now().Add(n.cfg.HeartbeatInterval())
}

// advanceTermLocked bumps current_term to term and clears voted_for.
// Precondition: term > n.currentTerm.
func (n *Node) advanceTermLocked(term uint64) {
	n.currentTerm = term
	n.votedFor = ""
}

// maybeStepDownLocked implements spec §4.9: any message carrying a term
// higher than ours means we are stale, regardless of role.
func (n *Node) maybeStepDownLocked(remoteTerm uint64) {
	if remoteTerm > n.currentTerm {
		n.advanceTermLocked(remoteTerm)
		n.becomeFollowerLocked()
	}
}

// becomeFollowerLocked transitions to Follower and drops leader-only
// bookkeeping (invariant 8: only a leader mutates next_index/match_index).
func (n *Node) becomeFollowerLocked() {
	n.role = RoleFollower
	n.nextIndex = nil
	n.matchIndex = nil
	n.votes = nil
}
