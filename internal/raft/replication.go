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
	"encoding/json"

	"raftkv/internal/protocol"
	"raftkv/internal/raftlog"
	"raftkv/internal/transport"
)

// ReplicateLog sends append_entries to every peer that is behind (or to
// all peers if force is set, for heartbeats). Exported for tests that
// want to force a replication round without waiting on the maintenance
// loop's clock.
func (n *Node) ReplicateLog(force bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replicateLogLocked(force)
}

func (n *Node) replicateLogLocked(force bool) {
	if n.role != RoleLeader {
		return
	}

	sentAny := false
	for _, peer := range n.peerIDs {
		ni := n.nextIndex[peer]
		if ni == 0 {
			ni = 1
		}
		if !force && ni > n.raftLog.Size() {
			continue
		}

		entries := n.raftLog.From(ni)
		body := protocol.AppendEntriesBody{
			Envelope:     protocol.Envelope{Type: protocol.TypeAppendEntries},
			Term:         n.currentTerm,
			LeaderID:     n.selfID,
			PrevLogIndex: ni - 1,
			PrevLogTerm:  n.raftLog.Get(ni - 1).Term,
			Entries:      toWireEntries(entries),
			LeaderCommit: n.commitIndex,
		}

		sentCount := uint64(len(entries))
		term := n.currentTerm
		handler := n.appendEntriesResponseHandler(peer, term, ni, sentCount)
		if err := n.transport.RPC(peer, body, handler); err != nil {
			n.log.Error("failed to send append_entries", "peer", peer, "error", err.Error())
			continue
		}
		sentAny = true
	}

	if sentAny {
		n.resetHeartbeatDeadlineLocked()
	}
}

// appendEntriesResponseHandler is closed over the term and the next_index
// value this RPC was sent with, so a response arriving after next_index
// has moved on (possibly via a different, newer RPC) is applied with
// max() semantics rather than regressing state.
func (n *Node) appendEntriesResponseHandler(peer string, expectedTerm, sentNextIndex, sentCount uint64) transport.HandlerFunc {
	return func(msg transport.Message) error {
		var res protocol.AppendEntriesResBody
		if err := json.Unmarshal(msg.Body, &res); err != nil {
			return err
		}

		n.mu.Lock()
		defer n.mu.Unlock()

		n.maybeStepDownLocked(res.Term)

		if n.role != RoleLeader || n.currentTerm != expectedTerm {
			return nil
		}

		if res.Success {
			if newNext := sentNextIndex + sentCount; newNext > n.nextIndex[peer] {
				n.nextIndex[peer] = newNext
			}
			if newMatch := sentNextIndex - 1 + sentCount; newMatch > n.matchIndex[peer] {
				n.matchIndex[peer] = newMatch
			}
			appendEntriesAccepted.Inc()
		} else {
			if n.nextIndex[peer] > 1 {
				n.nextIndex[peer]--
			}
			appendEntriesRejected.Inc()
		}
		return nil
	}
}

// HandleAppendEntries implements the append_entries acceptance rule (spec
// §4.5), returning the body to reply with.
//
// The election deadline is reset unconditionally, before the stale-term
// check below, including for a rejected (stale-term) request. This is
// preserved verbatim per the documented open question: a deposed leader's
// heartbeats can still suppress an election on a follower that is still
// receiving them. See DESIGN.md and
// TestAppendEntries_DeadlineResetsBeforeTermCheck.
func (n *Node) HandleAppendEntries(body protocol.AppendEntriesBody) protocol.AppendEntriesResBody {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.maybeStepDownLocked(body.Term)
	n.resetElectionDeadlineLocked()

	if body.Term < n.currentTerm {
		appendEntriesRejected.Inc()
		return protocol.AppendEntriesResBody{
			Envelope: protocol.Envelope{Type: protocol.TypeAppendEntriesRes},
			Term:     n.currentTerm,
			Success:  false,
		}
	}

	if body.PrevLogIndex > 0 {
		if body.PrevLogIndex > n.raftLog.Size() || n.raftLog.Get(body.PrevLogIndex).Term != body.PrevLogTerm {
			appendEntriesRejected.Inc()
			return protocol.AppendEntriesResBody{
				Envelope: protocol.Envelope{Type: protocol.TypeAppendEntriesRes},
				Term:     n.currentTerm,
				Success:  false,
			}
		}
	}

	n.raftLog.TruncateTo(body.PrevLogIndex)
	n.raftLog.AppendMany(fromWireEntries(body.Entries))
	if body.LeaderCommit > n.commitIndex {
		n.commitIndex = min(body.LeaderCommit, n.raftLog.Size())
	}
	n.publishMetricsLocked()
	appendEntriesAccepted.Inc()

	return protocol.AppendEntriesResBody{
		Envelope: protocol.Envelope{Type: protocol.TypeAppendEntriesRes},
		Term:     n.currentTerm,
		Success:  true,
	}
}

func toWireEntries(entries []raftlog.Entry) []protocol.WireEntry {
	out := make([]protocol.WireEntry, len(entries))
	for i, e := range entries {
		out[i] = protocol.WireEntry{Term: e.Term, Op: opToWire(e.Op)}
	}
	return out
}

func fromWireEntries(entries []protocol.WireEntry) []raftlog.Entry {
	out := make([]raftlog.Entry, len(entries))
	for i, e := range entries {
		out[i] = raftlog.Entry{Term: e.Term, Op: wireToOp(e.Op)}
	}
	return out
}
