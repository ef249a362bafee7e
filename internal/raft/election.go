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
	"raftkv/internal/transport"
)

// majority returns floor(n/2)+1, the number of votes (or matchIndex
// entries) needed to win a quorum of n voters.
func majority(n int) int {
	return n/2 + 1
}

// BecomeCandidate starts a new election: bumps the term, votes for self,
// and broadcasts request_vote to every peer.
func (n *Node) BecomeCandidate() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.becomeCandidateLocked()
}

func (n *Node) becomeCandidateLocked() {
	n.role = RoleCandidate
	n.currentTerm++
	n.votedFor = n.selfID
	n.resetElectionDeadlineLocked()
	n.votes = map[string]bool{n.selfID: true}
	n.publishMetricsLocked()
	electionsStarted.Inc()

	term := n.currentTerm
	body := protocol.RequestVoteBody{
		Envelope:     protocol.Envelope{Type: protocol.TypeRequestVote},
		Term:         term,
		CandidateID:  n.selfID,
		LastLogIndex: n.raftLog.Size(),
		LastLogTerm:  n.raftLog.LastTerm(),
	}

	for _, peer := range n.peerIDs {
		if err := n.transport.RPC(peer, body, n.requestVoteResponseHandler(term)); err != nil {
			n.log.Error("failed to send request_vote", "peer", peer, "error", err.Error())
		}
	}

	if len(n.votes) >= majority(len(n.allIDs)) {
		n.becomeLeaderLocked()
	}
}

// requestVoteResponseHandler returns a transport.HandlerFunc closed over
// the term this candidacy was started in, so a response that arrives
// after a later role/term change is recognized as stale and ignored
// (spec §5's cancellation-by-filtering rule).
func (n *Node) requestVoteResponseHandler(expectedTerm uint64) transport.HandlerFunc {
	return func(msg transport.Message) error {
		var res protocol.RequestVoteResBody
		if err := json.Unmarshal(msg.Body, &res); err != nil {
			return err
		}

		n.mu.Lock()
		defer n.mu.Unlock()

		n.maybeStepDownLocked(res.Term)

		if n.role != RoleCandidate || n.currentTerm != expectedTerm {
			return nil
		}
		if !res.VoteGranted {
			return nil
		}

		n.votes[msg.Src] = true
		if len(n.votes) >= majority(len(n.allIDs)) {
			n.becomeLeaderLocked()
		}
		return nil
	}
}

// HandleRequestVote implements the request_vote acceptance rule (spec
// §4.4), returning the body to reply with.
//
// The up-to-date check intentionally uses last_term() <= body.last_log_term
// && log.size() <= body.last_log_index, not the canonical Raft rule
// ("later term wins; else longer log wins"). This is preserved verbatim
// per the documented open question rather than silently corrected — see
// DESIGN.md and TestRequestVote_UpToDateCheckIsSpecVariant.
func (n *Node) HandleRequestVote(body protocol.RequestVoteBody) protocol.RequestVoteResBody {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.maybeStepDownLocked(body.Term)

	grant := body.Term >= n.currentTerm &&
		(n.votedFor == "" || n.votedFor == body.CandidateID) &&
		n.raftLog.LastTerm() <= body.LastLogTerm &&
		n.raftLog.Size() <= body.LastLogIndex

	if grant {
		n.votedFor = body.CandidateID
		n.resetElectionDeadlineLocked()
		votesGranted.Inc()
	} else {
		votesDenied.Inc()
	}

	return protocol.RequestVoteResBody{
		Envelope: protocol.Envelope{Type: protocol.TypeRequestVoteRes},
		Term:     n.currentTerm,
		VoteGranted: grant,
	}
}

// becomeLeaderLocked promotes a Candidate to Leader. Precondition: role is
// Candidate. No no-op entry is appended at election (spec §4.4).
func (n *Node) becomeLeaderLocked() {
	n.role = RoleLeader
	n.nextIndex = make(map[string]uint64, len(n.peerIDs))
	n.matchIndex = make(map[string]uint64, len(n.peerIDs))
	for _, peer := range n.peerIDs {
		n.nextIndex[peer] = n.raftLog.Size() + 1
		n.matchIndex[peer] = 0
	}
	// Force the next maintenance tick to send an immediate heartbeat.
	n.heartbeatDeadline = n.clock.Now()
	n.publishMetricsLocked()
	n.log.Info("became leader", "term", itoa(n.currentTerm))
}
