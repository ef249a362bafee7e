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

	"raftkv/internal/clock"
	"raftkv/internal/config"
	"raftkv/internal/logging"
	"raftkv/internal/protocol"
	"raftkv/internal/transport"
)

// newTestNode builds a Node already past raft_init (selfID/peers assigned,
// role Follower), wired to a transport.Fake on net and a clock.Fake, for
// tests that want to drive the Raft core directly without going through
// the wire handshake. It also registers request_vote/append_entries
// handlers the way internal/node's orchestrator would, so multi-node
// tests exercise the real RPC round trip instead of calling Handle*
// methods directly on the peer.
func newTestNode(id string, peers []string, net *transport.Network, c *clock.Fake) *Node {
	cfg := config.DefaultConfig()
	tr := net.NewFake(id)
	logger := logging.NewLogger(id)
	n := New(cfg, tr, c, logger)

	n.mu.Lock()
	n.selfID = id
	n.allIDs = append([]string{id}, peers...)
	n.peerIDs = append([]string(nil), peers...)
	n.role = RoleFollower
	n.resetElectionDeadlineLocked()
	n.mu.Unlock()

	tr.On(protocol.TypeRequestVote, func(msg transport.Message) error {
		var body protocol.RequestVoteBody
		if err := json.Unmarshal(msg.Body, &body); err != nil {
			return err
		}
		return tr.Reply(msg, n.HandleRequestVote(body))
	})
	tr.On(protocol.TypeAppendEntries, func(msg transport.Message) error {
		var body protocol.AppendEntriesBody
		if err := json.Unmarshal(msg.Body, &body); err != nil {
			return err
		}
		return tr.Reply(msg, n.HandleAppendEntries(body))
	})

	return n
}

func newSoloLeader(id string, net *transport.Network, c *clock.Fake) *Node {
	n := newTestNode(id, nil, net, c)
	n.BecomeCandidate()
	return n
}
