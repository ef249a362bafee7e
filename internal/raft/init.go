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
	"raftkv/internal/protocol"
	"raftkv/internal/rafterrors"
)

// HandleRaftInit processes the bootstrap handshake that assigns node
// identity. Re-initialization is a fatal protocol error, logged and
// returned to the caller, never panicked (spec §7's protocol-error class).
func (n *Node) HandleRaftInit(src string, body protocol.RaftInitBody) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.role != RoleNascent {
		return rafterrors.Protocol("raft_init received after node was already initialized")
	}

	n.selfID = body.NodeID
	n.allIDs = append([]string(nil), body.NodeIDs...)
	n.peerIDs = n.peerIDs[:0]
	for _, id := range body.NodeIDs {
		if id != n.selfID {
			n.peerIDs = append(n.peerIDs, id)
		}
	}

	n.resetElectionDeadlineLocked()
	n.role = RoleFollower
	n.publishMetricsLocked()

	n.transport.Send(src, protocol.RaftInitOKBody{
		Envelope: protocol.Envelope{Type: protocol.TypeRaftInitOK, InReplyTo: body.MsgID},
	})
	n.log.Info("initialized", "node_id", n.selfID, "peers", joinIDs(n.peerIDs))
	return nil
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}
