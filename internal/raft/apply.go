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
	"raftkv/internal/kvstore"
	"raftkv/internal/protocol"
)

// AdvanceStateMachine applies every committed-but-unapplied log entry to
// the key-value store, exported for tests that want to drive application
// without a full maintenance tick.
func (n *Node) AdvanceStateMachine() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.advanceStateMachineLocked()
}

func (n *Node) advanceStateMachineLocked() {
	for n.lastApplied < n.commitIndex {
		n.lastApplied++
		entry := n.raftLog.Get(n.lastApplied)
		if entry.Op == nil {
			continue // the sentinel, or a future no-op entry
		}
		resp := n.kv.Apply(*entry.Op)
		if n.role == RoleLeader {
			n.sendClientResponseLocked(resp)
		}
	}
	n.publishMetricsLocked()
}

func (n *Node) sendClientResponseLocked(resp kvstore.Response) {
	inReplyTo := resp.InReplyTo
	var body any
	switch resp.Kind {
	case kvstore.RespReadOK:
		body = protocol.ReadOKBody{
			Envelope: protocol.Envelope{Type: protocol.TypeReadOK, InReplyTo: &inReplyTo},
			Value:    resp.Value,
		}
	case kvstore.RespWriteOK:
		body = protocol.WriteOKBody{
			Envelope: protocol.Envelope{Type: protocol.TypeWriteOK, InReplyTo: &inReplyTo},
		}
	case kvstore.RespCasOK:
		body = protocol.CasOKBody{
			Envelope: protocol.Envelope{Type: protocol.TypeCasOK, InReplyTo: &inReplyTo},
		}
	case kvstore.RespError:
		body = protocol.ErrorBody{
			Envelope: protocol.Envelope{Type: protocol.TypeError, InReplyTo: &inReplyTo},
			Code:     int(resp.Err.Code),
			Text:     resp.Err.UserMessage(),
		}
	default:
		return
	}
	if err := n.transport.Send(resp.Dest, body); err != nil {
		n.log.Error("failed to send client response", "dest", resp.Dest, "error", err.Error())
	}
}
