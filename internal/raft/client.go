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
	"raftkv/internal/rafterrors"
	"raftkv/internal/raftlog"
)

// HandleRead processes an inbound read frame from src (spec §4.8). A
// non-leader rejects immediately; a leader appends the op to its log and
// the response is emitted later, once the entry commits (§4.7).
func (n *Node) HandleRead(src string, body protocol.ReadBody) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.role != RoleLeader {
		n.replyNotLeaderLocked(src, body.MsgID)
		return
	}
	n.appendClientOpLocked(kvstore.Op{
		Kind:   kvstore.KindRead,
		Key:    body.Key,
		Client: src,
		MsgID:  msgIDValue(body.MsgID),
	})
}

// HandleWrite processes an inbound write frame (spec §4.8).
func (n *Node) HandleWrite(src string, body protocol.WriteBody) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.role != RoleLeader {
		n.replyNotLeaderLocked(src, body.MsgID)
		return
	}
	n.appendClientOpLocked(kvstore.Op{
		Kind:   kvstore.KindWrite,
		Key:    body.Key,
		Value:  body.Value,
		Client: src,
		MsgID:  msgIDValue(body.MsgID),
	})
}

// HandleCas processes an inbound cas frame (spec §4.8).
func (n *Node) HandleCas(src string, body protocol.CasBody) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.role != RoleLeader {
		n.replyNotLeaderLocked(src, body.MsgID)
		return
	}
	n.appendClientOpLocked(kvstore.Op{
		Kind:   kvstore.KindCas,
		Key:    body.Key,
		From:   body.From,
		To:     body.To,
		Client: src,
		MsgID:  msgIDValue(body.MsgID),
	})
}

func (n *Node) appendClientOpLocked(op kvstore.Op) {
	n.raftLog.AppendOne(raftlog.Entry{Term: n.currentTerm, Op: &op})
}

func (n *Node) replyNotLeaderLocked(dest string, msgID *uint64) {
	err := rafterrors.NotLeader()
	sendErr := n.transport.Send(dest, protocol.ErrorBody{
		Envelope: protocol.Envelope{Type: protocol.TypeError, InReplyTo: msgID},
		Code:     int(err.Code),
		Text:     err.UserMessage(),
	})
	if sendErr != nil {
		n.log.Error("failed to send not-a-leader error", "dest", dest, "error", sendErr.Error())
	}
}

func msgIDValue(id *uint64) uint64 {
	if id == nil {
		return 0
	}
	return *id
}
