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

const (
	wireOpRead  = "read"
	wireOpWrite = "write"
	wireOpCas   = "cas"
)

// opToWire converts a log entry's op to its JSON wire form. nil (the
// sentinel, or a future no-op entry) maps to nil.
func opToWire(op *kvstore.Op) *protocol.WireOp {
	if op == nil {
		return nil
	}
	w := &protocol.WireOp{
		Key:    op.Key,
		Value:  op.Value,
		From:   op.From,
		To:     op.To,
		Client: op.Client,
		MsgID:  op.MsgID,
	}
	switch op.Kind {
	case kvstore.KindRead:
		w.Type = wireOpRead
	case kvstore.KindWrite:
		w.Type = wireOpWrite
	case kvstore.KindCas:
		w.Type = wireOpCas
	}
	return w
}

func wireToOp(w *protocol.WireOp) *kvstore.Op {
	if w == nil {
		return nil
	}
	op := &kvstore.Op{
		Key:    w.Key,
		Value:  w.Value,
		From:   w.From,
		To:     w.To,
		Client: w.Client,
		MsgID:  w.MsgID,
	}
	switch w.Type {
	case wireOpWrite:
		op.Kind = kvstore.KindWrite
	case wireOpCas:
		op.Kind = kvstore.KindCas
	default:
		op.Kind = kvstore.KindRead
	}
	return op
}
