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
Package transport defines the abstract interface the Raft core depends on
(spec.md §4.3) and a concrete implementation over stdin/stdout.

Inbound dispatch priority is: a frame whose in_reply_to matches a pending
RPC invokes that callback exactly once, and the callback is deregistered;
otherwise the frame is dispatched by body.type; otherwise it is a protocol
error. raft.Node never sees a Transport implementation directly, only this
interface, so tests substitute Fake (an in-memory double).
*/
package transport

import (
	"raftkv/internal/rafterrors"
)

// Message is one inbound or outbound frame as seen by the core: Src/Dest
// peer ids and a raw, not-yet-typed body.
type Message struct {
	Src  string
	Dest string
	Body []byte
}

// HandlerFunc processes one inbound Message. Returning an error only logs;
// it never crashes the dispatch loop (spec.md §7, protocol errors are
// fatal at the handler site but recovered by the dispatcher).
type HandlerFunc func(Message) error

// Transport is the abstraction the Raft core is built against.
type Transport interface {
	// Send enqueues one outbound frame addressed to dest. Per spec.md §5,
	// this must not block on the remote peer — only on local buffering.
	Send(dest string, body any) error

	// Reply sends body to req.Src with in_reply_to set from req's
	// envelope msg_id.
	Reply(req Message, body any) error

	// RPC allocates a fresh msg_id, registers handler keyed by that id,
	// and sends body to dest. The handler fires at most once, the first
	// time a frame with matching in_reply_to arrives, and is then
	// deregistered.
	RPC(dest string, body any, handler HandlerFunc) error

	// On registers handler for inbound frames of the given body.type.
	// Registering the same type twice is a protocol error.
	On(msgType string, handler HandlerFunc) error
}

// ErrDuplicateHandler is returned by On when a type handler is already
// registered.
var ErrDuplicateHandler = rafterrors.Protocol("duplicate handler registration")

// ErrUnroutable is the protocol error for an inbound frame that matches
// neither a pending RPC nor a registered type handler. Neither transport
// returns it: StdioTransport logs such a frame and skips it, and Fake
// drops it.
var ErrUnroutable = rafterrors.Protocol("unroutable frame: no pending rpc and no type handler")

// ErrMissingMsgID is returned by Reply when the request being replied to
// carried no msg_id, so no in_reply_to correlation is possible.
var ErrMissingMsgID = rafterrors.Protocol("cannot reply: request carried no msg_id")
