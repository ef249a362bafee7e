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
Package node wires a raft.Node to a transport.StdioTransport and registers
the handler for every inbound request type spec.md §6 defines. It is the
seam between the process entrypoint (cmd/raftkv-node) and the consensus
core: everything below this package is transport/clock-injected and
hermetically testable, everything above it is os.Stdin/os.Stdout and
process lifetime.
*/
package node

import (
	"context"
	"encoding/json"
	"io"

	"raftkv/internal/clock"
	"raftkv/internal/config"
	"raftkv/internal/logging"
	"raftkv/internal/protocol"
	"raftkv/internal/raft"
	"raftkv/internal/transport"
)

// Orchestrator owns one raft.Node and the StdioTransport it is driven
// through, and registers the glue handlers between the two.
type Orchestrator struct {
	transport *transport.StdioTransport
	raft      *raft.Node
	log       *logging.Logger
}

// New builds an Orchestrator reading frames from r and writing frames to
// w (normally os.Stdin/os.Stdout), and registers its wire handlers.
func New(cfg *config.Config, r io.Reader, w io.Writer, logger *logging.Logger) *Orchestrator {
	tr := transport.NewStdioTransport("", r, w, logger)
	rn := raft.New(cfg, tr, clock.Real{}, logger)
	o := &Orchestrator{transport: tr, raft: rn, log: logger}
	o.registerHandlers()
	return o
}

func (o *Orchestrator) registerHandlers() {
	mustOn(o.transport, protocol.TypeRaftInit, o.handleRaftInit)
	mustOn(o.transport, protocol.TypeRequestVote, o.handleRequestVote)
	mustOn(o.transport, protocol.TypeAppendEntries, o.handleAppendEntries)
	mustOn(o.transport, protocol.TypeRead, o.handleRead)
	mustOn(o.transport, protocol.TypeWrite, o.handleWrite)
	mustOn(o.transport, protocol.TypeCas, o.handleCas)
}

// mustOn registers handler for msgType. A duplicate registration here is
// a programmer error (each type is wired exactly once, above), not a
// runtime condition worth propagating, so it panics at startup rather
// than failing silently later.
func mustOn(t *transport.StdioTransport, msgType string, handler transport.HandlerFunc) {
	if err := t.On(msgType, handler); err != nil {
		panic("node: " + msgType + ": " + err.Error())
	}
}

func (o *Orchestrator) handleRaftInit(msg transport.Message) error {
	var body protocol.RaftInitBody
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		return err
	}
	if err := o.raft.HandleRaftInit(msg.Src, body); err != nil {
		return err
	}
	o.transport.SetSelfID(body.NodeID)
	return nil
}

func (o *Orchestrator) handleRequestVote(msg transport.Message) error {
	var body protocol.RequestVoteBody
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		return err
	}
	res := o.raft.HandleRequestVote(body)
	return o.transport.Reply(msg, res)
}

func (o *Orchestrator) handleAppendEntries(msg transport.Message) error {
	var body protocol.AppendEntriesBody
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		return err
	}
	res := o.raft.HandleAppendEntries(body)
	return o.transport.Reply(msg, res)
}

func (o *Orchestrator) handleRead(msg transport.Message) error {
	var body protocol.ReadBody
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		return err
	}
	o.raft.HandleRead(msg.Src, body)
	return nil
}

func (o *Orchestrator) handleWrite(msg transport.Message) error {
	var body protocol.WriteBody
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		return err
	}
	o.raft.HandleWrite(msg.Src, body)
	return nil
}

func (o *Orchestrator) handleCas(msg transport.Message) error {
	var body protocol.CasBody
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		return err
	}
	o.raft.HandleCas(msg.Src, body)
	return nil
}

// Run starts the Raft core's background loops and then blocks dispatching
// inbound frames until ctx is cancelled or the input stream ends. It
// returns the error transport.Run returns: ctx.Err() once ctx is
// cancelled, io.EOF when the input stream ends, or the reader's error if
// reading fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.raft.Run(ctx)
	return o.transport.Run(ctx)
}

// Status exposes the underlying raft.Node's status snapshot, for the
// debug CLI and for tests.
func (o *Orchestrator) Status() raft.Status {
	return o.raft.Status()
}

// KVSnapshot exposes the underlying key-value state, for tests.
func (o *Orchestrator) KVSnapshot() map[string]string {
	return o.raft.KVSnapshot()
}
