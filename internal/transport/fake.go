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

package transport

import (
	"encoding/json"
	"sync"
)

// Fake is an in-memory Transport double: frames never touch a wire. Each
// body is JSON-encoded, as StdioTransport encodes it, and handed to the
// destination Fake registered in the same Network on a fresh goroutine
// (see deliver).
type Fake struct {
	selfID  string
	network *Network

	mu        sync.Mutex
	nextMsgID uint64
	pending   map[uint64]HandlerFunc
	handlers  map[string]HandlerFunc
}

// Network is the shared registry a set of Fake transports deliver
// through. Zero value is ready to use.
type Network struct {
	mu    sync.Mutex
	peers map[string]*Fake

	dropMu sync.Mutex
	drop   map[string]bool // "src->dest" pairs currently dropped
}

// NewNetwork returns an empty Network.
func NewNetwork() *Network {
	return &Network{peers: make(map[string]*Fake), drop: make(map[string]bool)}
}

// NewFake registers and returns a new Fake transport identified as selfID
// on net.
func (net *Network) NewFake(selfID string) *Fake {
	f := &Fake{
		selfID:   selfID,
		network:  net,
		pending:  make(map[uint64]HandlerFunc),
		handlers: make(map[string]HandlerFunc),
	}
	net.mu.Lock()
	net.peers[selfID] = f
	net.mu.Unlock()
	return f
}

// Partition stops frames from flowing from src to dest (one direction) until
// Heal is called, letting tests exercise leader isolation scenarios.
func (net *Network) Partition(src, dest string) {
	net.dropMu.Lock()
	defer net.dropMu.Unlock()
	net.drop[src+"->"+dest] = true
}

// Heal reverses a prior Partition.
func (net *Network) Heal(src, dest string) {
	net.dropMu.Lock()
	defer net.dropMu.Unlock()
	delete(net.drop, src+"->"+dest)
}

func (net *Network) isDropped(src, dest string) bool {
	net.dropMu.Lock()
	defer net.dropMu.Unlock()
	return net.drop[src+"->"+dest]
}

// deliver hands the frame to dest on its own goroutine. This is not an
// incidental detail: raft.Node calls Transport.RPC while holding its own
// lock and expects the response handler to fire later, outside that lock
// (the same assumption StdioTransport's Run loop satisfies by dispatching
// on a separate reader goroutine). A synchronous, same-stack delivery here
// would let a reply route straight back into the sender's still-held lock
// and deadlock.
func (net *Network) deliver(src, dest string, body []byte) {
	if net.isDropped(src, dest) {
		return
	}
	net.mu.Lock()
	to, ok := net.peers[dest]
	net.mu.Unlock()
	if !ok {
		return
	}
	go to.receive(Message{Src: src, Dest: dest, Body: body})
}

func (f *Fake) receive(msg Message) {
	var env struct {
		Type      string  `json:"type"`
		InReplyTo *uint64 `json:"in_reply_to"`
	}
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		return
	}

	if env.InReplyTo != nil {
		f.mu.Lock()
		h, ok := f.pending[*env.InReplyTo]
		if ok {
			delete(f.pending, *env.InReplyTo)
		}
		f.mu.Unlock()
		if ok {
			h(msg)
			return
		}
	}

	f.mu.Lock()
	h, ok := f.handlers[env.Type]
	f.mu.Unlock()
	if ok {
		h(msg)
	}
}

func (f *Fake) send(dest string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	f.network.deliver(f.selfID, dest, data)
	return nil
}

// Send implements Transport.
func (f *Fake) Send(dest string, body any) error {
	return f.send(dest, body)
}

// Reply implements Transport.
func (f *Fake) Reply(req Message, body any) error {
	var env struct {
		MsgID *uint64 `json:"msg_id"`
	}
	if err := json.Unmarshal(req.Body, &env); err != nil {
		return err
	}
	if env.MsgID == nil {
		return ErrMissingMsgID
	}
	withReply, err := attachInReplyTo(body, *env.MsgID)
	if err != nil {
		return err
	}
	return f.send(req.Src, withReply)
}

// RPC implements Transport.
func (f *Fake) RPC(dest string, body any, handler HandlerFunc) error {
	f.mu.Lock()
	f.nextMsgID++
	id := f.nextMsgID
	f.pending[id] = handler
	f.mu.Unlock()

	withID, err := attachMsgID(body, id)
	if err != nil {
		return err
	}
	return f.send(dest, withID)
}

// On implements Transport.
func (f *Fake) On(msgType string, handler HandlerFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.handlers[msgType]; exists {
		return ErrDuplicateHandler
	}
	f.handlers[msgType] = handler
	return nil
}
