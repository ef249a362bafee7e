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
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"raftkv/internal/logging"
	"raftkv/internal/protocol"
	"raftkv/internal/wire"
)

// StdioTransport is the production Transport: NDJSON frames over an
// injected reader/writer pair (normally os.Stdin/os.Stdout).
type StdioTransport struct {
	selfID string
	r      *wire.Reader
	w      *wire.Writer
	log    *logging.Logger

	nextMsgID atomic.Uint64

	mu       sync.Mutex
	pending  map[uint64]HandlerFunc
	handlers map[string]HandlerFunc
}

// NewStdioTransport returns a Transport identified as selfID, reading
// frames from r and writing frames to w.
func NewStdioTransport(selfID string, r io.Reader, w io.Writer, log *logging.Logger) *StdioTransport {
	return &StdioTransport{
		selfID:   selfID,
		r:        wire.NewReader(r),
		w:        wire.NewWriter(w),
		log:      log,
		pending:  make(map[uint64]HandlerFunc),
		handlers: make(map[string]HandlerFunc),
	}
}

// SetSelfID updates the peer id frames are sent from, used once raft_init
// assigns node identity.
func (t *StdioTransport) SetSelfID(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selfID = id
}

func (t *StdioTransport) send(dest string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	t.mu.Lock()
	src := t.selfID
	t.mu.Unlock()
	return t.w.WriteFrame(wire.Frame{Src: src, Dest: dest, Body: data})
}

// Send implements Transport.
func (t *StdioTransport) Send(dest string, body any) error {
	return t.send(dest, body)
}

// Reply implements Transport.
func (t *StdioTransport) Reply(req Message, body any) error {
	var env protocol.Envelope
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
	return t.send(req.Src, withReply)
}

// RPC implements Transport.
func (t *StdioTransport) RPC(dest string, body any, handler HandlerFunc) error {
	id := t.nextMsgID.Add(1)
	withID, err := attachMsgID(body, id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.pending[id] = handler
	t.mu.Unlock()

	return t.send(dest, withID)
}

// On implements Transport.
func (t *StdioTransport) On(msgType string, handler HandlerFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.handlers[msgType]; exists {
		return ErrDuplicateHandler
	}
	t.handlers[msgType] = handler
	return nil
}

// Run reads frames until ctx is cancelled or reading fails (io.EOF at the
// end of input), dispatching each one in the order it was read:
// in_reply_to takes priority over type, an unmatched frame is logged and
// skipped, and so is a line that is not a valid JSON frame. Run does
// not itself serialize against raft.Node's mutex — each handler takes that
// lock for the duration of its own critical section (spec.md §5).
func (t *StdioTransport) Run(ctx context.Context) error {
	frames := make(chan wire.Frame)
	errs := make(chan error, 1)

	go func() {
		for {
			f, err := t.r.ReadFrame()
			if err != nil {
				var syntaxErr *json.SyntaxError
				var typeErr *json.UnmarshalTypeError
				if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
					t.log.Error("malformed frame", "error", err.Error())
					continue
				}
				errs <- err
				return
			}
			frames <- f
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		case f := <-frames:
			t.dispatch(f)
		}
	}
}

func (t *StdioTransport) dispatch(f wire.Frame) {
	var env protocol.Envelope
	if err := json.Unmarshal(f.Body, &env); err != nil {
		t.log.Error("malformed frame body", "src", f.Src, "error", err.Error())
		return
	}

	msg := Message{Src: f.Src, Dest: f.Dest, Body: f.Body}

	if env.InReplyTo != nil {
		t.mu.Lock()
		h, ok := t.pending[*env.InReplyTo]
		if ok {
			delete(t.pending, *env.InReplyTo)
		}
		t.mu.Unlock()
		if ok {
			if err := h(msg); err != nil {
				t.log.Error("rpc callback failed", "type", env.Type, "error", err.Error())
			}
			return
		}
	}

	t.mu.Lock()
	h, ok := t.handlers[env.Type]
	t.mu.Unlock()
	if !ok {
		t.log.Error("unroutable frame", "type", env.Type, "src", f.Src)
		return
	}
	if err := h(msg); err != nil {
		t.log.Error("handler failed", "type", env.Type, "error", err.Error())
	}
}

func attachMsgID(body any, id uint64) (any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m["msg_id"] = id
	return m, nil
}

func attachInReplyTo(body any, id uint64) (any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m["in_reply_to"] = id
	return m, nil
}
