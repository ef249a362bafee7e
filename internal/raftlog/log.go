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
Package raftlog implements the Raft log: an ordered, 1-indexed sequence of
(term, op) entries.

The log is never empty. Index 1 is seeded with a sentinel entry (term 0, no
op) so that AppendEntries can always compare against a valid prev_log_term,
even before any real entry has been written — index 0 means "before the
log". Internally the log is a plain 0-indexed slice with the sentinel at
position 0; the 1-based API lives entirely at this package's surface.

The log itself has no locking: it is always accessed under the owning
raft.Node's mutex, the way an in-process collection field is in the teacher
repo's RaftNode.
*/
package raftlog

import "raftkv/internal/kvstore"

// Entry is one record in the Raft log.
type Entry struct {
	Term uint64
	Op   *kvstore.Op // nil for the sentinel and for no-op entries
}

// Log is the 1-indexed Raft log. The zero value is not usable; use New.
type Log struct {
	entries []Entry // entries[0] is the sentinel occupying index 1
}

// New returns a Log seeded with the sentinel entry at index 1.
func New() *Log {
	return &Log{entries: []Entry{{Term: 0, Op: nil}}}
}

// Size returns the number of entries in the log, including the sentinel.
func (l *Log) Size() uint64 {
	return uint64(len(l.entries))
}

// Get returns the entry at 1-based index i. Index 0 returns the virtual
// "before the log" sentinel (term 0, no op) regardless of log contents.
func (l *Log) Get(i uint64) Entry {
	if i == 0 {
		return Entry{Term: 0, Op: nil}
	}
	return l.entries[i-1]
}

// LastTerm returns the term of the last entry in the log.
func (l *Log) LastTerm() uint64 {
	return l.Get(l.Size()).Term
}

// AppendOne appends a single entry at the tail.
func (l *Log) AppendOne(e Entry) {
	l.entries = append(l.entries, e)
}

// AppendMany appends a sequence of entries at the tail, in order.
func (l *Log) AppendMany(es []Entry) {
	l.entries = append(l.entries, es...)
}

// TruncateTo keeps only the first length entries (1-based count, so
// length==1 keeps only the sentinel). length >= Size() is a no-op.
func (l *Log) TruncateTo(length uint64) {
	if length >= l.Size() {
		return
	}
	if length < 1 {
		length = 1 // the sentinel at index 1 is never removed
	}
	l.entries = l.entries[:length]
}

// From returns entries at indices i..Size() inclusive. i must be >= 1.
// From(Size()+1) returns an empty slice.
func (l *Log) From(i uint64) []Entry {
	if i < 1 {
		panic("raftlog: From index must be >= 1")
	}
	if i > l.Size() {
		return nil
	}
	out := make([]Entry, l.Size()-i+1)
	copy(out, l.entries[i-1:])
	return out
}
