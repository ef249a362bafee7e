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

package raftlog

import "testing"

func TestNewLogHasSentinelOnly(t *testing.T) {
	l := New()
	if l.Size() != 1 {
		t.Fatalf("expected size 1, got %d", l.Size())
	}
	if l.Get(1).Term != 0 || l.Get(1).Op != nil {
		t.Fatalf("expected sentinel at index 1, got %+v", l.Get(1))
	}
}

func TestGetZeroReturnsVirtualSentinel(t *testing.T) {
	l := New()
	l.AppendOne(Entry{Term: 5})
	if got := l.Get(0).Term; got != 0 {
		t.Fatalf("expected Get(0).Term == 0, got %d", got)
	}
}

func TestAppendAndSize(t *testing.T) {
	l := New()
	l.AppendOne(Entry{Term: 1})
	l.AppendOne(Entry{Term: 1})
	if l.Size() != 3 {
		t.Fatalf("expected size 3, got %d", l.Size())
	}
	if l.LastTerm() != 1 {
		t.Fatalf("expected last term 1, got %d", l.LastTerm())
	}
}

func TestAppendMany(t *testing.T) {
	l := New()
	l.AppendMany([]Entry{{Term: 1}, {Term: 2}, {Term: 2}})
	if l.Size() != 4 {
		t.Fatalf("expected size 4, got %d", l.Size())
	}
	if l.Get(4).Term != 2 {
		t.Fatalf("expected term 2 at index 4, got %d", l.Get(4).Term)
	}
}

func TestTruncateTo(t *testing.T) {
	l := New()
	l.AppendMany([]Entry{{Term: 1}, {Term: 2}, {Term: 3}})
	l.TruncateTo(2)
	if l.Size() != 2 {
		t.Fatalf("expected size 2 after truncate, got %d", l.Size())
	}
	if l.LastTerm() != 1 {
		t.Fatalf("expected last term 1 after truncate, got %d", l.LastTerm())
	}
}

func TestTruncateToNoOpWhenLengthAtLeastSize(t *testing.T) {
	l := New()
	l.AppendMany([]Entry{{Term: 1}, {Term: 2}})
	l.TruncateTo(10)
	if l.Size() != 3 {
		t.Fatalf("expected truncate beyond size to be a no-op, got size %d", l.Size())
	}
}

func TestFromMiddle(t *testing.T) {
	l := New()
	l.AppendMany([]Entry{{Term: 1}, {Term: 2}, {Term: 3}})
	es := l.From(2)
	if len(es) != 3 {
		t.Fatalf("expected 3 entries from index 2, got %d", len(es))
	}
	if es[0].Term != 1 || es[2].Term != 3 {
		t.Fatalf("unexpected entries: %+v", es)
	}
}

func TestFromPastEndIsEmpty(t *testing.T) {
	l := New()
	l.AppendOne(Entry{Term: 1})
	es := l.From(l.Size() + 1)
	if len(es) != 0 {
		t.Fatalf("expected empty slice, got %d entries", len(es))
	}
}

func TestFromZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for From(0)")
		}
	}()
	New().From(0)
}
