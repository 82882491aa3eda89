/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func snapAt(s string, ts time.Time) Snapshot { return Snapshot{Blob: []byte(s), TS: ts} }

func TestPushUndoRedo(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Push(snapAt("one", t0))
	m.Push(snapAt("two", t0.Add(time.Second)))
	if m.Depth() != 2 {
		t.Fatalf("depth = %d", m.Depth())
	}

	s, ok := m.Undo()
	if !ok || string(s.Blob) != "two" {
		t.Fatalf("undo: %q ok=%v", s.Blob, ok)
	}
	s, ok = m.Redo()
	if !ok || string(s.Blob) != "two" {
		t.Fatalf("redo: %q ok=%v", s.Blob, ok)
	}
	m.Undo()
	m.Undo()
	if _, ok := m.Undo(); ok {
		t.Fatal("undo on empty stack")
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Push(snapAt("one", t0))
	m.Push(snapAt("two", t0.Add(time.Second)))
	m.Undo()
	m.Push(snapAt("three", t0.Add(2*time.Second)))
	if _, ok := m.Redo(); ok {
		t.Fatal("redo must be cleared by a new push")
	}
}

func TestCoalescingWithinInterval(t *testing.T) {
	m := NewManager(Config{MinInterval: 100 * time.Millisecond})
	t0 := time.Now()
	m.Push(snapAt("a", t0))
	// within the interval: replaces instead of stacking
	m.Push(snapAt("b", t0.Add(50*time.Millisecond)))
	if m.Depth() != 1 {
		t.Fatalf("depth = %d, want coalesced 1", m.Depth())
	}
	s, _ := m.Undo()
	if string(s.Blob) != "b" {
		t.Fatalf("coalesced snapshot = %q", s.Blob)
	}
}

func TestDepthCap(t *testing.T) {
	m := NewManager(Config{MaxDepth: 3, MinInterval: time.Nanosecond})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		m.Push(snapAt("s", t0.Add(time.Duration(i)*time.Second)))
	}
	if m.Depth() != 3 {
		t.Fatalf("depth = %d, want 3", m.Depth())
	}
}

func TestByteCapPrunesOldest(t *testing.T) {
	m := NewManager(Config{MaxBytes: 10, MinInterval: time.Nanosecond})
	t0 := time.Now()
	m.Push(snapAt("aaaaaa", t0))
	m.Push(snapAt("bbbbbb", t0.Add(time.Second)))
	// 12 bytes total exceeds the cap; the oldest entry goes
	if m.Depth() != 1 {
		t.Fatalf("depth = %d", m.Depth())
	}
	s, _ := m.Undo()
	if string(s.Blob) != "bbbbbb" {
		t.Fatalf("kept %q, want newest", s.Blob)
	}
}

func TestClear(t *testing.T) {
	m := NewManager(Config{})
	m.Push(snapAt("a", time.Now()))
	m.Clear()
	if m.Depth() != 0 {
		t.Fatalf("depth after clear = %d", m.Depth())
	}
	if _, ok := m.Undo(); ok {
		t.Fatal("undo after clear")
	}
}
