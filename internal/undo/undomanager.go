/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot is a reversible canvas layout blob. Content is opaque to the
// manager; size is estimated as len(Blob). TS is when it was captured.
type Snapshot struct {
	Blob []byte
	TS   time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; oldest entries are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the number of snapshots kept (0 means unlimited).
	MaxDepth int
	// MinInterval coalesces snapshots captured within the interval,
	// replacing the previous one instead of pushing a new entry. Keeps a
	// drag gesture from flooding the stack.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack for the canvas layout.
// It is safe for concurrent use.
type Manager struct {
	cfg        Config
	mu         sync.Mutex
	undo       []Snapshot
	redo       []Snapshot
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 8 * 1024 * 1024 // 8 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg}
}

// Push records a snapshot. If within MinInterval of the previous snapshot it
// replaces it. Any push clears the redo stack.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.undo); n > 0 {
		last := m.undo[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			m.totalBytes += len(s.Blob) - len(last.Blob)
			m.undo[n-1] = s
			m.redo = nil
			m.enforceCapsLocked()
			return
		}
	}
	m.undo = append(m.undo, s)
	m.totalBytes += len(s.Blob)
	m.redo = nil
	m.enforceCapsLocked()
}

// Undo pops the newest snapshot, moving it to the redo stack.
func (m *Manager) Undo() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return Snapshot{}, false
	}
	s := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.totalBytes -= len(s.Blob)
	m.redo = append(m.redo, s)
	return s, true
}

// Redo re-applies the most recently undone snapshot.
func (m *Manager) Redo() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.redo) == 0 {
		return Snapshot{}, false
	}
	s := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, s)
	m.totalBytes += len(s.Blob)
	return s, true
}

// Depth returns the number of undoable snapshots.
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo)
}

// Clear drops all history.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo, m.redo, m.totalBytes = nil, nil, 0
}

func (m *Manager) enforceCapsLocked() {
	if m.cfg.MaxDepth > 0 {
		for len(m.undo) > m.cfg.MaxDepth {
			m.totalBytes -= len(m.undo[0].Blob)
			m.undo = m.undo[1:]
		}
	}
	for m.totalBytes > m.cfg.MaxBytes && len(m.undo) > 1 {
		m.totalBytes -= len(m.undo[0].Blob)
		m.undo = m.undo[1:]
	}
}
