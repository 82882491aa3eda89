/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"visionboard/internal/domain"
)

const canvasSchemaVers = 1

// SaveCanvasState writes the layout snapshot next to the board file with the
// same transactional semantics (temp file + rename). No backup chain is kept;
// the layout is cheap to rebuild and the undo manager covers in-session
// history.
func SaveCanvasState(h *BoardHandle, state domain.CanvasState) error {
	if h == nil || h.Root == "" {
		return errors.New("invalid board handle")
	}
	state.SchemaVersion = canvasSchemaVers
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal canvas state: %w", err)
	}
	data = append(data, '\n')
	path := filepath.Join(h.Root, CanvasFileName)
	temp := path + fmt.Sprintf(".tmp-%d", os.Getpid())
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp canvas state: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace canvas state: %w", err)
	}
	return nil
}

// LoadCanvasState reads the layout snapshot. ok is false when no snapshot
// exists yet. Items referencing board entries that were since removed are
// kept as-is; pruning them is the caller's decision.
func LoadCanvasState(h *BoardHandle) (state domain.CanvasState, ok bool, err error) {
	if h == nil || h.Root == "" {
		return domain.CanvasState{}, false, errors.New("invalid board handle")
	}
	path := filepath.Join(h.Root, CanvasFileName)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.CanvasState{}, false, nil
	}
	if err != nil {
		return domain.CanvasState{}, false, fmt.Errorf("read canvas state: %w", err)
	}
	if err := json.Unmarshal(b, &state); err != nil {
		return domain.CanvasState{}, false, fmt.Errorf("parse canvas state: %w", err)
	}
	return state, true, nil
}

// AutosaveCrashSnapshot copies the last persisted canvas layout into the
// backups folder so a panic never loses it. Returns the written path, or ""
// when no layout snapshot exists yet.
func AutosaveCrashSnapshot(h *BoardHandle) (string, error) {
	if h == nil || h.Root == "" {
		return "", errors.New("invalid board handle")
	}
	src := filepath.Join(h.Root, CanvasFileName)
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	stamp := time.Now().Format("20060102-150405")
	dst := filepath.Join(h.Root, BackupsDirName, fmt.Sprintf("canvas-autosave-%s.json", stamp))
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("autosave canvas snapshot: %w", err)
	}
	return dst, nil
}
