/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"visionboard/internal/domain"
	applog "visionboard/internal/log"
)

const (
	BoardFileName   = "board.json"
	CanvasFileName  = "canvas.json"
	BackupsDirName  = "backups"
	ExportsDirName  = "exports"
	IndexDirName    = ".vb"
	boardSchemaVers = 1
)

// Standard subfolders scaffolded for a board directory.
var standardSubDirs = []string{
	ExportsDirName,
	BackupsDirName,
	IndexDirName,
}

// boardEnvelope is the on-disk shape of board.json. The schema version field
// exists so future layouts can migrate old files.
type boardEnvelope struct {
	SchemaVersion int                `json:"schemaVersion"`
	Items         []domain.BoardItem `json:"items"`
}

// BoardHandle tracks a board directory on disk.
type BoardHandle struct {
	Root      string
	BoardPath string
}

// ExportsDir returns the exports subfolder of the board directory.
func (h *BoardHandle) ExportsDir() string { return filepath.Join(h.Root, ExportsDirName) }

// FileStore persists board items as a single JSON envelope, read and written
// wholesale on every operation. Mirrors the single-key browser-storage model
// the board originally used, with atomic replace and timestamped backups.
type FileStore struct {
	h  *BoardHandle
	mu sync.Mutex
}

// InitBoard creates a board directory at root (creating it if needed),
// scaffolds the standard subfolders, and writes an empty board file unless
// one already exists.
func InitBoard(root string) (*BoardHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create board root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	h := &BoardHandle{Root: root, BoardPath: filepath.Join(root, BoardFileName)}
	if _, err := os.Stat(h.BoardPath); errors.Is(err, os.ErrNotExist) {
		if err := writeEnvelope(h, boardEnvelope{SchemaVersion: boardSchemaVers, Items: []domain.BoardItem{}}); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// OpenBoard opens an existing board directory.
func OpenBoard(root string) (*BoardHandle, error) {
	p := filepath.Join(root, BoardFileName)
	if _, err := os.Stat(p); err != nil {
		return nil, fmt.Errorf("open board: %w", err)
	}
	return &BoardHandle{Root: root, BoardPath: p}, nil
}

// NewFileStore returns a Store backed by the handle's board.json.
func NewFileStore(h *BoardHandle) *FileStore { return &FileStore{h: h} }

func (s *FileStore) Add(_ context.Context, item domain.BoardItem) (domain.BoardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uuid.NewString()
	item.CreatedAt = time.Now().UTC()
	if err := item.Validate(); err != nil {
		return domain.BoardItem{}, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	env := s.loadSoft()
	// newest first
	env.Items = append([]domain.BoardItem{item}, env.Items...)
	if err := writeEnvelope(s.h, env); err != nil {
		return domain.BoardItem{}, err
	}
	return item, nil
}

func (s *FileStore) All(_ context.Context) ([]domain.BoardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env := s.loadSoft()
	out := make([]domain.BoardItem, len(env.Items))
	copy(out, env.Items)
	return out, nil
}

func (s *FileStore) Remove(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env := s.loadSoft()
	kept := env.Items[:0]
	removed := false
	for _, it := range env.Items {
		if it.ID == id {
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	if !removed {
		return false, nil
	}
	env.Items = kept
	if err := writeEnvelope(s.h, env); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeEnvelope(s.h, boardEnvelope{SchemaVersion: boardSchemaVers, Items: []domain.BoardItem{}})
}

func (s *FileStore) Count(ctx context.Context) (int, error) {
	items, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *FileStore) Close() error { return nil }

// loadSoft reads the envelope, falling back to the latest backup on parse
// failure and to an empty board when nothing is readable. Failures are
// logged, never surfaced; a corrupt store must not take the app down.
func (s *FileStore) loadSoft() boardEnvelope {
	l := applog.WithOperation(applog.WithComponent("store"), "load").With(slog.String("path", s.h.BoardPath))
	b, err := os.ReadFile(s.h.BoardPath)
	if err == nil {
		var env boardEnvelope
		uerr := json.Unmarshal(b, &env)
		if uerr == nil {
			return env
		}
		l.Warn("board file corrupt, trying latest backup", slog.Any("err", uerr))
	} else if !errors.Is(err, os.ErrNotExist) {
		l.Warn("board file unreadable, trying latest backup", slog.Any("err", err))
	}
	if env, berr := loadFromLatestBackup(s.h.Root); berr == nil {
		return env
	} else if !errors.Is(berr, os.ErrNotExist) {
		l.Warn("backup recovery failed", slog.Any("err", berr))
	}
	return boardEnvelope{SchemaVersion: boardSchemaVers, Items: []domain.BoardItem{}}
}

// writeEnvelope saves the board file with transactional semantics and a
// timestamped backup of the previous content (if present).
func writeEnvelope(h *BoardHandle, env boardEnvelope) error {
	if h == nil || h.Root == "" || h.BoardPath == "" {
		return errors.New("invalid board handle")
	}
	env.SchemaVersion = boardSchemaVers
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.BoardPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000000000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", BoardFileName, stamp))
		if cerr := copyFile(h.BoardPath, bpath); cerr != nil {
			return fmt.Errorf("backup current board: %w", cerr)
		}
	}

	// Transactional write: temp file in the same directory, then rename over target.
	dir := filepath.Dir(h.BoardPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", BoardFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp board: %w", werr)
	}
	// On Windows, replace by removing destination first if needed.
	if _, err := os.Stat(h.BoardPath); err == nil {
		_ = os.Remove(h.BoardPath)
	}
	if rerr := os.Rename(temp, h.BoardPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace board: %w", rerr)
	}
	return nil
}

// writeFileSync writes data to a file and ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

// loadFromLatestBackup parses the newest timestamped backup.
func loadFromLatestBackup(root string) (boardEnvelope, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return boardEnvelope{}, err
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, BoardFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return boardEnvelope{}, os.ErrNotExist
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return boardEnvelope{}, fmt.Errorf("read latest backup: %w", err)
	}
	var env boardEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return boardEnvelope{}, fmt.Errorf("parse latest backup: %w", err)
	}
	return env, nil
}
