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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"visionboard/internal/domain"
	applog "visionboard/internal/log"
	"visionboard/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	SQLiteFileName = "board.sqlite"

	// sqliteSchemaVersion tracks the embedded database layout.
	// Bump on breaking changes and add a migration below.
	sqliteSchemaVersion = 1
)

// SQLitePath returns the path of the board's embedded database file.
func SQLitePath(boardRoot string) string {
	return filepath.Join(boardRoot, IndexDirName, SQLiteFileName)
}

// SQLiteStore persists board items in an embedded SQLite database under the
// board's .vb directory. Same contract as FileStore; meant for boards large
// enough that rewriting a single JSON file on every mutation hurts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the board's embedded database, enables WAL
// mode, and ensures the meta/version tables and item schema exist.
func OpenSQLite(boardRoot string) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "sqlite_open").With(
		slog.String("root", boardRoot),
	)
	if strings.TrimSpace(boardRoot) == "" {
		return nil, errors.New("board root is required")
	}
	if err := os.MkdirAll(filepath.Join(boardRoot, IndexDirName), 0o755); err != nil {
		l.Error("create .vb dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .vb dir: %w", err)
	}

	path := SQLitePath(boardRoot)
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("board database ready", slog.String("path", path))
	return &SQLiteStore{db: db}, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id     INTEGER PRIMARY KEY CHECK(id=1),
			schema INTEGER NOT NULL,
			app    TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			kind       TEXT NOT NULL,
			title      TEXT NOT NULL,
			payload    TEXT NOT NULL,
			style_tag  TEXT,
			created_at TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO version(id, schema, app) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET schema=excluded.schema, app=excluded.app`,
		sqliteSchemaVersion, "visionboard "+version.Version)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Add(ctx context.Context, item domain.BoardItem) (domain.BoardItem, error) {
	item.ID = uuid.NewString()
	item.CreatedAt = time.Now().UTC()
	if err := item.Validate(); err != nil {
		return domain.BoardItem{}, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	payload, err := marshalPayload(item)
	if err != nil {
		return domain.BoardItem{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items(id, kind, title, payload, style_tag, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Kind), item.Title, payload, item.StyleTag,
		item.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return domain.BoardItem{}, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]domain.BoardItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, title, payload, style_tag, created_at FROM items ORDER BY seq DESC`)
	if err != nil {
		applog.WithComponent("store").Warn("sqlite read failed", slog.Any("err", err))
		return []domain.BoardItem{}, nil
	}
	defer func() { _ = rows.Close() }()
	var out []domain.BoardItem
	for rows.Next() {
		var (
			it       domain.BoardItem
			kind     string
			payload  string
			styleTag sql.NullString
			created  string
		)
		if err := rows.Scan(&it.ID, &kind, &it.Title, &payload, &styleTag, &created); err != nil {
			applog.WithComponent("store").Warn("sqlite row scan failed", slog.Any("err", err))
			continue
		}
		it.Kind = domain.ItemKind(kind)
		it.StyleTag = styleTag.String
		if ts, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			it.CreatedAt = ts
		}
		if err := unmarshalPayload(&it, payload); err != nil {
			applog.WithComponent("store").Warn("sqlite payload corrupt, skipping item",
				slog.String("id", it.ID), slog.Any("err", err))
			continue
		}
		out = append(out, it)
	}
	if out == nil {
		out = []domain.BoardItem{}
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// marshalPayload serializes the kind-specific payload union.
func marshalPayload(it domain.BoardItem) (string, error) {
	var v any
	switch it.Kind {
	case domain.KindText:
		v = it.Plan
	case domain.KindImage:
		v = it.Image
	default:
		return "", fmt.Errorf("unknown item kind %q", it.Kind)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(b), nil
}

func unmarshalPayload(it *domain.BoardItem, payload string) error {
	switch it.Kind {
	case domain.KindText:
		var p domain.VisionPlan
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return err
		}
		it.Plan = &p
	case domain.KindImage:
		var img domain.ImageContent
		if err := json.Unmarshal([]byte(payload), &img); err != nil {
			return err
		}
		it.Image = &img
	default:
		return fmt.Errorf("unknown item kind %q", it.Kind)
	}
	return nil
}
