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
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"visionboard/internal/domain"
	applog "visionboard/internal/log"

	// Postgres driver via database/sql
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps board items in a Postgres database so a board can be
// shared across devices. Schema is managed by the embedded migrations,
// applied in filename order at open time.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with the given DSN and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "pg_open")
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("postgres board store ready")
	return &PostgresStore{db: db}, nil
}

// applyMigrations runs each embedded migration at most once, tracked in
// schema_migrations by filename.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		var applied bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations(name) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, item domain.BoardItem) (domain.BoardItem, error) {
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
		`INSERT INTO board_items(id, kind, title, payload, style_tag, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, string(item.Kind), item.Title, payload, item.StyleTag, item.CreatedAt)
	if err != nil {
		return domain.BoardItem{}, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) All(ctx context.Context) ([]domain.BoardItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, title, payload, COALESCE(style_tag, ''), created_at
		 FROM board_items ORDER BY seq DESC`)
	if err != nil {
		applog.WithComponent("store").Warn("postgres read failed", slog.Any("err", err))
		return []domain.BoardItem{}, nil
	}
	defer func() { _ = rows.Close() }()
	var out []domain.BoardItem
	for rows.Next() {
		var (
			it      domain.BoardItem
			kind    string
			payload string
		)
		if err := rows.Scan(&it.ID, &kind, &it.Title, &payload, &it.StyleTag, &it.CreatedAt); err != nil {
			applog.WithComponent("store").Warn("postgres row scan failed", slog.Any("err", err))
			continue
		}
		it.Kind = domain.ItemKind(kind)
		if err := unmarshalPayload(&it, payload); err != nil {
			applog.WithComponent("store").Warn("postgres payload corrupt, skipping item",
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

func (s *PostgresStore) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM board_items WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM board_items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM board_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
