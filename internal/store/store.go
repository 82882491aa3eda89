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
	"errors"

	"visionboard/internal/domain"
)

// Store is the durable, ordered collection of board items. Implementations
// keep insertion order with the newest item first and generate the id and
// creation timestamp on Add.
//
// Backings: a JSON file (default), an embedded SQLite database, or a
// Postgres server for multi-device boards. All are single-writer; no
// cross-process coordination is provided.
type Store interface {
	// Add stores the item, filling ID and CreatedAt, and returns the stored copy.
	Add(ctx context.Context, item domain.BoardItem) (domain.BoardItem, error)
	// All returns items newest first. A corrupt or unavailable backing yields
	// an empty slice and a logged warning, not an error.
	All(ctx context.Context) ([]domain.BoardItem, error)
	// Remove deletes the item with the given id, reporting whether it existed.
	Remove(ctx context.Context, id string) (bool, error)
	// Clear removes all items.
	Clear(ctx context.Context) error
	// Count returns the number of stored items.
	Count(ctx context.Context) (int, error)
	Close() error
}

// ErrInvalidItem is returned when an item fails domain validation on Add.
var ErrInvalidItem = errors.New("invalid board item")
