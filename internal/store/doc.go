/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store persists vision board items and canvas layout snapshots.
//
// A board lives in a directory:
//
//	<root>/board.json    ordered item collection (schema-versioned envelope)
//	<root>/canvas.json   layout snapshot (items, canvas size, zoom, theme)
//	<root>/exports/      rendered PNG/PDF output
//	<root>/backups/      timestamped board.json backups and crash snapshots
//	<root>/.vb/          embedded SQLite database when that backing is used
//
// Three Store implementations share one contract: JSON file (default),
// embedded SQLite, and Postgres for boards shared across devices.
package store
