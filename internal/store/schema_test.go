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
	"os"
	"path/filepath"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"visionboard/internal/domain"
)

func TestBoardFileConformsToSchema(t *testing.T) {
	root := t.TempDir()
	h, err := InitBoard(root)
	if err != nil {
		t.Fatalf("InitBoard error: %v", err)
	}
	st := NewFileStore(h)
	ctx := context.Background()
	if _, err := st.Add(ctx, domain.BoardItem{
		Kind:  domain.KindText,
		Title: "Run a marathon",
		Plan: &domain.VisionPlan{
			Statement:  "I will run a marathon next spring",
			Milestones: []string{"10k in March"},
			Actions:    []string{"Train three times a week"},
			Blockers:   []string{"Winter weather"},
		},
	}); err != nil {
		t.Fatalf("Add text item: %v", err)
	}
	if _, err := st.Add(ctx, domain.BoardItem{
		Kind:     domain.KindImage,
		Title:    "Finish line",
		Image:    &domain.ImageContent{ImageURL: "data:image/png;base64,aGk=", OriginalURL: "https://img.example/1.png"},
		StyleTag: "vivid",
	}); err != nil {
		t.Fatalf("Add image item: %v", err)
	}

	data, err := os.ReadFile(h.BoardPath)
	if err != nil {
		t.Fatalf("read board file: %v", err)
	}
	schemaPath := filepath.Join("..", "..", "docs", "board.schema.json")
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("board file does not conform to schema")
	}
}
