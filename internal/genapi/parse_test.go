/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package genapi

import (
	"reflect"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"padded", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripCodeFences(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParsePlanStrict(t *testing.T) {
	plan, strict := ParsePlan(`{"statement":"s","milestones":["m"],"actions":null,"blockers":["b1","b2"]}`)
	if !strict {
		t.Fatal("expected strict parse")
	}
	if plan.Statement != "s" {
		t.Fatalf("statement = %q", plan.Statement)
	}
	if plan.Actions == nil || len(plan.Actions) != 0 {
		t.Fatalf("null actions should become empty slice, got %#v", plan.Actions)
	}
	if !reflect.DeepEqual(plan.Blockers, []string{"b1", "b2"}) {
		t.Fatalf("blockers = %v", plan.Blockers)
	}
}

func TestParsePlanEmptyStatementFallsBack(t *testing.T) {
	_, strict := ParsePlan(`{"statement":"  ","milestones":[]}`)
	if strict {
		t.Fatal("blank statement must not count as strict")
	}
}

func TestFallbackPlanDefaults(t *testing.T) {
	plan := fallbackPlan("")
	if plan.Statement != "Vision statement not generated" {
		t.Fatalf("statement = %q", plan.Statement)
	}
	if len(plan.Milestones) != 1 || plan.Milestones[0] != "Milestone details not available" {
		t.Fatalf("milestones = %v", plan.Milestones)
	}
	if len(plan.Actions) != 1 || plan.Actions[0] != "Action steps not available" {
		t.Fatalf("actions = %v", plan.Actions)
	}
	if len(plan.Blockers) != 1 || plan.Blockers[0] != "Challenge details not available" {
		t.Fatalf("blockers = %v", plan.Blockers)
	}
}

func TestFallbackPlanCaps(t *testing.T) {
	content := "My goal is big\n1. one\n2. two\n3. three\n4. four\n5. five\nchallenge a\nchallenge b\nchallenge c\nchallenge d"
	plan := fallbackPlan(content)
	if plan.Statement != "My goal is big" {
		t.Fatalf("statement = %q", plan.Statement)
	}
	if len(plan.Milestones) != 4 {
		t.Fatalf("milestones capped at 4, got %d", len(plan.Milestones))
	}
	if plan.Milestones[0] != "one" {
		t.Fatalf("numbering prefix not stripped: %q", plan.Milestones[0])
	}
	if len(plan.Blockers) != 3 {
		t.Fatalf("blockers capped at 3, got %d", len(plan.Blockers))
	}
}

func TestStylesSortedAndComplete(t *testing.T) {
	styles := Styles()
	if len(styles) != 8 {
		t.Fatalf("want 8 styles, got %d", len(styles))
	}
	for i := 1; i < len(styles); i++ {
		if styles[i-1] >= styles[i] {
			t.Fatalf("styles not sorted: %v", styles)
		}
	}
	if _, ok := StylePhrase("fantasy"); !ok {
		t.Fatal("fantasy style missing")
	}
}
