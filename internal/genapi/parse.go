/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package genapi

import (
	"bufio"
	"encoding/json"
	"regexp"
	"strings"

	"visionboard/internal/domain"
)

var reNumbered = regexp.MustCompile(`^\d+\.\s*`)

// StripCodeFences removes a surrounding ```json ... ``` (or bare ```) block.
// Models wrap JSON in fences despite being told not to.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// ParsePlan parses the model's answer into a VisionPlan. strict reports
// whether the answer was valid JSON with a usable statement; when it is not,
// the plan comes from line-scanning heuristics and is best effort.
func ParsePlan(content string) (plan domain.VisionPlan, strict bool) {
	clean := StripCodeFences(content)
	var parsed struct {
		Statement  string   `json:"statement"`
		Milestones []string `json:"milestones"`
		Actions    []string `json:"actions"`
		Blockers   []string `json:"blockers"`
	}
	if err := json.Unmarshal([]byte(clean), &parsed); err == nil && strings.TrimSpace(parsed.Statement) != "" {
		return domain.VisionPlan{
			Statement:  parsed.Statement,
			Milestones: nonNil(parsed.Milestones),
			Actions:    nonNil(parsed.Actions),
			Blockers:   nonNil(parsed.Blockers),
		}, true
	}
	return fallbackPlan(content), false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// fallbackPlan reconstructs a best-effort plan from free text by keyword
// scanning: milestone-ish lines (or plain numbered lines), action/step lines,
// and blocker/challenge lines.
func fallbackPlan(content string) domain.VisionPlan {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		if t := strings.TrimSpace(sc.Text()); t != "" {
			lines = append(lines, t)
		}
	}

	contains := func(line string, words ...string) bool {
		low := strings.ToLower(line)
		for _, w := range words {
			if strings.Contains(low, w) {
				return true
			}
		}
		return false
	}
	pick := func(max int, match func(string) bool) []string {
		var out []string
		for _, line := range lines {
			if len(out) >= max {
				break
			}
			if match(line) {
				out = append(out, reNumbered.ReplaceAllString(line, ""))
			}
		}
		return out
	}

	statement := ""
	for _, line := range lines {
		if contains(line, "vision", "goal", "wish") {
			statement = line
			break
		}
	}
	if statement == "" && len(lines) > 0 {
		statement = lines[0]
	}
	if statement == "" {
		statement = "Vision statement not generated"
	}

	milestones := pick(4, func(l string) bool {
		return contains(l, "milestone") || reNumbered.MatchString(l)
	})
	actions := pick(4, func(l string) bool {
		return contains(l, "action", "step")
	})
	blockers := pick(3, func(l string) bool {
		return contains(l, "blocker", "challenge")
	})

	if len(milestones) == 0 {
		milestones = []string{"Milestone details not available"}
	}
	if len(actions) == 0 {
		actions = []string{"Action steps not available"}
	}
	if len(blockers) == 0 {
		blockers = []string{"Challenge details not available"}
	}
	return domain.VisionPlan{
		Statement:  statement,
		Milestones: milestones,
		Actions:    actions,
		Blockers:   blockers,
	}
}
