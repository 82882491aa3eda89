/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package genapi

import "sort"

// stylePhrases maps the user-facing style tag to the phrase appended to the
// image prompt.
var stylePhrases = map[string]string{
	"cartoon":     "in a colorful, whimsical cartoon style",
	"vivid":       "in a vibrant, high-contrast, photorealistic style",
	"oil":         "in a beautiful oil painting style with rich textures and artistic brushstrokes",
	"watercolor":  "in a soft, flowing watercolor painting style with gentle washes and transparency",
	"digital-art": "in a modern digital art style with clean lines and vibrant colors",
	"fantasy":     "in a magical fantasy art style with ethereal lighting and mystical elements",
	"minimalist":  "in a clean, minimalist style with simple shapes and limited color palette",
	"retro":       "in a vintage retro style with nostalgic colors and classic design elements",
}

// StylePhrase returns the prompt phrase for a style tag.
func StylePhrase(style string) (string, bool) {
	p, ok := stylePhrases[style]
	return p, ok
}

// Styles lists the known style tags, sorted for stable help output.
func Styles() []string {
	out := make([]string, 0, len(stylePhrases))
	for k := range stylePhrases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
