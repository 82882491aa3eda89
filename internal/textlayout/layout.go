/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout isolates text measurement and line breaking behind
// deterministic interfaces so the exporters and the UI agree on wrapping.
package textlayout

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// LineHeightFactor is the fixed multiplier applied to the font size when
// stacking wrapped lines.
const LineHeightFactor = 1.4

// FontSpec describes a requested font.
type FontSpec struct {
	SizePt float64
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, error)
}

// BasicProvider uses x/image/basicfont Face7x13 regardless of size, for
// deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, error) { return basicfont.Face7x13, nil }

// OpenTypeProvider resolves faces from the embedded Go Regular font at the
// requested size. Faces are cached per size.
type OpenTypeProvider struct {
	once  sync.Once
	fnt   *sfnt.Font
	err   error
	mu    sync.Mutex
	faces map[float64]font.Face
}

func NewOpenType() *OpenTypeProvider { return &OpenTypeProvider{faces: map[float64]font.Face{}} }

func (p *OpenTypeProvider) Resolve(spec FontSpec) (font.Face, error) {
	p.once.Do(func() {
		p.fnt, p.err = opentype.Parse(goregular.TTF)
	})
	if p.err != nil {
		return nil, fmt.Errorf("parse embedded font: %w", p.err)
	}
	size := spec.SizePt
	if size <= 0 {
		size = 24
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(p.fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face at %gpt: %w", size, err)
	}
	p.faces[size] = f
	return f, nil
}

// MeasureString returns the advance width of s in pixels for the face.
func MeasureString(face font.Face, s string) float64 {
	d := &font.Drawer{Face: face}
	return float64(d.MeasureString(s)) / 64
}

// Wrap breaks text into lines that measure at most maxWidth, accumulating
// whole words greedily. A single word wider than maxWidth gets its own line
// rather than being split. Explicit newlines force breaks.
func Wrap(face font.Face, text string, maxWidth float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		current := ""
		for _, word := range words {
			test := word
			if current != "" {
				test = current + " " + word
			}
			if MeasureString(face, test) > maxWidth && current != "" {
				lines = append(lines, current)
				current = word
				continue
			}
			current = test
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}
