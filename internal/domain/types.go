/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the vision board: persisted
// board items (plans and generated images), the ephemeral canvas layout
// derived from them, and shared rendering primitives.

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ItemKind discriminates the closed set of board item payloads.
type ItemKind string

const (
	KindText  ItemKind = "text"
	KindImage ItemKind = "image"
)

// VisionPlan is the structured plan produced for a wish.
type VisionPlan struct {
	Statement  string   `json:"statement"`
	Milestones []string `json:"milestones"`
	Actions    []string `json:"actions"`
	Blockers   []string `json:"blockers"`
}

// ImageContent holds a generated image reference. ImageURL may be a data URI
// or a remote URL; OriginalURL keeps the provider URL when the image was
// re-encoded locally.
type ImageContent struct {
	ImageURL    string `json:"imageUrl"`
	OriginalURL string `json:"originalUrl,omitempty"`
}

// BoardItem is a persisted vision board entry. Exactly one of Plan or Image
// is set, keyed by Kind.
type BoardItem struct {
	ID        string        `json:"id"`
	Kind      ItemKind      `json:"kind"`
	Title     string        `json:"title"`
	Plan      *VisionPlan   `json:"plan,omitempty"`
	Image     *ImageContent `json:"image,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	StyleTag  string        `json:"styleTag,omitempty"`
}

// Validate checks the kind/payload pairing. The payload union is closed: a
// text item carries a plan, an image item carries image content, never both.
func (b BoardItem) Validate() error {
	switch b.Kind {
	case KindText:
		if b.Plan == nil {
			return errors.New("text item requires a plan payload")
		}
		if b.Image != nil {
			return errors.New("text item must not carry image content")
		}
	case KindImage:
		if b.Image == nil || strings.TrimSpace(b.Image.ImageURL) == "" {
			return errors.New("image item requires an image URL")
		}
		if b.Plan != nil {
			return errors.New("image item must not carry a plan")
		}
	default:
		return fmt.Errorf("unknown item kind %q", b.Kind)
	}
	return nil
}

// TitleLimit is the display length cap applied when deriving a board item
// title from a plan statement.
const TitleLimit = 50

// TitleFromStatement derives a list title from a vision statement, truncating
// to TitleLimit runes with a trailing ellipsis.
func TitleFromStatement(statement string) string {
	s := strings.TrimSpace(statement)
	if utf8.RuneCountInString(s) <= TitleLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:TitleLimit]) + "…"
}

// Theme selects the canvas background treatment.
type Theme string

const (
	ThemeLight   Theme = "light"
	ThemeDark    Theme = "dark"
	ThemeMagical Theme = "magical"
)

// Canvas layout constraints shared by the engine, the exporters and the UI.
const (
	MinItemSize = 100.0
	MaxItemSize = 500.0

	DefaultImageWidth  = 200.0
	DefaultImageHeight = 200.0
	DefaultTextWidth   = 280.0
	DefaultTextHeight  = 150.0

	RotationStepDegrees = 15.0
)

// CanvasItem is the ephemeral, positioned form of a board item (or of custom
// text typed directly onto the canvas). Width/Height are clamped to
// [MinItemSize, MaxItemSize]; X/Y keep the bounding box inside the canvas.
type CanvasItem struct {
	ID       string        `json:"id"`
	Kind     ItemKind      `json:"kind"`
	Title    string        `json:"title"`
	Plan     *VisionPlan   `json:"plan,omitempty"`
	Image    *ImageContent `json:"image,omitempty"`
	StyleTag string        `json:"styleTag,omitempty"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"` // degrees, additive, not normalized
	ZIndex   int     `json:"zIndex"`

	IsEditing       bool    `json:"isEditing,omitempty"`
	CustomText      string  `json:"customText,omitempty"`
	FontSize        float64 `json:"fontSize,omitempty"`
	FontColor       Color   `json:"fontColor,omitempty"`
	BackgroundColor Color   `json:"backgroundColor,omitempty"`
}

// DisplayText returns the text rendered for a text item: custom text when
// present, else the plan statement, else the title.
func (c CanvasItem) DisplayText() string {
	if strings.TrimSpace(c.CustomText) != "" {
		return c.CustomText
	}
	if c.Plan != nil && strings.TrimSpace(c.Plan.Statement) != "" {
		return c.Plan.Statement
	}
	if c.Title != "" {
		return c.Title
	}
	return "Text"
}

// CanvasState is the persisted layout snapshot.
type CanvasState struct {
	SchemaVersion int          `json:"schemaVersion"`
	Items         []CanvasItem `json:"items"`
	Width         float64      `json:"canvasWidth"`
	Height        float64      `json:"canvasHeight"`
	Zoom          float64      `json:"zoom"`
	Theme         Theme        `json:"theme"`
}

// Color is an RGBA color; the zero value means "unset/transparent".
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// IsZero reports whether the color is unset.
func (c Color) IsZero() bool { return c == Color{} }

// ParseHexColor parses #RGB and #RRGGBB notations into an opaque Color.
func ParseHexColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return Color{}, fmt.Errorf("hex color must start with #: %q", s)
	}
	hex := s[1:]
	parse := func(str string) (uint8, error) {
		var v uint64
		_, err := fmt.Sscanf(str, "%02x", &v)
		if err != nil {
			return 0, err
		}
		return uint8(v), nil
	}
	switch len(hex) {
	case 3:
		var out Color
		dup := func(b byte) string { return string([]byte{b, b}) }
		r, err := parse(dup(hex[0]))
		if err != nil {
			return Color{}, fmt.Errorf("parse hex color %q: %w", s, err)
		}
		g, err := parse(dup(hex[1]))
		if err != nil {
			return Color{}, fmt.Errorf("parse hex color %q: %w", s, err)
		}
		b, err := parse(dup(hex[2]))
		if err != nil {
			return Color{}, fmt.Errorf("parse hex color %q: %w", s, err)
		}
		out = Color{R: r, G: g, B: b, A: 255}
		return out, nil
	case 6:
		r, err := parse(hex[0:2])
		if err != nil {
			return Color{}, fmt.Errorf("parse hex color %q: %w", s, err)
		}
		g, err := parse(hex[2:4])
		if err != nil {
			return Color{}, fmt.Errorf("parse hex color %q: %w", s, err)
		}
		b, err := parse(hex[4:6])
		if err != nil {
			return Color{}, fmt.Errorf("parse hex color %q: %w", s, err)
		}
		return Color{R: r, G: g, B: b, A: 255}, nil
	default:
		return Color{}, fmt.Errorf("hex color must be #RGB or #RRGGBB: %q", s)
	}
}
