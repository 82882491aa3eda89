/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas holds the freeform layout engine: positioned, sized,
// rotated, z-ordered items manipulated through pointer gestures. Exactly one
// gesture (drag or resize) is active at a time; the interaction state machine
// enforces that.
package canvas

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"visionboard/internal/domain"
	"visionboard/internal/geom"
)

// Corner names a resize handle.
type Corner string

const (
	CornerNW Corner = "nw"
	CornerNE Corner = "ne"
	CornerSW Corner = "sw"
	CornerSE Corner = "se"
)

type mode int

const (
	modeIdle mode = iota
	modeDragging
	modeResizing
)

// Engine owns the canvas layout and the active pointer gesture.
// Not safe for concurrent use; drive it from a single event loop.
type Engine struct {
	size  geom.Size
	zoom  float64
	theme domain.Theme
	items []domain.CanvasItem

	mode       mode
	activeID   string
	dragOffset geom.Pt
	resizeCnr  Corner
	resizeFrom geom.Rect

	rng *rand.Rand
}

// New creates an empty canvas of the given size.
func New(width, height float64, theme domain.Theme) *Engine {
	if theme == "" {
		theme = domain.ThemeMagical
	}
	return &Engine{
		size:  geom.Size{W: width, H: height},
		zoom:  1,
		theme: theme,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed fixes the random source used for item placement.
func (e *Engine) Seed(seed int64) { e.rng = rand.New(rand.NewSource(seed)) }

// Size returns the canvas dimensions.
func (e *Engine) Size() geom.Size { return e.size }

// Theme returns the background theme.
func (e *Engine) Theme() domain.Theme { return e.theme }

// SetTheme switches the background theme.
func (e *Engine) SetTheme(t domain.Theme) { e.theme = t }

// Len returns the number of items on the canvas.
func (e *Engine) Len() int { return len(e.items) }

// Item returns a copy of the item with the given id.
func (e *Engine) Item(id string) (domain.CanvasItem, bool) {
	if i := e.index(id); i >= 0 {
		return e.items[i], true
	}
	return domain.CanvasItem{}, false
}

// Items returns a copy of all items in insertion order.
func (e *Engine) Items() []domain.CanvasItem {
	out := make([]domain.CanvasItem, len(e.items))
	copy(out, e.items)
	return out
}

// ItemsByZ returns a copy of all items sorted by ascending z-index, the
// order they must be rendered in.
func (e *Engine) ItemsByZ() []domain.CanvasItem {
	out := e.Items()
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// PointerDown begins dragging the item under the pointer and brings it to
// the front. No-op unless the engine is idle.
func (e *Engine) PointerDown(id string, p geom.Pt) bool {
	if e.mode != modeIdle {
		return false
	}
	i := e.index(id)
	if i < 0 {
		return false
	}
	e.items[i].ZIndex = e.maxZ() + 1
	e.mode = modeDragging
	e.activeID = id
	e.dragOffset = geom.Pt{X: p.X - e.items[i].X, Y: p.Y - e.items[i].Y}
	return true
}

// PointerDownCorner begins resizing by the given handle, capturing the start
// rectangle so the opposite corner stays anchored. No-op unless idle.
func (e *Engine) PointerDownCorner(id string, corner Corner, p geom.Pt) bool {
	if e.mode != modeIdle {
		return false
	}
	i := e.index(id)
	if i < 0 {
		return false
	}
	switch corner {
	case CornerNW, CornerNE, CornerSW, CornerSE:
	default:
		return false
	}
	it := e.items[i]
	e.mode = modeResizing
	e.activeID = id
	e.resizeCnr = corner
	e.resizeFrom = geom.R(it.X, it.Y, it.Width, it.Height)
	e.dragOffset = p // pointer-down position; deltas are relative to it
	return true
}

// PointerMove advances the active gesture. Idle moves are ignored.
func (e *Engine) PointerMove(p geom.Pt) {
	switch e.mode {
	case modeDragging:
		e.moveActive(p)
	case modeResizing:
		e.resizeActive(p)
	}
}

// PointerUp ends the active gesture.
func (e *Engine) PointerUp() {
	e.mode = modeIdle
	e.activeID = ""
}

// PointerLeave is treated like PointerUp: leaving the canvas cancels the
// gesture, leaving the item wherever it was last placed.
func (e *Engine) PointerLeave() { e.PointerUp() }

// Dragging reports whether a drag or resize gesture is in progress.
func (e *Engine) Dragging() bool { return e.mode != modeIdle }

func (e *Engine) moveActive(p geom.Pt) {
	i := e.index(e.activeID)
	if i < 0 {
		e.PointerUp()
		return
	}
	it := &e.items[i]
	r := geom.R(p.X-e.dragOffset.X, p.Y-e.dragOffset.Y, it.Width, it.Height)
	r = geom.ClampInto(r, e.size)
	it.X, it.Y = r.X, r.Y
}

func (e *Engine) resizeActive(p geom.Pt) {
	i := e.index(e.activeID)
	if i < 0 {
		e.PointerUp()
		return
	}
	it := &e.items[i]
	dx := p.X - e.dragOffset.X
	dy := p.Y - e.dragOffset.Y
	start := e.resizeFrom

	var w, h float64
	switch e.resizeCnr {
	case CornerSE:
		w, h = start.W+dx, start.H+dy
	case CornerSW:
		w, h = start.W-dx, start.H+dy
	case CornerNE:
		w, h = start.W+dx, start.H-dy
	case CornerNW:
		w, h = start.W-dx, start.H-dy
	}
	w = geom.Clamp(w, domain.MinItemSize, domain.MaxItemSize)
	h = geom.Clamp(h, domain.MinItemSize, domain.MaxItemSize)

	// Compensate position on the axes whose origin moved so the opposite
	// corner stays fixed.
	x, y := start.X, start.Y
	switch e.resizeCnr {
	case CornerSW:
		x = start.X + (start.W - w)
	case CornerNE:
		y = start.Y + (start.H - h)
	case CornerNW:
		x = start.X + (start.W - w)
		y = start.Y + (start.H - h)
	}

	r := geom.ClampInto(geom.R(x, y, w, h), e.size)
	it.X, it.Y, it.Width, it.Height = r.X, r.Y, r.W, r.H
}

// Rotate adds (or subtracts) the fixed rotation step. The angle is additive
// and never normalized; rendering applies it modulo a full turn.
func (e *Engine) Rotate(id string, clockwise bool) bool {
	i := e.index(id)
	if i < 0 {
		return false
	}
	step := domain.RotationStepDegrees
	if !clockwise {
		step = -step
	}
	e.items[i].Rotation += step
	return true
}

// AddBoardItem places a persisted board item onto the canvas at a random
// position with a slight random tilt, above all current items.
func (e *Engine) AddBoardItem(item domain.BoardItem) domain.CanvasItem {
	w, h := domain.DefaultTextWidth, domain.DefaultTextHeight
	if item.Kind == domain.KindImage {
		w, h = domain.DefaultImageWidth, domain.DefaultImageHeight
	}
	ci := domain.CanvasItem{
		ID:       item.ID,
		Kind:     item.Kind,
		Title:    item.Title,
		Plan:     item.Plan,
		Image:    item.Image,
		StyleTag: item.StyleTag,
		Width:    w,
		Height:   h,
		Rotation: e.rng.Float64()*30 - 15,
		ZIndex:   e.maxZ() + 1,
	}
	e.place(&ci)
	e.items = append(e.items, ci)
	return ci
}

// AddCustomText places free text typed directly onto the canvas. Width grows
// with text length to roughly fit single-line content; this is a heuristic,
// not real measurement.
func (e *Engine) AddCustomText(text string, fontSize float64, fontColor, background domain.Color) (domain.CanvasItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.CanvasItem{}, fmt.Errorf("text must not be empty")
	}
	if fontSize <= 0 {
		fontSize = 24
	}
	w := math.Max(200, 12*float64(utf8.RuneCountInString(text)))
	w = geom.Clamp(w, domain.MinItemSize, domain.MaxItemSize)
	ci := domain.CanvasItem{
		ID:              fmt.Sprintf("text-%d", time.Now().UnixNano()),
		Kind:            domain.KindText,
		Title:           truncate(text, 30),
		CustomText:      text,
		FontSize:        fontSize,
		FontColor:       fontColor,
		BackgroundColor: background,
		Width:           w,
		Height:          domain.MinItemSize,
		Rotation:        e.rng.Float64()*20 - 10,
		ZIndex:          e.maxZ() + 1,
	}
	e.place(&ci)
	e.items = append(e.items, ci)
	return ci, nil
}

// UpdateText rewrites a text item's content, re-deriving width and title.
func (e *Engine) UpdateText(id, text string) bool {
	i := e.index(id)
	if i < 0 || e.items[i].Kind != domain.KindText {
		return false
	}
	it := &e.items[i]
	it.CustomText = text
	it.Title = truncate(text, 30)
	it.Width = geom.Clamp(math.Max(200, 12*float64(utf8.RuneCountInString(text))), domain.MinItemSize, domain.MaxItemSize)
	r := geom.ClampInto(geom.R(it.X, it.Y, it.Width, it.Height), e.size)
	it.X, it.Y = r.X, r.Y
	return true
}

// SetEditing toggles a text item's inline-editing flag.
func (e *Engine) SetEditing(id string, editing bool) bool {
	i := e.index(id)
	if i < 0 || e.items[i].Kind != domain.KindText {
		return false
	}
	e.items[i].IsEditing = editing
	return true
}

// Delete removes the item from the layout. Deleting from the canvas never
// touches the item store.
func (e *Engine) Delete(id string) bool {
	i := e.index(id)
	if i < 0 {
		return false
	}
	if e.activeID == id {
		e.PointerUp()
	}
	e.items = append(e.items[:i], e.items[i+1:]...)
	return true
}

// State captures the layout as a persistable snapshot.
func (e *Engine) State() domain.CanvasState {
	return domain.CanvasState{
		Items:  e.Items(),
		Width:  e.size.W,
		Height: e.size.H,
		Zoom:   e.zoom,
		Theme:  e.theme,
	}
}

// LoadState replaces the layout with a snapshot. Items referencing board
// entries that no longer exist are kept; the layout is the user's
// arrangement, not a view of the store.
func (e *Engine) LoadState(state domain.CanvasState) {
	if state.Width > 0 && state.Height > 0 {
		e.size = geom.Size{W: state.Width, H: state.Height}
	}
	if state.Zoom > 0 {
		e.zoom = state.Zoom
	}
	if state.Theme != "" {
		e.theme = state.Theme
	}
	e.items = make([]domain.CanvasItem, len(state.Items))
	copy(e.items, state.Items)
	e.PointerUp()
}

// place assigns a random position fully inside the canvas. Small canvases
// pin the item to the origin rather than going negative.
func (e *Engine) place(ci *domain.CanvasItem) {
	maxX := math.Max(0, e.size.W-ci.Width)
	maxY := math.Max(0, e.size.H-ci.Height)
	ci.X = e.rng.Float64() * maxX
	ci.Y = e.rng.Float64() * maxY
}

func (e *Engine) index(id string) int {
	for i := range e.items {
		if e.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) maxZ() int {
	z := 0
	for i := range e.items {
		if e.items[i].ZIndex > z {
			z = e.items[i].ZIndex
		}
	}
	return z
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
