/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders the canvas layout to PNG and PDF files.
package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"visionboard/internal/domain"
	"visionboard/internal/geom"
	vblog "visionboard/internal/log"
	"visionboard/internal/textlayout"
)

// Item visuals shared between the PNG and PDF renderers.
const (
	textPaddingPx   = 10.0 // wrap width is item width minus 2x this
	cornerRadiusPx  = 8.0
	shadowOffsetPx  = 4.0
	defaultFontSize = 16.0
)

// PNGOptions configures a PNG render.
type PNGOptions struct {
	// Scale multiplies the output resolution (1 = canvas pixels, 2 = retina).
	Scale int
	// ImageTimeout bounds each remote image fetch; zero means
	// DefaultImageTimeout.
	ImageTimeout time.Duration
	// Fonts supplies faces for text rendering; nil means the embedded
	// Go Regular font.
	Fonts textlayout.Provider
	// Loader overrides image loading; nil builds one from ImageTimeout.
	Loader *ImageLoader
}

func (o PNGOptions) scale() float64 {
	if o.Scale < 1 {
		return 1
	}
	return float64(o.Scale)
}

func (o PNGOptions) fonts() textlayout.Provider {
	if o.Fonts != nil {
		return o.Fonts
	}
	return textlayout.NewOpenType()
}

// RenderPNG rasterizes the canvas state: theme background, then every item in
// ascending z-order, each rotated about its own center.
func RenderPNG(ctx context.Context, state domain.CanvasState, opts PNGOptions) (*image.RGBA, error) {
	s := opts.scale()
	w, h := int(math.Round(state.Width*s)), int(math.Round(state.Height*s))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: canvas size %gx%g is empty", state.Width, state.Height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	fillBackground(dst, state.Theme)

	loader := opts.Loader
	if loader == nil {
		loader = &ImageLoader{Timeout: opts.ImageTimeout}
	}
	images := loader.LoadAll(ctx, state.Items)

	items := make([]domain.CanvasItem, len(state.Items))
	copy(items, state.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ZIndex < items[j].ZIndex })

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tile, err := renderTile(it, images[it.ID], s, opts.fonts(), state.Theme)
		if err != nil {
			return nil, fmt.Errorf("render item %s: %w", it.ID, err)
		}
		compositeRotated(dst, tile, it, s)
	}
	return dst, nil
}

// ExportPNG renders the state and writes it under dir using the dated
// default file name. It returns the written path.
func ExportPNG(ctx context.Context, dir string, state domain.CanvasState, opts PNGOptions) (string, error) {
	log := vblog.WithComponent("export")
	img, err := RenderPNG(ctx, state, opts)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, DefaultPNGName(time.Now()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("flush export file: %w", err)
	}
	log.Info("canvas exported", "path", path, "items", len(state.Items), "scale", opts.scale())
	return path, nil
}

// DefaultPNGName names exports by date, e.g. vision-board-2026-08-29.png.
func DefaultPNGName(t time.Time) string {
	return fmt.Sprintf("vision-board-%s.png", t.Format("2006-01-02"))
}

// renderTile draws a single item into its own unrotated buffer at scale s.
func renderTile(it domain.CanvasItem, img image.Image, s float64, fonts textlayout.Provider, theme domain.Theme) (*image.RGBA, error) {
	tw, th := int(math.Round(it.Width*s)), int(math.Round(it.Height*s))
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	tile := image.NewRGBA(image.Rect(0, 0, tw, th))
	switch it.Kind {
	case domain.KindImage:
		if img != nil {
			drawImageTile(tile, img, s)
		} else {
			if err := drawPlaceholderTile(tile, it, s, fonts); err != nil {
				return nil, err
			}
		}
	default:
		if err := drawTextTile(tile, it, s, fonts, theme); err != nil {
			return nil, err
		}
	}
	return tile, nil
}

// compositeRotated draws the tile into dst rotated about the item center.
// The affine matrix maps tile coordinates to destination coordinates; with a
// y-down origin a positive angle turns clockwise, matching the canvas.
func compositeRotated(dst *image.RGBA, tile *image.RGBA, it domain.CanvasItem, s float64) {
	tw := float64(tile.Bounds().Dx())
	th := float64(tile.Bounds().Dy())
	cx := (it.X + it.Width/2) * s
	cy := (it.Y + it.Height/2) * s
	rad := geom.Radians(it.Rotation)
	sin, cos := math.Sincos(rad)
	m := f64.Aff3{
		cos, -sin, cx - cos*tw/2 + sin*th/2,
		sin, cos, cy - sin*tw/2 - cos*th/2,
	}
	xdraw.BiLinear.Transform(dst, m, tile, tile.Bounds(), xdraw.Over, nil)
}

// fillBackground paints the theme background. The magical theme is a diagonal
// three-stop gradient; light and dark are flat fills.
func fillBackground(dst *image.RGBA, theme domain.Theme) {
	b := dst.Bounds()
	switch theme {
	case domain.ThemeDark:
		fillRect(dst, b, color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff})
	case domain.ThemeLight:
		fillRect(dst, b, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	default:
		stops := []color.NRGBA{
			{R: 0xf0, G: 0xf4, B: 0xff, A: 0xff},
			{R: 0xfd, G: 0xf2, B: 0xf8, A: 0xff},
			{R: 0xf0, G: 0xf9, B: 0xff, A: 0xff},
		}
		span := float64(b.Dx() + b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				t := float64(x-b.Min.X+y-b.Min.Y) / span
				dst.SetRGBA(x, y, lerpGradient(stops, t))
			}
		}
	}
}

func lerpGradient(stops []color.NRGBA, t float64) color.RGBA {
	t = geom.Clamp(t, 0, 1) * float64(len(stops)-1)
	i := int(t)
	if i >= len(stops)-1 {
		c := stops[len(stops)-1]
		return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
	}
	f := t - float64(i)
	a, b := stops[i], stops[i+1]
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*f) }
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 0xff}
}

func fillRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	xdraw.Draw(dst, r, image.NewUniform(c), image.Point{}, xdraw.Src)
}

// roundedMask builds an alpha mask for a rounded rectangle of the given size.
func roundedMask(w, h int, radius float64) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	fw, fh := float64(w), float64(h)
	r := math.Min(radius, math.Min(fw, fh)/2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			// Distance from the nearest corner circle center, if inside a
			// corner square.
			cx := geom.Clamp(fx, r, fw-r)
			cy := geom.Clamp(fy, r, fh-r)
			dx, dy := fx-cx, fy-cy
			if dx*dx+dy*dy <= r*r {
				mask.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}
	return mask
}

// drawImageTile scales the loaded image into the tile behind a soft shadow,
// clipped to rounded corners.
func drawImageTile(tile *image.RGBA, img image.Image, s float64) {
	b := tile.Bounds()
	radius := cornerRadiusPx * s
	off := int(math.Round(shadowOffsetPx * s))

	inner := image.Rect(b.Min.X, b.Min.Y, b.Max.X-off, b.Max.Y-off)
	mask := roundedMask(inner.Dx(), inner.Dy(), radius)

	shadowRect := inner.Add(image.Pt(off, off))
	xdraw.DrawMask(tile, shadowRect, image.NewUniform(color.NRGBA{A: 0x40}), image.Point{}, mask, image.Point{}, xdraw.Over)

	scaled := image.NewRGBA(image.Rect(0, 0, inner.Dx(), inner.Dy()))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	xdraw.DrawMask(tile, inner, scaled, image.Point{}, mask, image.Point{}, xdraw.Over)
}

// drawPlaceholderTile renders the "image not available" tile: a flat light
// fill, a dashed border and the truncated item title.
func drawPlaceholderTile(tile *image.RGBA, it domain.CanvasItem, s float64, fonts textlayout.Provider) error {
	b := tile.Bounds()
	fillRect(tile, b, color.NRGBA{R: 0xf3, G: 0xf4, B: 0xf6, A: 0xff})
	drawDashedBorder(tile, color.NRGBA{R: 0xd1, G: 0xd5, B: 0xdb, A: 0xff}, int(math.Round(2*s)), int(math.Round(6*s)))

	face, err := fonts.Resolve(textlayout.FontSpec{SizePt: 13 * s})
	if err != nil {
		return err
	}
	gray := color.NRGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
	lines := []string{"Image Not Available"}
	if it.Title != "" {
		lines = append(lines, textlayout.Wrap(face, it.Title, float64(b.Dx())-2*textPaddingPx*s)...)
	}
	if len(lines) > 3 {
		lines = lines[:3]
	}
	drawCenteredLines(tile, face, lines, gray, 13*s)
	return nil
}

// drawDashedBorder strokes the tile edge with dash segments.
func drawDashedBorder(tile *image.RGBA, c color.Color, thickness, dash int) {
	if thickness < 1 {
		thickness = 1
	}
	if dash < 2 {
		dash = 2
	}
	b := tile.Bounds()
	on := func(v int) bool { return (v/dash)%2 == 0 }
	for x := b.Min.X; x < b.Max.X; x++ {
		if !on(x) {
			continue
		}
		for t := 0; t < thickness; t++ {
			tile.Set(x, b.Min.Y+t, c)
			tile.Set(x, b.Max.Y-1-t, c)
		}
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		if !on(y) {
			continue
		}
		for t := 0; t < thickness; t++ {
			tile.Set(b.Min.X+t, y, c)
			tile.Set(b.Max.X-1-t, y, c)
		}
	}
}

// drawTextTile renders a text item: optional rounded background fill, then
// the display text word-wrapped and centered.
func drawTextTile(tile *image.RGBA, it domain.CanvasItem, s float64, fonts textlayout.Provider, theme domain.Theme) error {
	b := tile.Bounds()
	if !it.BackgroundColor.IsZero() {
		bg := it.BackgroundColor
		mask := roundedMask(b.Dx(), b.Dy(), cornerRadiusPx*s)
		xdraw.DrawMask(tile, b, image.NewUniform(color.NRGBA{R: bg.R, G: bg.G, B: bg.B, A: bg.A}), image.Point{}, mask, image.Point{}, xdraw.Over)
	}

	size := it.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	face, err := fonts.Resolve(textlayout.FontSpec{SizePt: size * s})
	if err != nil {
		return err
	}

	fc := it.FontColor
	var col color.NRGBA
	switch {
	case !fc.IsZero():
		col = color.NRGBA{R: fc.R, G: fc.G, B: fc.B, A: fc.A}
	case theme == domain.ThemeDark && it.BackgroundColor.IsZero():
		col = color.NRGBA{R: 0xf9, G: 0xfa, B: 0xfb, A: 0xff}
	default:
		col = color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	}

	maxWidth := float64(b.Dx()) - 2*textPaddingPx*s
	if maxWidth < 10 {
		maxWidth = float64(b.Dx())
	}
	lines := textlayout.Wrap(face, it.DisplayText(), maxWidth)
	drawCenteredLines(tile, face, lines, col, size*s)
	return nil
}

// drawCenteredLines stacks lines at LineHeightFactor spacing, centered both
// ways within the tile.
func drawCenteredLines(tile *image.RGBA, face font.Face, lines []string, col color.Color, sizePx float64) {
	if len(lines) == 0 {
		return
	}
	b := tile.Bounds()
	lineH := sizePx * textlayout.LineHeightFactor
	met := face.Metrics()
	ascent := float64(met.Ascent) / 64
	descent := float64(met.Descent) / 64

	blockH := lineH * float64(len(lines))
	top := (float64(b.Dy()) - blockH) / 2
	d := &font.Drawer{Dst: tile, Src: image.NewUniform(col), Face: face}
	for i, line := range lines {
		w := textlayout.MeasureString(face, line)
		x := (float64(b.Dx()) - w) / 2
		baseline := top + float64(i)*lineH + (lineH+ascent-descent)/2
		d.Dot = fixed.P(b.Min.X+int(math.Round(x)), b.Min.Y+int(math.Round(baseline)))
		d.DrawString(line)
	}
}
