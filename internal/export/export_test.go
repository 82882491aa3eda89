/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"visionboard/internal/domain"
	"visionboard/internal/textlayout"
)

// solidPNG encodes a w x h image of a single color.
func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func dataURI(raw []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
}

func TestDecodeDataURI(t *testing.T) {
	raw := solidPNG(t, 4, 4, color.NRGBA{R: 0xff, A: 0xff})
	img, err := DecodeDataURI(dataURI(raw))
	if err != nil {
		t.Fatalf("DecodeDataURI: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	for _, bad := range []string{
		"data:image/png;base64",           // no comma
		"data:image/png,plainpayload",     // not base64 encoded
		"data:image/png;base64,@@@@",      // invalid base64
		dataURI([]byte("not a png file")), // not an image
	} {
		if _, err := DecodeDataURI(bad); err == nil {
			t.Fatalf("DecodeDataURI(%q) accepted bad input", bad)
		}
	}
}

func TestLoadAllFetchesAndFallsBack(t *testing.T) {
	good := solidPNG(t, 8, 8, color.NRGBA{G: 0xff, A: 0xff})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good.png", "/orig.png":
			_, _ = w.Write(good)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	items := []domain.CanvasItem{
		{ID: "remote", Kind: domain.KindImage, Image: &domain.ImageContent{ImageURL: srv.URL + "/good.png"}},
		{ID: "inline", Kind: domain.KindImage, Image: &domain.ImageContent{ImageURL: dataURI(good)}},
		{ID: "fallback", Kind: domain.KindImage, Image: &domain.ImageContent{
			ImageURL:    srv.URL + "/gone.png",
			OriginalURL: srv.URL + "/orig.png",
		}},
		{ID: "broken", Kind: domain.KindImage, Image: &domain.ImageContent{ImageURL: srv.URL + "/gone.png"}},
		{ID: "text", Kind: domain.KindText},
	}
	loader := &ImageLoader{Client: srv.Client(), Timeout: 2 * time.Second}
	out := loader.LoadAll(context.Background(), items)

	for _, id := range []string{"remote", "inline", "fallback"} {
		if out[id] == nil {
			t.Fatalf("item %q missing from result", id)
		}
	}
	if _, ok := out["broken"]; ok {
		t.Fatal("unreachable image should be omitted, not errored")
	}
	if _, ok := out["text"]; ok {
		t.Fatal("text items must not be fetched")
	}
}

func TestRenderPNGBackgrounds(t *testing.T) {
	ctx := context.Background()
	base := domain.CanvasState{Width: 60, Height: 40}
	opts := PNGOptions{Fonts: textlayout.BasicProvider{}}

	base.Theme = domain.ThemeDark
	img, err := RenderPNG(ctx, base, opts)
	if err != nil {
		t.Fatalf("RenderPNG dark: %v", err)
	}
	if c := img.RGBAAt(0, 0); c.R != 0x1f || c.G != 0x29 || c.B != 0x37 {
		t.Fatalf("dark background = %+v", c)
	}

	base.Theme = domain.ThemeLight
	img, _ = RenderPNG(ctx, base, opts)
	if c := img.RGBAAt(0, 0); c.R != 0xff || c.G != 0xff || c.B != 0xff {
		t.Fatalf("light background = %+v", c)
	}

	base.Theme = domain.ThemeMagical
	img, _ = RenderPNG(ctx, base, opts)
	// gradient start is exactly the first stop; the far corner sits just
	// short of the last stop
	if c := img.RGBAAt(0, 0); c.R != 0xf0 || c.G != 0xf4 || c.B != 0xff {
		t.Fatalf("gradient start = %+v", c)
	}
	start, end := img.RGBAAt(0, 0), img.RGBAAt(59, 39)
	if end == start {
		t.Fatal("gradient did not vary across the canvas")
	}
	if end.R != 0xf0 || end.G < 0xf5 || end.B < 0xfa {
		t.Fatalf("gradient end = %+v", end)
	}
}

func TestRenderPNGEmptyCanvas(t *testing.T) {
	if _, err := RenderPNG(context.Background(), domain.CanvasState{}, PNGOptions{}); err == nil {
		t.Fatal("zero-size canvas must error")
	}
}

func TestRenderPNGImageTile(t *testing.T) {
	red := solidPNG(t, 10, 10, color.NRGBA{R: 0xd0, A: 0xff})
	state := domain.CanvasState{
		Width: 400, Height: 300, Theme: domain.ThemeLight,
		Items: []domain.CanvasItem{{
			ID: "img", Kind: domain.KindImage,
			X: 50, Y: 50, Width: 200, Height: 150,
			Image: &domain.ImageContent{ImageURL: dataURI(red)},
		}},
	}
	img, err := RenderPNG(context.Background(), state, PNGOptions{Fonts: textlayout.BasicProvider{}})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	// item center should carry the image color, not the white background
	c := img.RGBAAt(150, 125)
	if c.R < 0xb0 || c.G > 0x40 || c.B > 0x40 {
		t.Fatalf("image tile center = %+v", c)
	}
}

func TestRenderPNGPlaceholderTile(t *testing.T) {
	state := domain.CanvasState{
		Width: 400, Height: 300, Theme: domain.ThemeLight,
		Items: []domain.CanvasItem{{
			ID: "missing", Kind: domain.KindImage, Title: "dream house",
			X: 0, Y: 0, Width: 200, Height: 150,
			Image: &domain.ImageContent{ImageURL: "data:image/png;base64,@@@@"},
		}},
	}
	img, err := RenderPNG(context.Background(), state, PNGOptions{Fonts: textlayout.BasicProvider{}})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	// inside the tile, away from the dashed border and the centered text
	c := img.RGBAAt(20, 20)
	if c.R != 0xf3 || c.G != 0xf4 || c.B != 0xf6 {
		t.Fatalf("placeholder fill = %+v", c)
	}
}

func TestRenderPNGTextTileColors(t *testing.T) {
	state := domain.CanvasState{
		Width: 300, Height: 200, Theme: domain.ThemeLight,
		Items: []domain.CanvasItem{{
			ID: "txt", Kind: domain.KindText, CustomText: "believe",
			X: 20, Y: 20, Width: 200, Height: 100, ZIndex: 1,
			BackgroundColor: domain.Color{R: 0xfe, G: 0xf3, B: 0xc7, A: 0xff},
		}},
	}
	img, err := RenderPNG(context.Background(), state, PNGOptions{Fonts: textlayout.BasicProvider{}})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	// a point inside the tile but clear of the centered text block
	c := img.RGBAAt(40, 40)
	if c.R != 0xfe || c.G != 0xf3 || c.B != 0xc7 {
		t.Fatalf("text background = %+v", c)
	}
}

func TestRenderPNGRotatedItem(t *testing.T) {
	state := domain.CanvasState{
		Width: 300, Height: 300, Theme: domain.ThemeLight,
		Items: []domain.CanvasItem{{
			ID: "rot", Kind: domain.KindText, CustomText: "tilt",
			X: 50, Y: 75, Width: 200, Height: 150, Rotation: 90,
			BackgroundColor: domain.Color{R: 0x33, G: 0x66, B: 0x99, A: 0xff},
		}},
	}
	img, err := RenderPNG(context.Background(), state, PNGOptions{Fonts: textlayout.BasicProvider{}})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	// rotated 90 about (150,150): the 200x150 tile now covers 150x200, so a
	// point that was inside the axis-aligned rect but outside the rotated one
	// stays background white.
	if c := img.RGBAAt(60, 150); c.R != 0xff || c.G != 0xff || c.B != 0xff {
		t.Fatalf("outside rotated tile = %+v", c)
	}
	if c := img.RGBAAt(150, 150); c.R > 0x60 {
		t.Fatalf("rotated tile center = %+v", c)
	}
}

func TestExportPNGWritesDatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	state := domain.CanvasState{Width: 100, Height: 80, Theme: domain.ThemeLight}
	path, err := ExportPNG(context.Background(), dir, state, PNGOptions{Scale: 2, Fonts: textlayout.BasicProvider{}})
	if err != nil {
		t.Fatalf("ExportPNG: %v", err)
	}
	if filepath.Base(path) != DefaultPNGName(time.Now()) {
		t.Fatalf("file name = %q", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 160 {
		t.Fatalf("scaled size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestExportPDFWritesDatedFile(t *testing.T) {
	blue := solidPNG(t, 6, 6, color.NRGBA{B: 0xff, A: 0xff})
	dir := t.TempDir()
	state := domain.CanvasState{
		Width: 400, Height: 300, Theme: domain.ThemeMagical,
		Items: []domain.CanvasItem{
			{ID: "t", Kind: domain.KindText, CustomText: "soar", X: 10, Y: 10, Width: 150, Height: 100, Rotation: -5},
			{ID: "i", Kind: domain.KindImage, X: 180, Y: 40, Width: 180, Height: 140,
				Image: &domain.ImageContent{ImageURL: dataURI(blue)}},
			{ID: "p", Kind: domain.KindImage, Title: "lost", X: 30, Y: 160, Width: 120, Height: 100,
				Image: &domain.ImageContent{ImageURL: "data:image/png;base64,@@@@"}},
		},
	}
	path, err := ExportPDF(context.Background(), dir, state, PDFOptions{})
	if err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	if filepath.Base(path) != DefaultPDFName(time.Now()) {
		t.Fatalf("file name = %q", filepath.Base(path))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(raw), "%PDF") {
		t.Fatalf("not a PDF: %q", raw[:12])
	}
}

func TestDefaultNames(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	if got := DefaultPNGName(ts); got != "vision-board-2026-08-29.png" {
		t.Fatalf("png name = %q", got)
	}
	if got := DefaultPDFName(ts); got != "vision-board-2026-08-29.pdf" {
		t.Fatalf("pdf name = %q", got)
	}
}
