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
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"visionboard/internal/domain"
	vblog "visionboard/internal/log"
)

// PDFOptions configures a PDF export.
type PDFOptions struct {
	// ImageTimeout bounds each remote image fetch; zero means
	// DefaultImageTimeout.
	ImageTimeout time.Duration
	// Loader overrides image loading; nil builds one from ImageTimeout.
	Loader *ImageLoader
}

// ExportPDF renders the canvas to a single-page PDF sized to the canvas (one
// point per canvas pixel) and writes it under dir. Loaded images are embedded;
// unavailable images render as placeholder boxes, like the PNG export.
func ExportPDF(ctx context.Context, dir string, state domain.CanvasState, opts PDFOptions) (string, error) {
	log := vblog.WithComponent("export")
	if state.Width <= 0 || state.Height <= 0 {
		return "", fmt.Errorf("export: canvas size %gx%g is empty", state.Width, state.Height)
	}

	loader := opts.Loader
	if loader == nil {
		loader = &ImageLoader{Timeout: opts.ImageTimeout}
	}
	images := loader.LoadAll(ctx, state.Items)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: state.Width, Ht: state.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	drawPDFBackground(pdf, state)

	items := make([]domain.CanvasItem, len(state.Items))
	copy(items, state.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ZIndex < items[j].ZIndex })

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		cx, cy := it.X+it.Width/2, it.Y+it.Height/2
		pdf.TransformBegin()
		if it.Rotation != 0 {
			// gofpdf rotates counter-clockwise; canvas rotation is clockwise.
			pdf.TransformRotate(-it.Rotation, cx, cy)
		}
		switch it.Kind {
		case domain.KindImage:
			if img, ok := images[it.ID]; ok {
				var buf bytes.Buffer
				if err := png.Encode(&buf, img); err != nil {
					pdf.TransformEnd()
					return "", fmt.Errorf("re-encode image %s: %w", it.ID, err)
				}
				name := "item-" + it.ID
				pdfOpts := gofpdf.ImageOptions{ImageType: "PNG"}
				pdf.RegisterImageOptionsReader(name, pdfOpts, &buf)
				pdf.ImageOptions(name, it.X, it.Y, it.Width, it.Height, false, pdfOpts, 0, "")
			} else {
				drawPDFPlaceholder(pdf, it)
			}
		default:
			drawPDFText(pdf, it, state.Theme)
		}
		pdf.TransformEnd()
	}
	if err := pdf.Error(); err != nil {
		return "", fmt.Errorf("compose pdf: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, DefaultPDFName(time.Now()))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	log.Info("canvas exported", "path", path, "items", len(state.Items), "format", "pdf")
	return path, nil
}

// DefaultPDFName names exports by date, e.g. vision-board-2026-08-29.pdf.
func DefaultPDFName(t time.Time) string {
	return fmt.Sprintf("vision-board-%s.pdf", t.Format("2006-01-02"))
}

func drawPDFBackground(pdf *gofpdf.Fpdf, state domain.CanvasState) {
	switch state.Theme {
	case domain.ThemeDark:
		pdf.SetFillColor(0x1f, 0x29, 0x37)
		pdf.Rect(0, 0, state.Width, state.Height, "F")
	case domain.ThemeLight:
		pdf.SetFillColor(0xff, 0xff, 0xff)
		pdf.Rect(0, 0, state.Width, state.Height, "F")
	default:
		// Two-stop approximation of the magical three-stop gradient.
		pdf.LinearGradient(0, 0, state.Width, state.Height,
			0xf0, 0xf4, 0xff,
			0xf0, 0xf9, 0xff,
			0, 0, 1, 1)
	}
}

func drawPDFText(pdf *gofpdf.Fpdf, it domain.CanvasItem, theme domain.Theme) {
	if !it.BackgroundColor.IsZero() {
		bg := it.BackgroundColor
		pdf.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
		pdf.RoundedRect(it.X, it.Y, it.Width, it.Height, cornerRadiusPx, "1234", "F")
	}

	size := it.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	pdf.SetFont("Helvetica", "", size)
	switch {
	case !it.FontColor.IsZero():
		pdf.SetTextColor(int(it.FontColor.R), int(it.FontColor.G), int(it.FontColor.B))
	case theme == domain.ThemeDark && it.BackgroundColor.IsZero():
		pdf.SetTextColor(0xf9, 0xfa, 0xfb)
	default:
		pdf.SetTextColor(0x1f, 0x29, 0x37)
	}

	maxWidth := it.Width - 2*textPaddingPx
	if maxWidth < 10 {
		maxWidth = it.Width
	}
	lines := pdf.SplitText(it.DisplayText(), maxWidth)
	lineH := size * 1.4
	top := it.Y + (it.Height-lineH*float64(len(lines)))/2
	for i, line := range lines {
		w := pdf.GetStringWidth(line)
		x := it.X + (it.Width-w)/2
		baseline := top + float64(i)*lineH + (lineH+size*0.7)/2
		pdf.Text(x, baseline, line)
	}
}

func drawPDFPlaceholder(pdf *gofpdf.Fpdf, it domain.CanvasItem) {
	pdf.SetFillColor(0xf3, 0xf4, 0xf6)
	pdf.Rect(it.X, it.Y, it.Width, it.Height, "F")
	pdf.SetDrawColor(0xd1, 0xd5, 0xdb)
	pdf.SetLineWidth(2)
	pdf.SetDashPattern([]float64{6, 6}, 0)
	pdf.Rect(it.X, it.Y, it.Width, it.Height, "D")
	pdf.SetDashPattern([]float64{}, 0)

	pdf.SetFont("Helvetica", "", 13)
	pdf.SetTextColor(0x6b, 0x72, 0x80)
	lines := []string{"Image Not Available"}
	if it.Title != "" {
		lines = append(lines, pdf.SplitText(it.Title, it.Width-2*textPaddingPx)...)
	}
	if len(lines) > 3 {
		lines = lines[:3]
	}
	lineH := 13 * 1.4
	top := it.Y + (it.Height-lineH*float64(len(lines)))/2
	for i, line := range lines {
		w := pdf.GetStringWidth(line)
		x := it.X + (it.Width-w)/2
		pdf.Text(x, top+float64(i)*lineH+lineH*0.8, line)
	}
}
