//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	board "visionboard/internal/canvas"
	"visionboard/internal/config"
	"visionboard/internal/crash"
	"visionboard/internal/domain"
	"visionboard/internal/export"
	"visionboard/internal/genapi"
	"visionboard/internal/geom"
	applog "visionboard/internal/log"
	"visionboard/internal/store"
	"visionboard/internal/undo"
	"visionboard/internal/version"
)

// Run starts the Fyne-based desktop UI with the board canvas editor.
func Run(boardDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	var h *store.BoardHandle
	defer func() { crash.Recover(h) }()

	cfg, token, _ := config.Load()
	if strings.TrimSpace(boardDir) == "" {
		boardDir = cfg.General.BoardDir
	}
	if strings.TrimSpace(boardDir) == "" {
		return fmt.Errorf("no board directory given; pass one or set %s", config.EnvBoardDir)
	}
	var err error
	h, err = store.InitBoard(boardDir)
	if err != nil {
		return err
	}
	st := store.NewFileStore(h)
	defer func() { _ = st.Close() }()

	gen := genapi.NewClient(cfg.Generation.BaseURL, token, cfg.Generation.EffectiveTimeout())

	theme := domain.Theme(cfg.General.Theme)
	engine := board.New(1200, 800, theme)
	if state, ok, lerr := store.LoadCanvasState(h); lerr != nil {
		l.Warn("canvas state unreadable, starting empty", slog.Any("err", lerr))
	} else if ok {
		engine.LoadState(state)
	}

	undoMgr := undo.NewManager(undo.Config{MaxDepth: 50})

	fyneApp := app.NewWithID("visionboard")
	w := fyneApp.NewWindow("Vision Board")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 860)
	if winW < 900 {
		winW = 900
	}
	if winH < 640 {
		winH = 640
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	bc := NewBoardCanvas(engine)

	persist := func() {
		if err := store.SaveCanvasState(h, engine.State()); err != nil {
			l.Error("save canvas state failed", slog.Any("err", err))
			status.SetText("Saving layout failed, see log.")
		}
	}
	snapshot := func() {
		blob, err := json.Marshal(engine.State())
		if err != nil {
			return
		}
		undoMgr.Push(undo.Snapshot{Blob: blob, TS: time.Now()})
	}
	snapshot()
	bc.OnChanged = func() {
		snapshot()
		persist()
	}

	// Board item list (left)
	var items []domain.BoardItem
	itemsList := widget.NewList(
		func() int { return len(items) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(items) {
				it := items[i]
				o.(*widget.Label).SetText(fmt.Sprintf("[%s] %s", it.Kind, it.Title))
			}
		},
	)
	selectedItem := -1
	itemsList.OnSelected = func(id widget.ListItemID) { selectedItem = int(id) }
	refreshItems := func() {
		got, err := st.All(context.Background())
		if err != nil {
			l.Error("load board items failed", slog.Any("err", err))
			return
		}
		items = got
		itemsList.Refresh()
	}
	refreshItems()

	btnWish := widget.NewButton("New Wish…", func() {
		wishEntry := widget.NewMultiLineEntry()
		wishEntry.SetPlaceHolder("I want to…")
		form := dialog.NewForm("Make a Wish", "Generate", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Wish", wishEntry),
		}, func(ok bool) {
			if !ok {
				return
			}
			wish := strings.TrimSpace(wishEntry.Text)
			status.SetText("Generating plan…")
			go func() {
				plan, err := gen.GeneratePlan(context.Background(), wish)
				fyne.Do(func() {
					if err != nil {
						dialog.ShowError(err, w)
						status.SetText("Plan generation failed.")
						return
					}
					item := domain.BoardItem{
						Kind:  domain.KindText,
						Title: domain.TitleFromStatement(plan.Statement),
						Plan:  &plan,
					}
					if _, err := st.Add(context.Background(), item); err != nil {
						dialog.ShowError(err, w)
						return
					}
					refreshItems()
					status.SetText("Plan added to board.")
				})
			}()
		}, w)
		form.Resize(fyne.NewSize(440, 240))
		form.Show()
	})

	btnImagine := widget.NewButton("New Image…", func() {
		promptEntry := widget.NewMultiLineEntry()
		promptEntry.SetPlaceHolder("A cabin by a mountain lake")
		styleSelect := widget.NewSelect(genapi.Styles(), nil)
		styleSelect.SetSelected(cfg.Generation.DefaultStyle)
		form := dialog.NewForm("Imagine", "Generate", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Prompt", promptEntry),
			widget.NewFormItem("Style", styleSelect),
		}, func(ok bool) {
			if !ok {
				return
			}
			prompt := strings.TrimSpace(promptEntry.Text)
			style := styleSelect.Selected
			status.SetText("Generating image…")
			go func() {
				img, err := gen.GenerateImage(context.Background(), prompt, style)
				fyne.Do(func() {
					if err != nil {
						dialog.ShowError(err, w)
						status.SetText("Image generation failed.")
						return
					}
					item := domain.BoardItem{
						Kind:     domain.KindImage,
						Title:    domain.TitleFromStatement(prompt),
						Image:    &img,
						StyleTag: style,
					}
					if _, err := st.Add(context.Background(), item); err != nil {
						dialog.ShowError(err, w)
						return
					}
					refreshItems()
					status.SetText("Image added to board.")
				})
			}()
		}, w)
		form.Resize(fyne.NewSize(440, 280))
		form.Show()
	})

	btnToCanvas := widget.NewButton("Add to Canvas", func() {
		if selectedItem < 0 || selectedItem >= len(items) {
			status.SetText("Select a board item first.")
			return
		}
		ci := engine.AddBoardItem(items[selectedItem])
		bc.selected = ci.ID
		bc.OnChanged()
		bc.Refresh()
	})

	btnText := widget.NewButton("Add Text…", func() {
		textEntry := widget.NewEntry()
		textEntry.SetPlaceHolder("Dream big")
		form := dialog.NewForm("Custom Text", "Add", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Text", textEntry),
		}, func(ok bool) {
			if !ok {
				return
			}
			ci, err := engine.AddCustomText(textEntry.Text, 0, domain.Color{}, domain.Color{})
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			bc.selected = ci.ID
			bc.OnChanged()
			bc.Refresh()
		}, w)
		form.Show()
	})

	rotateSelected := func(clockwise bool) {
		if bc.selected == "" {
			status.SetText("Select a canvas item first.")
			return
		}
		if engine.Rotate(bc.selected, clockwise) {
			bc.OnChanged()
			bc.Refresh()
		}
	}
	btnRotCW := widget.NewButton("Rotate ↻", func() { rotateSelected(true) })
	btnRotCCW := widget.NewButton("Rotate ↺", func() { rotateSelected(false) })

	btnDelete := widget.NewButton("Remove from Canvas", func() {
		if bc.selected == "" {
			status.SetText("Select a canvas item first.")
			return
		}
		if engine.Delete(bc.selected) {
			bc.selected = ""
			bc.OnChanged()
			bc.Refresh()
		}
	})

	applyState := func(blob []byte) {
		var state domain.CanvasState
		if err := json.Unmarshal(blob, &state); err != nil {
			return
		}
		engine.LoadState(state)
		bc.selected = ""
		persist()
		bc.Refresh()
	}
	btnUndo := widget.NewButton("Undo", func() {
		if s, ok := undoMgr.Undo(); ok {
			applyState(s.Blob)
		}
	})
	btnRedo := widget.NewButton("Redo", func() {
		if s, ok := undoMgr.Redo(); ok {
			applyState(s.Blob)
		}
	})

	themeSelect := widget.NewSelect([]string{
		string(domain.ThemeLight), string(domain.ThemeDark), string(domain.ThemeMagical),
	}, func(v string) {
		engine.SetTheme(domain.Theme(v))
		bc.OnChanged()
		bc.Refresh()
	})
	themeSelect.SetSelected(string(engine.Theme()))

	exportTo := func(format string) {
		status.SetText("Exporting…")
		state := engine.State()
		dir := h.ExportsDir()
		go func() {
			var path string
			var err error
			switch format {
			case "pdf":
				path, err = export.ExportPDF(context.Background(), dir, state, export.PDFOptions{})
			default:
				path, err = export.ExportPNG(context.Background(), dir, state, export.PNGOptions{Scale: 2})
			}
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, w)
					status.SetText("Export failed.")
					return
				}
				status.SetText("Exported: " + path)
			})
		}()
	}
	btnExportPNG := widget.NewButton("Export PNG", func() { exportTo("png") })
	btnExportPDF := widget.NewButton("Export PDF", func() { exportTo("pdf") })

	left := container.NewBorder(
		container.NewVBox(widget.NewLabel("Board Items"), widget.NewSeparator(), btnWish, btnImagine, btnToCanvas),
		container.NewVBox(
			widget.NewSeparator(),
			btnText, btnRotCW, btnRotCCW, btnDelete,
			container.NewGridWithColumns(2, btnUndo, btnRedo),
			widget.NewLabel("Theme"), themeSelect,
			btnExportPNG, btnExportPDF,
		),
		nil, nil,
		itemsList,
	)

	bottom := container.NewHBox(status, widget.NewLabel(" | "+version.String()))
	content := container.NewBorder(nil, bottom, left, nil, container.NewScroll(bc))
	w.SetContent(content)
	w.SetOnClosed(func() {
		persist()
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	w.ShowAndRun()
	return nil
}

// BoardCanvas draws the canvas items as positioned rectangles with their text
// and lets the user drag, corner-resize and select them. Rotation is kept in
// the model and applied at export time; on screen items draw axis-aligned
// for simplicity.
type BoardCanvas struct {
	widget.BaseWidget
	engine   *board.Engine
	selected string

	resizing  bool
	OnChanged func()
}

const handleSize float32 = 10

func NewBoardCanvas(e *board.Engine) *BoardCanvas {
	bc := &BoardCanvas{engine: e}
	bc.ExtendBaseWidget(bc)
	return bc
}

func (b *BoardCanvas) PreferredSize() fyne.Size {
	sz := b.engine.Size()
	return fyne.NewSize(float32(sz.W), float32(sz.H))
}

func (b *BoardCanvas) MinSize() fyne.Size { return b.PreferredSize() }

// itemAt returns the top-most item whose box contains p.
func (b *BoardCanvas) itemAt(p geom.Pt) (domain.CanvasItem, bool) {
	byZ := b.engine.ItemsByZ()
	for i := len(byZ) - 1; i >= 0; i-- {
		it := byZ[i]
		if geom.R(it.X, it.Y, it.Width, it.Height).Contains(p) {
			return it, true
		}
	}
	return domain.CanvasItem{}, false
}

// handleAt reports which corner handle of the selected item contains p.
func (b *BoardCanvas) handleAt(p geom.Pt) (board.Corner, bool) {
	it, ok := b.engine.Item(b.selected)
	if !ok {
		return "", false
	}
	hs := float64(handleSize)
	corners := map[board.Corner]geom.Pt{
		board.CornerNW: {X: it.X, Y: it.Y},
		board.CornerNE: {X: it.X + it.Width, Y: it.Y},
		board.CornerSW: {X: it.X, Y: it.Y + it.Height},
		board.CornerSE: {X: it.X + it.Width, Y: it.Y + it.Height},
	}
	for c, pt := range corners {
		box := geom.R(pt.X-hs/2, pt.Y-hs/2, hs, hs)
		if box.Contains(p) {
			return c, true
		}
	}
	return "", false
}

func (b *BoardCanvas) Tapped(e *fyne.PointEvent) {
	p := geom.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}
	if it, ok := b.itemAt(p); ok {
		b.selected = it.ID
	} else {
		b.selected = ""
	}
	b.Refresh()
}

func (b *BoardCanvas) Dragged(e *fyne.DragEvent) {
	p := geom.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}
	if !b.engine.Dragging() {
		if c, ok := b.handleAt(p); ok {
			b.resizing = b.engine.PointerDownCorner(b.selected, c, p)
		} else if it, ok := b.itemAt(p); ok {
			b.selected = it.ID
			b.engine.PointerDown(it.ID, p)
			b.resizing = false
		} else {
			return
		}
	}
	b.engine.PointerMove(p)
	b.Refresh()
}

func (b *BoardCanvas) DragEnd() {
	if b.engine.Dragging() {
		b.engine.PointerUp()
		b.resizing = false
		if b.OnChanged != nil {
			b.OnChanged()
		}
	}
	b.Refresh()
}

func (b *BoardCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(themeFill(b.engine.Theme()))
	bbox := canvas.NewRectangle(color.RGBA{})
	bbox.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	bbox.StrokeWidth = 1
	bbox.Hide()
	var handles []*canvas.Rectangle
	for i := 0; i < 4; i++ {
		hr := canvas.NewRectangle(color.RGBA{R: 0, G: 170, B: 255, A: 255})
		hr.Hide()
		handles = append(handles, hr)
	}
	return &boardCanvasRenderer{bc: b, bg: bg, bbox: bbox, handles: handles}
}

func themeFill(t domain.Theme) color.Color {
	switch t {
	case domain.ThemeDark:
		return color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	case domain.ThemeLight:
		return color.White
	default:
		// flat midpoint of the magical gradient; the exporters render the
		// real gradient
		return color.RGBA{R: 0xf6, G: 0xf5, B: 0xfb, A: 0xff}
	}
}

type itemVisual struct {
	box   *canvas.Rectangle
	label *canvas.Text
}

type boardCanvasRenderer struct {
	bc      *BoardCanvas
	bg      *canvas.Rectangle
	visuals []itemVisual
	bbox    *canvas.Rectangle
	handles []*canvas.Rectangle
}

func (r *boardCanvasRenderer) Destroy()           {}
func (r *boardCanvasRenderer) MinSize() fyne.Size { return r.bc.PreferredSize() }
func (r *boardCanvasRenderer) Refresh()           { r.Layout(r.bc.Size()); canvas.Refresh(r.bc) }

func (r *boardCanvasRenderer) Objects() []fyne.CanvasObject {
	objs := []fyne.CanvasObject{r.bg}
	for _, v := range r.visuals {
		objs = append(objs, v.box, v.label)
	}
	objs = append(objs, r.bbox)
	for _, h := range r.handles {
		objs = append(objs, h)
	}
	return objs
}

func (r *boardCanvasRenderer) Layout(size fyne.Size) {
	r.bg.FillColor = themeFill(r.bc.engine.Theme())
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	items := r.bc.engine.ItemsByZ()
	for len(r.visuals) < len(items) {
		box := canvas.NewRectangle(color.RGBA{R: 0xee, G: 0xee, B: 0xf2, A: 0xff})
		box.StrokeColor = color.RGBA{R: 0x60, G: 0x60, B: 0x68, A: 0xff}
		box.StrokeWidth = 1
		box.CornerRadius = 8
		label := canvas.NewText("", color.Black)
		r.visuals = append(r.visuals, itemVisual{box: box, label: label})
	}
	for i, it := range items {
		v := r.visuals[i]
		v.box.Show()
		v.label.Show()
		v.box.Resize(fyne.NewSize(float32(it.Width), float32(it.Height)))
		v.box.Move(fyne.NewPos(float32(it.X), float32(it.Y)))
		switch {
		case it.Kind == domain.KindImage:
			v.box.FillColor = color.RGBA{R: 0xd8, G: 0xdd, B: 0xe6, A: 0xff}
			v.label.Text = it.Title
		case !it.BackgroundColor.IsZero():
			bgc := it.BackgroundColor
			v.box.FillColor = color.RGBA{R: bgc.R, G: bgc.G, B: bgc.B, A: bgc.A}
			v.label.Text = it.DisplayText()
		default:
			v.box.FillColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xd0}
			v.label.Text = it.DisplayText()
		}
		v.label.TextSize = 13
		if !it.FontColor.IsZero() {
			fc := it.FontColor
			v.label.Color = color.RGBA{R: fc.R, G: fc.G, B: fc.B, A: fc.A}
		} else {
			v.label.Color = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
		}
		v.label.Move(fyne.NewPos(float32(it.X)+8, float32(it.Y)+8))
		v.label.Resize(fyne.NewSize(float32(it.Width)-16, 18))
		v.box.Refresh()
		v.label.Refresh()
	}
	for j := len(items); j < len(r.visuals); j++ {
		r.visuals[j].box.Hide()
		r.visuals[j].label.Hide()
	}

	if it, ok := r.bc.engine.Item(r.bc.selected); ok {
		r.bbox.Show()
		r.bbox.Resize(fyne.NewSize(float32(it.Width), float32(it.Height)))
		r.bbox.Move(fyne.NewPos(float32(it.X), float32(it.Y)))
		pts := []fyne.Position{
			fyne.NewPos(float32(it.X), float32(it.Y)),
			fyne.NewPos(float32(it.X+it.Width), float32(it.Y)),
			fyne.NewPos(float32(it.X), float32(it.Y+it.Height)),
			fyne.NewPos(float32(it.X+it.Width), float32(it.Y+it.Height)),
		}
		for i, h := range r.handles {
			h.Show()
			h.Resize(fyne.NewSize(handleSize, handleSize))
			h.Move(fyne.NewPos(pts[i].X-handleSize/2, pts[i].Y-handleSize/2))
		}
	} else {
		r.bbox.Hide()
		for _, h := range r.handles {
			h.Hide()
		}
	}
}
