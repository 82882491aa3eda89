/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"visionboard/internal/canvas"
	"visionboard/internal/config"
	"visionboard/internal/crash"
	"visionboard/internal/domain"
	"visionboard/internal/export"
	"visionboard/internal/genapi"
	applog "visionboard/internal/log"
	"visionboard/internal/store"
	"visionboard/internal/telemetry"
	"visionboard/internal/ui"
	"visionboard/internal/version"
)

func usage() {
	fmt.Println("Vision Board")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  visionboard version|-v|--version             Show version")
	fmt.Println("  visionboard init <dir>                       Create a new board directory")
	fmt.Println("  visionboard wish <dir> <text>                Generate a vision plan and add it to the board")
	fmt.Println("  visionboard imagine <dir> <prompt> [--style s]  Generate an image and add it to the board")
	fmt.Println("  visionboard styles                           List known image styles")
	fmt.Println("  visionboard list <dir>                       List board items, newest first")
	fmt.Println("  visionboard remove <dir> <id>                Remove a board item")
	fmt.Println("  visionboard clear <dir>                      Remove all board items")
	fmt.Println("  visionboard canvas add <dir> <id>            Place a board item onto the canvas")
	fmt.Println("  visionboard canvas text <dir> <text>         Place custom text onto the canvas")
	fmt.Println("  visionboard canvas rotate <dir> <id> [ccw]   Rotate a canvas item by 15 degrees")
	fmt.Println("  visionboard canvas export <dir> [--pdf] [--scale n]  Export the canvas")
	fmt.Println("  visionboard ui [<dir>]                       Launch desktop UI (build with -tags fyne)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var h *store.BoardHandle
	defer func() { crash.Recover(h) }()

	cfg, token, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
	}
	if cfg.General.TelemetryOptIn {
		telemetry.InitDefault()
	}

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) <= 1 {
		usage()
		return
	}
	ctx := context.Background()

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Vision Board")
		fmt.Println(version.String())

	case "init":
		if len(args) < 3 {
			fail("init requires <dir>")
		}
		abs, _ := filepath.Abs(args[2])
		l.Info("init board", slog.String("root", abs))
		nh, err := store.InitBoard(abs)
		if err != nil {
			die(l, "init failed", err)
		}
		h = nh
		fmt.Println("Created board at", abs)

	case "wish":
		if len(args) < 4 {
			fail("wish requires <dir> and <text>")
		}
		st, nh := openStore(ctx, l, cfg, args[2])
		h = nh
		defer closeStore(l, st)
		wish := strings.Join(args[3:], " ")
		client := genapi.NewClient(cfg.Generation.BaseURL, token, cfg.Generation.EffectiveTimeout())
		plan, err := client.GeneratePlan(ctx, wish)
		if err != nil {
			die(l, "plan generation failed", err)
		}
		item, err := st.Add(ctx, domain.BoardItem{
			Kind:  domain.KindText,
			Title: domain.TitleFromStatement(plan.Statement),
			Plan:  &plan,
		})
		if err != nil {
			die(l, "store plan failed", err)
		}
		telemetry.Event("wish_added", nil)
		fmt.Printf("Added plan %s\n", item.ID)
		fmt.Println("Vision:", plan.Statement)
		printSection("Milestones", plan.Milestones)
		printSection("Actions", plan.Actions)
		printSection("Blockers", plan.Blockers)

	case "imagine":
		if len(args) < 4 {
			fail("imagine requires <dir> and <prompt>")
		}
		fs := flag.NewFlagSet("imagine", flag.ExitOnError)
		style := fs.String("style", cfg.Generation.DefaultStyle, "image style, see 'visionboard styles'")
		rest := parseTrailingFlags(fs, args[3:])
		st, nh := openStore(ctx, l, cfg, args[2])
		h = nh
		defer closeStore(l, st)
		prompt := strings.Join(rest, " ")
		client := genapi.NewClient(cfg.Generation.BaseURL, token, cfg.Generation.EffectiveTimeout())
		img, err := client.GenerateImage(ctx, prompt, *style)
		if err != nil {
			die(l, "image generation failed", err)
		}
		item, err := st.Add(ctx, domain.BoardItem{
			Kind:     domain.KindImage,
			Title:    domain.TitleFromStatement(prompt),
			Image:    &img,
			StyleTag: *style,
		})
		if err != nil {
			die(l, "store image failed", err)
		}
		telemetry.Event("image_added", map[string]any{"style": *style})
		fmt.Printf("Added image %s (%s)\n", item.ID, *style)

	case "styles":
		for _, s := range genapi.Styles() {
			fmt.Println(s)
		}

	case "list":
		if len(args) < 3 {
			fail("list requires <dir>")
		}
		st, nh := openStore(ctx, l, cfg, args[2])
		h = nh
		defer closeStore(l, st)
		items, err := st.All(ctx)
		if err != nil {
			die(l, "list failed", err)
		}
		if len(items) == 0 {
			fmt.Println("Board is empty.")
			return
		}
		for _, it := range items {
			fmt.Printf("%s  %-5s  %s  %s\n", it.ID, it.Kind, it.CreatedAt.Format("2006-01-02 15:04"), it.Title)
		}

	case "remove":
		if len(args) < 4 {
			fail("remove requires <dir> and <id>")
		}
		st, nh := openStore(ctx, l, cfg, args[2])
		h = nh
		defer closeStore(l, st)
		ok, err := st.Remove(ctx, args[3])
		if err != nil {
			die(l, "remove failed", err)
		}
		if !ok {
			fmt.Println("No item with id", args[3])
			os.Exit(1)
		}
		fmt.Println("Removed", args[3])

	case "clear":
		if len(args) < 3 {
			fail("clear requires <dir>")
		}
		st, nh := openStore(ctx, l, cfg, args[2])
		h = nh
		defer closeStore(l, st)
		if err := st.Clear(ctx); err != nil {
			die(l, "clear failed", err)
		}
		fmt.Println("Board cleared.")

	case "canvas":
		if len(args) < 3 {
			fail("canvas requires a subcommand: add, text, rotate, export")
		}
		runCanvas(ctx, l, cfg, token, args[2:], &h)

	case "ui":
		var dir string
		if len(args) >= 3 {
			dir = args[2]
		}
		if err := ui.Run(dir); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}

	default:
		usage()
		os.Exit(2)
	}
}

// runCanvas handles the canvas subcommands. It loads the layout snapshot into
// an engine, applies the mutation, and saves the snapshot back.
func runCanvas(ctx context.Context, l *slog.Logger, cfg config.AppConfig, token string, args []string, hOut **store.BoardHandle) {
	sub := args[0]
	if len(args) < 2 {
		fail(fmt.Sprintf("canvas %s requires <dir>", sub))
	}
	abs, _ := filepath.Abs(args[1])
	h, err := store.OpenBoard(abs)
	if err != nil {
		die(l, "open board failed", err)
	}
	*hOut = h

	eng := canvas.New(1200, 800, domain.Theme(cfg.General.Theme))
	if state, ok, err := store.LoadCanvasState(h); err != nil {
		die(l, "load canvas state failed", err)
	} else if ok {
		eng.LoadState(state)
	}
	save := func() {
		if err := store.SaveCanvasState(h, eng.State()); err != nil {
			die(l, "save canvas state failed", err)
		}
	}

	switch sub {
	case "add":
		if len(args) < 3 {
			fail("canvas add requires <dir> and <id>")
		}
		st, _ := openStore(ctx, l, cfg, abs)
		defer closeStore(l, st)
		items, err := st.All(ctx)
		if err != nil {
			die(l, "load board items failed", err)
		}
		var found *domain.BoardItem
		for i := range items {
			if items[i].ID == args[2] {
				found = &items[i]
				break
			}
		}
		if found == nil {
			fmt.Println("No item with id", args[2])
			os.Exit(1)
		}
		ci := eng.AddBoardItem(*found)
		save()
		fmt.Printf("Placed %s at (%.0f, %.0f)\n", ci.ID, ci.X, ci.Y)

	case "text":
		if len(args) < 3 {
			fail("canvas text requires <dir> and <text>")
		}
		ci, err := eng.AddCustomText(strings.Join(args[2:], " "), 0, domain.Color{}, domain.Color{})
		if err != nil {
			die(l, "add text failed", err)
		}
		save()
		fmt.Printf("Placed %s at (%.0f, %.0f)\n", ci.ID, ci.X, ci.Y)

	case "rotate":
		if len(args) < 3 {
			fail("canvas rotate requires <dir> and <id>")
		}
		clockwise := !(len(args) >= 4 && args[3] == "ccw")
		if !eng.Rotate(args[2], clockwise) {
			fmt.Println("No canvas item with id", args[2])
			os.Exit(1)
		}
		save()
		it, _ := eng.Item(args[2])
		fmt.Printf("Rotated %s to %.0f°\n", it.ID, it.Rotation)

	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		pdf := fs.Bool("pdf", false, "export PDF instead of PNG")
		scale := fs.Int("scale", 1, "PNG resolution multiplier")
		_ = parseTrailingFlags(fs, args[2:])
		state := eng.State()
		var path string
		if *pdf {
			path, err = export.ExportPDF(ctx, h.ExportsDir(), state, export.PDFOptions{})
		} else {
			path, err = export.ExportPNG(ctx, h.ExportsDir(), state, export.PNGOptions{Scale: *scale})
		}
		if err != nil {
			die(l, "export failed", err)
		}
		telemetry.Event("canvas_exported", map[string]any{"pdf": *pdf})
		fmt.Println("Exported:", path)

	default:
		fail("unknown canvas subcommand: " + sub)
	}
}

// openStore opens the configured item store backend for the board directory.
func openStore(ctx context.Context, l *slog.Logger, cfg config.AppConfig, dir string) (store.Store, *store.BoardHandle) {
	abs, _ := filepath.Abs(dir)
	h, err := store.OpenBoard(abs)
	if err != nil {
		die(l, "open board failed", err)
	}
	switch cfg.Storage.Backend {
	case "sqlite":
		st, err := store.OpenSQLite(h.Root)
		if err != nil {
			die(l, "open sqlite store failed", err)
		}
		return st, h
	case "postgres":
		st, err := store.OpenPostgres(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			die(l, "open postgres store failed", err)
		}
		return st, h
	default:
		return store.NewFileStore(h), h
	}
}

func closeStore(l *slog.Logger, st store.Store) {
	if err := st.Close(); err != nil {
		l.Warn("close store", slog.Any("err", err))
	}
}

// parseTrailingFlags parses flags that may follow positional words and
// returns the leading positional arguments.
func parseTrailingFlags(fs *flag.FlagSet, args []string) []string {
	split := len(args)
	for i, a := range args {
		if strings.HasPrefix(a, "-") {
			split = i
			break
		}
	}
	_ = fs.Parse(args[split:])
	return args[:split]
}

func printSection(name string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Println(name + ":")
	for _, s := range lines {
		fmt.Println("  -", s)
	}
}

func fail(msg string) {
	fmt.Println(msg)
	usage()
	os.Exit(2)
}

func die(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
