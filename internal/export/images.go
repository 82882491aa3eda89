/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"visionboard/internal/domain"
	vblog "visionboard/internal/log"
)

// DefaultImageTimeout bounds a single remote image fetch during export.
const DefaultImageTimeout = 8 * time.Second

// maxImageBytes caps a fetched image body. Generated images are around a
// megabyte; anything past this is a misbehaving server.
const maxImageBytes = 32 << 20

// ImageLoader resolves the image payloads of canvas items to decoded pixels.
// Data URIs decode locally; remote URLs are fetched with a per-image timeout.
// A failed image never fails the export, the renderer falls back to a
// placeholder tile.
type ImageLoader struct {
	Client  *http.Client
	Timeout time.Duration
}

// LoadAll fetches every image item concurrently and returns decoded images
// keyed by canvas item ID. Missing keys mean the image could not be loaded.
func (l *ImageLoader) LoadAll(ctx context.Context, items []domain.CanvasItem) map[string]image.Image {
	log := vblog.WithComponent("export")
	out := make(map[string]image.Image)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, it := range items {
		if it.Kind != domain.KindImage || it.Image == nil {
			continue
		}
		it := it
		g.Go(func() error {
			img, err := l.load(gctx, it.Image)
			if err != nil {
				log.Warn("image unavailable, using placeholder", "item", it.ID, "error", err)
				return nil
			}
			mu.Lock()
			out[it.ID] = img
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait only observes context cancellation.
	_ = g.Wait()
	return out
}

func (l *ImageLoader) load(ctx context.Context, ic *domain.ImageContent) (image.Image, error) {
	img, err := l.loadOne(ctx, ic.ImageURL)
	if err == nil {
		return img, nil
	}
	if ic.OriginalURL != "" && ic.OriginalURL != ic.ImageURL {
		if img, ferr := l.loadOne(ctx, ic.OriginalURL); ferr == nil {
			return img, nil
		}
	}
	return nil, err
}

func (l *ImageLoader) loadOne(ctx context.Context, url string) (image.Image, error) {
	if strings.HasPrefix(url, "data:") {
		return DecodeDataURI(url)
	}
	return l.fetch(ctx, url)
}

func (l *ImageLoader) fetch(ctx context.Context, url string) (image.Image, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// DecodeDataURI decodes a data: URI with base64 payload into an image.
func DecodeDataURI(uri string) (image.Image, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := uri[:comma], uri[comma+1:]
	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("data URI without base64 encoding")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URI payload: %w", err)
	}
	img, _, err := image.Decode(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode data URI image: %w", err)
	}
	return img, nil
}
