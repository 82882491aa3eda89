/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package genapi talks to the hosted generation endpoints: one call turns a
// wish into a structured vision plan, another turns a prompt into an image
// URL. Responses come back in the raw provider envelopes, so parsing here is
// deliberately defensive.
package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"visionboard/internal/domain"
	applog "visionboard/internal/log"
)

const (
	PlanPath  = "/api/vision-plan"
	ImagePath = "/api/image"

	// DefaultTimeout bounds a single generation call end to end.
	DefaultTimeout = 30 * time.Second
)

// Error describes a failed generation call. StatusCode is 0 when the failure
// happened before or outside the HTTP exchange.
type Error struct {
	Op         string // "plan" or "image"
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("generate %s: %s (status %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("generate %s: %s", e.Op, e.Message)
}

// Client is a thin HTTP client for the generation endpoints. The endpoints
// hold the provider credential; an optional bearer token can be attached
// when the deployment requires one.
type Client struct {
	BaseURL string
	Token   string
	client  *http.Client
	log     *slog.Logger
}

// NewClient creates a client for the given base URL, normalizing a trailing
// slash. timeout <= 0 selects DefaultTimeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     applog.WithComponent("genapi"),
	}
}

// chatEnvelope mirrors the provider chat-completion response shape.
type chatEnvelope struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// imageEnvelope mirrors the provider image-generation response shape.
type imageEnvelope struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type planRequest struct {
	Wish string `json:"wish"`
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
}

// GeneratePlan turns a wish into a structured vision plan. The endpoint's
// model is instructed to answer strict JSON; a malformed answer degrades to
// heuristic text extraction rather than an error.
func (c *Client) GeneratePlan(ctx context.Context, wish string) (domain.VisionPlan, error) {
	wish = strings.TrimSpace(wish)
	if wish == "" {
		return domain.VisionPlan{}, &Error{Op: "plan", Message: "wish must not be empty"}
	}
	l := applog.WithOperation(c.log, "plan")
	var env chatEnvelope
	if err := c.postJSON(ctx, "plan", PlanPath, planRequest{Wish: wish}, &env); err != nil {
		return domain.VisionPlan{}, err
	}
	if len(env.Choices) == 0 || strings.TrimSpace(env.Choices[0].Message.Content) == "" {
		return domain.VisionPlan{}, &Error{Op: "plan", Message: "no response content"}
	}
	content := env.Choices[0].Message.Content
	plan, strict := ParsePlan(content)
	if !strict {
		l.Warn("plan response was not strict JSON, used fallback extraction")
	}
	l.Debug("plan generated",
		slog.Int("milestones", len(plan.Milestones)),
		slog.Int("actions", len(plan.Actions)),
		slog.Int("blockers", len(plan.Blockers)))
	return plan, nil
}

// GenerateImage asks for an image matching the prompt, rendered in the named
// style. Returns the provider-hosted URL of the generated image.
func (c *Client) GenerateImage(ctx context.Context, prompt, style string) (domain.ImageContent, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.ImageContent{}, &Error{Op: "image", Message: "prompt must not be empty"}
	}
	phrase, ok := StylePhrase(style)
	if !ok {
		return domain.ImageContent{}, &Error{Op: "image", Message: fmt.Sprintf("unknown style %q", style)}
	}
	full := fmt.Sprintf("%s, %s, high quality, inspiring, magical", prompt, phrase)
	var env imageEnvelope
	if err := c.postJSON(ctx, "image", ImagePath, imageRequest{Prompt: full, Style: style}, &env); err != nil {
		return domain.ImageContent{}, err
	}
	if len(env.Data) == 0 || strings.TrimSpace(env.Data[0].URL) == "" {
		return domain.ImageContent{}, &Error{Op: "image", Message: "no image URL in response"}
	}
	applog.WithOperation(c.log, "image").Debug("image generated", slog.String("style", style))
	return domain.ImageContent{ImageURL: env.Data[0].URL}, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Op: op, Message: fmt.Sprintf("encode request: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Op: op, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Op: op, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: "request failed: " + resp.Status}
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(dest); err != nil {
		return &Error{Op: op, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}
