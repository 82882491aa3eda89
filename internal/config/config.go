/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are treated as read-only overrides at
// runtime. The generation API token never lands on disk; it lives in the OS
// keychain.
//
// config_version: bump when the structure changes in a backward-incompatible
// way.

type GenerationConfig struct {
	BaseURL      string `yaml:"base_url"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	DefaultStyle string `yaml:"default_style"`
}

type StorageConfig struct {
	// Backend selects the item store: "file", "sqlite" or "postgres".
	Backend string `yaml:"backend"`
	// PostgresDSN is only consulted when Backend is "postgres".
	PostgresDSN string `yaml:"postgres_dsn"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "light" | "dark" | "magical"
	BoardDir       string `yaml:"board_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	General       GeneralConfig    `yaml:"general"`
	Generation    GenerationConfig `yaml:"generation"`
	Storage       StorageConfig    `yaml:"storage"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "magical", BoardDir: ""},
		Generation:    GenerationConfig{BaseURL: "http://localhost:8080", TimeoutMs: 30000, DefaultStyle: "vivid"},
		Storage:       StorageConfig{Backend: "file"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvGenerationURL     = "VB_GENERATION_URL"
	EnvGenerationTimeout = "VB_GENERATION_TIMEOUT_MS"
	EnvGenerationToken   = "VB_GENERATION_TOKEN"
	EnvDefaultStyle      = "VB_DEFAULT_STYLE"
	EnvStorageBackend    = "VB_STORAGE_BACKEND"
	EnvPostgresDSN       = "VB_POSTGRES_DSN"
	EnvTelemetryOptIn    = "VB_TELEMETRY_OPT_IN"
	EnvTheme             = "VB_THEME"
	EnvBoardDir          = "VB_BOARD_DIR"
	EnvLogLevel          = "VB_LOG_LEVEL"
	EnvLogFormat         = "VB_LOG_FORMAT"
	EnvLogSource         = "VB_LOG_SOURCE"
	EnvLogFile           = "VB_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "VisionBoard"
	keyringToken   = "generation_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = &osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via
// github.com/zalando/go-keyring. The concrete functions live in
// keyring_real.go or keyring_stub.go depending on build tags.
type osKeyring struct{}

func (k *osKeyring) Get(service, key string) (string, error) { return keyringGet(service, key) }
func (k *osKeyring) Set(service, key, value string) error    { return keyringSet(service, key, value) }
func (k *osKeyring) Delete(service, key string) error        { return keyringDelete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "VisionBoard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "VisionBoard")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "visionboard")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The generation token is returned separately: env
// wins over keyring, and it is never kept inside the struct.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok := strings.TrimSpace(os.Getenv(EnvGenerationToken))
	if tok == "" {
		tok, _ = tokenStore.Get(keyringService, keyringToken)
	}
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring
// (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ClearToken removes the generation token from the OS keyring.
func ClearToken() error {
	return tokenStore.Delete(keyringService, keyringToken)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.General.BoardDir) != "" {
		dst.General.BoardDir = strings.TrimSpace(src.General.BoardDir)
	}
	if src.Generation.BaseURL != "" {
		dst.Generation.BaseURL = src.Generation.BaseURL
	}
	if src.Generation.TimeoutMs != 0 {
		dst.Generation.TimeoutMs = src.Generation.TimeoutMs
	}
	if src.Generation.DefaultStyle != "" {
		dst.Generation.DefaultStyle = src.Generation.DefaultStyle
	}
	if src.Storage.Backend != "" {
		dst.Storage.Backend = strings.ToLower(strings.TrimSpace(src.Storage.Backend))
	}
	if strings.TrimSpace(src.Storage.PostgresDSN) != "" {
		dst.Storage.PostgresDSN = strings.TrimSpace(src.Storage.PostgresDSN)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	boolish := func(v string) bool {
		lv := strings.ToLower(v)
		return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvGenerationURL)); v != "" {
		cfg.Generation.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvGenerationTimeout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generation.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDefaultStyle)); v != "" {
		cfg.Generation.DefaultStyle = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageBackend)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = boolish(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTheme)); v != "" {
		cfg.General.Theme = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvBoardDir)); v != "" {
		cfg.General.BoardDir = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = boolish(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by
// environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "generation.base_url":
		env = EnvGenerationURL
	case "generation.timeout_ms":
		env = EnvGenerationTimeout
	case "generation.default_style":
		env = EnvDefaultStyle
	case "storage.backend":
		env = EnvStorageBackend
	case "storage.postgres_dsn":
		env = EnvPostgresDSN
	case "general.telemetry_opt_in":
		env = EnvTelemetryOptIn
	case "general.theme":
		env = EnvTheme
	case "general.board_dir":
		env = EnvBoardDir
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// EffectiveTimeout converts the configured generation timeout to a duration.
func (g GenerationConfig) EffectiveTimeout() time.Duration {
	ms := g.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Generation.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}
