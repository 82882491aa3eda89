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
	"strings"
	"testing"
	"time"
)

// fakeTokenStore replaces the OS keyring during tests.
type fakeTokenStore struct {
	values map[string]string
}

func newFakeTokenStore() *fakeTokenStore { return &fakeTokenStore{values: map[string]string{}} }

func (f *fakeTokenStore) Get(service, key string) (string, error) {
	v, ok := f.values[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (f *fakeTokenStore) Set(service, key, value string) error {
	f.values[service+"/"+key] = value
	return nil
}

func (f *fakeTokenStore) Delete(service, key string) error {
	delete(f.values, service+"/"+key)
	return nil
}

func withFakeKeyring(t *testing.T) *fakeTokenStore {
	t.Helper()
	prev := tokenStore
	fake := newFakeTokenStore()
	tokenStore = fake
	t.Cleanup(func() { tokenStore = prev })
	return fake
}

// isolateHome points the per-user config dir into a temp dir.
func isolateHome(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("config path isolation uses HOME")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		EnvGenerationURL, EnvGenerationTimeout, EnvGenerationToken, EnvDefaultStyle,
		EnvStorageBackend, EnvPostgresDSN, EnvTelemetryOptIn, EnvTheme, EnvBoardDir,
		EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile,
	} {
		t.Setenv(env, "")
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.ConfigVersion != 1 {
		t.Fatalf("config version = %d", d.ConfigVersion)
	}
	if d.General.Theme != "magical" || d.General.TelemetryOptIn {
		t.Fatalf("general defaults: %+v", d.General)
	}
	if d.Generation.BaseURL != "http://localhost:8080" || d.Generation.TimeoutMs != 30000 || d.Generation.DefaultStyle != "vivid" {
		t.Fatalf("generation defaults: %+v", d.Generation)
	}
	if d.Storage.Backend != "file" {
		t.Fatalf("storage default: %+v", d.Storage)
	}
	if d.Logging.Level != "info" || d.Logging.Format != "console" {
		t.Fatalf("logging defaults: %+v", d.Logging)
	}
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	isolateHome(t)
	clearEnvOverrides(t)
	withFakeKeyring(t)

	cfg, token, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("missing file should yield defaults: %+v", cfg)
	}
	if token != "" {
		t.Fatalf("token = %q", token)
	}
}

func TestLoadMergesFileThenEnv(t *testing.T) {
	home := isolateHome(t)
	clearEnvOverrides(t)
	withFakeKeyring(t)

	dir := filepath.Join(home, ".config", "visionboard")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yaml := `config_version: 1
general:
  theme: dark
  telemetry_opt_in: true
generation:
  base_url: https://file.example
  timeout_ms: 5000
storage:
  backend: SQLite
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// env beats file
	t.Setenv(EnvGenerationURL, "https://env.example")
	t.Setenv(EnvTheme, "Light")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Generation.BaseURL != "https://env.example" {
		t.Fatalf("base url = %q", cfg.Generation.BaseURL)
	}
	if cfg.General.Theme != "light" {
		t.Fatalf("theme = %q", cfg.General.Theme)
	}
	if cfg.Generation.TimeoutMs != 5000 {
		t.Fatalf("timeout from file = %d", cfg.Generation.TimeoutMs)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatal("telemetry opt-in from file lost")
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Fatalf("backend should be lowercased: %q", cfg.Storage.Backend)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
	// untouched fields keep defaults
	if cfg.Generation.DefaultStyle != "vivid" {
		t.Fatalf("default style = %q", cfg.Generation.DefaultStyle)
	}
}

func TestTokenEnvWinsOverKeyring(t *testing.T) {
	isolateHome(t)
	clearEnvOverrides(t)
	fake := withFakeKeyring(t)
	_ = fake.Set(keyringService, keyringToken, "from-keyring")

	_, token, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if token != "from-keyring" {
		t.Fatalf("token = %q, want keyring value", token)
	}

	t.Setenv(EnvGenerationToken, "from-env")
	_, token, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if token != "from-env" {
		t.Fatalf("token = %q, want env value", token)
	}
}

func TestSavePersistsFileAndToken(t *testing.T) {
	isolateHome(t)
	clearEnvOverrides(t)
	fake := withFakeKeyring(t)

	cfg := Defaults()
	cfg.General.Theme = "dark"
	if err := Save(cfg, "secret-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if runtime.GOOS != "windows" && fi.Mode().Perm() != 0o600 {
		t.Fatalf("config mode = %v", fi.Mode().Perm())
	}
	data, _ := os.ReadFile(path)
	if string(data) == "" {
		t.Fatal("empty config file")
	}
	// the token goes into the keyring, never into the YAML
	if got, _ := fake.Get(keyringService, keyringToken); got != "secret-token" {
		t.Fatalf("keyring token = %q", got)
	}
	if strings.Contains(string(data), "secret-token") {
		t.Fatal("token leaked into the config file")
	}

	loaded, token, err := Load()
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	if loaded.General.Theme != "dark" || token != "secret-token" {
		t.Fatalf("round trip: theme=%q token=%q", loaded.General.Theme, token)
	}

	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if _, err := fake.Get(keyringService, keyringToken); err == nil {
		t.Fatal("token survived ClearToken")
	}
}

func TestEnvOverrideFor(t *testing.T) {
	clearEnvOverrides(t)
	if _, ok := EnvOverrideFor("general.theme"); ok {
		t.Fatal("no env set, no override")
	}
	t.Setenv(EnvTheme, "dark")
	env, ok := EnvOverrideFor("general.theme")
	if !ok || env != EnvTheme {
		t.Fatalf("override = %q ok=%v", env, ok)
	}
	if _, ok := EnvOverrideFor("general.unknown"); ok {
		t.Fatal("unknown key reported an override")
	}
}

func TestEffectiveTimeout(t *testing.T) {
	if d := (GenerationConfig{TimeoutMs: 1500}).EffectiveTimeout(); d != 1500*time.Millisecond {
		t.Fatalf("timeout = %v", d)
	}
	if d := (GenerationConfig{}).EffectiveTimeout(); d != 30*time.Second {
		t.Fatalf("zero timeout fallback = %v", d)
	}
}
