// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfigOrDefault_NoFile(t *testing.T) {
	testChdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// With no config file, should return defaults without error
	cfg, err := LoadConfigOrDefault("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Detector.Engine != "patterns" {
		t.Errorf("expected default engine=patterns, got %q", cfg.Detector.Engine)
	}
}

func TestLoadConfigOrDefault_NonexistentFile(t *testing.T) {
	// A path that doesn't exist should fall back to defaults and report why
	cfg, err := LoadConfigOrDefault("/nonexistent/path/config.yaml")
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults)")
	}
	if err == nil {
		t.Error("expected the read error to be reported")
	}
}

func TestLoadConfigOrDefault_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
  download_ttl: 5m
detector:
  engine: presidio
  presidio:
    url: http://analyzer:3000
redaction:
  exclude_entities: []
  allow_list: ["Acme Corp"]
`)

	cfg, err := LoadConfigOrDefault(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("expected address=:9090, got %q", cfg.Server.Address)
	}
	if cfg.Server.DownloadTTL != 5*time.Minute {
		t.Errorf("expected download_ttl=5m, got %v", cfg.Server.DownloadTTL)
	}
	if cfg.Detector.Presidio.URL != "http://analyzer:3000" {
		t.Errorf("unexpected presidio url %q", cfg.Detector.Presidio.URL)
	}
	// unset keys keep their defaults
	if cfg.Detector.Presidio.Timeout != 10*time.Second {
		t.Errorf("expected default presidio timeout, got %v", cfg.Detector.Presidio.Timeout)
	}
	if cfg.Detector.Language != "en" {
		t.Errorf("expected default language=en, got %q", cfg.Detector.Language)
	}
	if len(cfg.Redaction.ExcludeEntities) != 0 {
		t.Errorf("expected URL exclusion to be switched off, got %v", cfg.Redaction.ExcludeEntities)
	}
}

func TestLoadConfigOrDefault_InvalidYAML(t *testing.T) {
	path := writeConfig(t, ":::invalid yaml:::")

	// Should fall back to defaults, not panic
	cfg, err := LoadConfigOrDefault(path)
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults on parse error)")
	}
	if err == nil || !strings.Contains(err.Error(), "error parsing config file") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Redaction.ExcludeEntities; len(got) != 1 || got[0] != "URL" {
		t.Errorf("expected default exclusions [URL], got %v", got)
	}
	if cfg.Redaction.Strategy != "mask" {
		t.Errorf("expected default strategy=mask, got %q", cfg.Redaction.Strategy)
	}
	if cfg.Server.MaxUploadBytes() != 25<<20 {
		t.Errorf("unexpected upload cap %d", cfg.Server.MaxUploadBytes())
	}
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"engine", "detector:\n  engine: spacy\n", "detector.engine"},
		{"score", "detector:\n  score_threshold: 1.5\n", "detector.score_threshold"},
		{"strategy", "redaction:\n  strategy: hash\n", "redaction.strategy"},
		{"mask char", "redaction:\n  mask_char: '##'\n", "redaction.mask_char"},
		{"presidio url", "detector:\n  presidio:\n    url: not a url\n", "detector.presidio.url"},
		{"upload", "server:\n  max_upload_mb: 0\n", "server.max_upload_mb"},
		{"log level", "logging:\n  level: verbose\n", "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"ENGINE", "presidio")
	t.Setenv(EnvPrefix+"PRESIDIO_URL", "http://presidio:5001")
	t.Setenv(EnvPrefix+"EXCLUDE_ENTITIES", "URL, IP_ADDRESS")
	t.Setenv(EnvPrefix+"MAX_UPLOAD_MB", "5")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Detector.Engine != "presidio" || cfg.Detector.Presidio.URL != "http://presidio:5001" {
		t.Errorf("detector overrides not applied: %+v", cfg.Detector)
	}
	if got := cfg.Redaction.ExcludeEntities; len(got) != 2 || got[1] != "IP_ADDRESS" {
		t.Errorf("unexpected exclusions %v", got)
	}
	if cfg.Server.MaxUploadMB != 5 {
		t.Errorf("expected max_upload_mb=5, got %d", cfg.Server.MaxUploadMB)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Logging.Level)
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	env := map[string]string{
		EnvPrefix + "MAX_UPLOAD_MB":    "lots",
		EnvPrefix + "PRESIDIO_TIMEOUT": "soon",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	err := applyEnv(Default(), lookup)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"MAX_UPLOAD_MB", "PRESIDIO_TIMEOUT"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("expected error to mention %s, got %v", key, err)
		}
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	if got := FindConfigFile(); got != "" {
		t.Fatalf("expected no config file, got %q", got)
	}

	xdgFile := filepath.Join(xdg, "pii-anonymizer", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(xdgFile), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(xdgFile, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(); got != xdgFile {
		t.Errorf("expected %q, got %q", xdgFile, got)
	}

	if err := os.WriteFile(filepath.Join(dir, ".pii-anonymizer.yaml"), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(); got != ".pii-anonymizer.yaml" {
		t.Errorf("expected project config to win, got %q", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	testChdir(t, t.TempDir())
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}

	if err := os.WriteFile(".env", []byte(EnvPrefix+"LANGUAGE=de\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPrefix+"LANGUAGE", "")
	os.Unsetenv(EnvPrefix + "LANGUAGE")

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv(EnvPrefix + "LANGUAGE"); got != "de" {
		t.Errorf("expected .env value, got %q", got)
	}
}

// testChdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains:
// it changes the working directory and restores it when the test ends.
func testChdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatalf("restore chdir %s: %v", oldwd, err)
		}
	})
}
