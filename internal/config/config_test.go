package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
	"github.com/GriffinCanCode/league-vision/internal/vision"
)

func TestLoad(t *testing.T) {
	envVars := []string{
		"HTTP_ADDR", "GRPC_ADDR", "VISION_CONFIG", "CLIENT_LOG_PATH", "TESSDATA_PREFIX",
		"LOG_LEVEL", "ALERT_SOUND", "CAPTURE_TIMEOUT_MS", "CONFIG_POLL_MS",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
	}

	cfg := Load()

	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8000")
	}
	if cfg.GRPCAddr != ":50052" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":50052")
	}
	if cfg.VisionConfig != "config/vision.yaml" {
		t.Errorf("VisionConfig = %q", cfg.VisionConfig)
	}
	if !cfg.AlertSound {
		t.Error("AlertSound should default to true")
	}
	if cfg.CaptureTimeout != 250*time.Millisecond {
		t.Errorf("CaptureTimeout = %v, want 250ms", cfg.CaptureTimeout)
	}
	if cfg.ConfigPoll != time.Second {
		t.Errorf("ConfigPoll = %v, want 1s", cfg.ConfigPoll)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel = %v, want info", cfg.SlogLevel())
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("CLIENT_LOG_PATH", "/games/poe/logs/Client.txt")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALERT_SOUND", "false")
	t.Setenv("CAPTURE_TIMEOUT_MS", "400")
	t.Setenv("CONFIG_POLL_MS", "-5")

	cfg := Load()

	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9000")
	}
	if cfg.ClientLogPath != "/games/poe/logs/Client.txt" {
		t.Errorf("ClientLogPath = %q", cfg.ClientLogPath)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
	if cfg.AlertSound {
		t.Error("AlertSound should be false")
	}
	if cfg.CaptureTimeout != 400*time.Millisecond {
		t.Errorf("CaptureTimeout = %v, want 400ms", cfg.CaptureTimeout)
	}
	if cfg.ConfigPoll != time.Second {
		t.Errorf("ConfigPoll = %v, negative values should fall back to 1s", cfg.ConfigPoll)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "hello")
	if v := getEnv("TEST_STRING", "default"); v != "hello" {
		t.Errorf("getEnv = %q, want %q", v, "hello")
	}
	if v := getEnv("NONEXISTENT_LV", "default"); v != "default" {
		t.Errorf("getEnv = %q, want %q", v, "default")
	}

	t.Setenv("TEST_INT", "42")
	if v := getEnvInt("TEST_INT", 0); v != 42 {
		t.Errorf("getEnvInt = %d, want 42", v)
	}
	t.Setenv("TEST_INT_BAD", "forty")
	if v := getEnvInt("TEST_INT_BAD", 7); v != 7 {
		t.Errorf("getEnvInt = %d, want 7", v)
	}

	t.Setenv("TEST_BOOL", "1")
	if !getEnvBool("TEST_BOOL", false) {
		t.Error("getEnvBool(\"1\") should be true")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("LV_DOTENV_PROBE=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LV_DOTENV_PROBE", "")
	os.Unsetenv("LV_DOTENV_PROBE")

	LoadDotEnv(filepath.Join(dir, "missing.env"), path)

	if got := os.Getenv("LV_DOTENV_PROBE"); got != "from-file" {
		t.Errorf("LV_DOTENV_PROBE = %q, want from-file", got)
	}
}

func TestParseVisionDefaults(t *testing.T) {
	v, err := ParseVision([]byte("ocr_threshold: 90\n"))
	if err != nil {
		t.Fatalf("ParseVision: %v", err)
	}
	if v.OCRThreshold != 90 {
		t.Errorf("OCRThreshold = %d, want 90", v.OCRThreshold)
	}
	if v.Hover.Width != 700 || v.Hover.XOffset != -600 {
		t.Errorf("hover defaults lost: %+v", v.Hover)
	}
	if v.Interval(vision.FollowCursor) != 100*time.Millisecond {
		t.Errorf("mouse interval = %v", v.Interval(vision.FollowCursor))
	}
	if v.Interval(vision.CenterScreen) != 500*time.Millisecond {
		t.Errorf("center interval = %v", v.Interval(vision.CenterScreen))
	}
	if len(v.Altars.Tiers) != 3 {
		t.Errorf("default tiers = %v", v.Altars.Tiers)
	}
	if _, fixed := v.Mode(); fixed {
		t.Error("default scan mode should be automatic")
	}
}

func TestParseVisionReplacesTiers(t *testing.T) {
	data := []byte(`
eldritch_altars:
  enabled: true
  min_tier_to_highlight: 2
  tiers:
    1: ["Gold"]
    2: ["Silver"]
syndicate:
  goals:
    - member: Vorici
      goal: research
    - member: Aisling
      goal: remove
`)
	v, err := ParseVision(data)
	if err != nil {
		t.Fatalf("ParseVision: %v", err)
	}
	if len(v.Altars.Tiers) != 2 || v.Altars.Tiers[1][0] != "Gold" {
		t.Errorf("Tiers = %v, want only file tiers", v.Altars.Tiers)
	}
	if len(v.Syndicate.Goals) != 2 || v.Syndicate.Goals[0].Member != "Vorici" {
		t.Errorf("Goals = %v", v.Syndicate.Goals)
	}
	if v.Syndicate.MemoryTTLDuration() != 3*time.Second {
		t.Errorf("MemoryTTL = %v", v.Syndicate.MemoryTTLDuration())
	}
}

func TestParseVisionInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "scan_region: [unclosed"},
		{"negative interval", "scan_interval_mouse: -1"},
		{"zero interval", "scan_interval_center: 0"},
		{"zero focus backoff", "focus_backoff: 0"},
		{"zero hover", "scan_region_hover: {width: 0}"},
		{"center overflow", "scan_region: {x_offset: 0.5, width_pct: 0.6}"},
		{"bad mode", "scan_mode: sideways"},
		{"bad tier", "eldritch_altars: {tiers: {0: [x]}}"},
		{"override without size", "resolution_override: {enabled: true, width: 0}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVision([]byte(tt.yaml))
			if !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
				t.Errorf("err = %v, want CONFIG_INVALID", err)
			}
		})
	}
}

func TestParseVisionMode(t *testing.T) {
	v, err := ParseVision([]byte("scan_mode: mouse\n"))
	if err != nil {
		t.Fatal(err)
	}
	if m, fixed := v.Mode(); !fixed || m != vision.FollowCursor {
		t.Errorf("Mode() = %v, %v", m, fixed)
	}
}

func TestKeywords(t *testing.T) {
	v := DefaultVision()
	v.Essence = KeywordGroup{Enabled: true, Keywords: []string{"Hysteria"}}
	v.Ritual = KeywordGroup{Enabled: false, Keywords: []string{"Mirror"}}

	got := v.Keywords()
	if len(got) != 1 || got[0] != "Hysteria" {
		t.Errorf("Keywords() = %v", got)
	}
}

func TestStoreReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vision.yaml")

	s := NewStore(path, nil)
	if s.Snapshot().Version != 1 {
		t.Fatalf("initial version = %d", s.Snapshot().Version)
	}

	_, err := s.Reload()
	if !apperrors.IsCode(err, apperrors.CodeConfigMissing) {
		t.Errorf("missing file err = %v, want CONFIG_MISSING", err)
	}

	if err := os.WriteFile(path, []byte("ocr_threshold: 120\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, err := s.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if snap.Version != 2 || snap.Vision.OCRThreshold != 120 {
		t.Errorf("snapshot = v%d threshold %d", snap.Version, snap.Vision.OCRThreshold)
	}

	if err := os.WriteFile(path, []byte("ocr_threshold: 999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Reload(); err == nil {
		t.Error("invalid file should be rejected")
	}
	if got := s.Snapshot(); got.Version != 2 || got.Vision.OCRThreshold != 120 {
		t.Errorf("rejected reload changed snapshot: v%d", got.Version)
	}
}

func TestStoreSet(t *testing.T) {
	s := NewStore("", nil)
	v := DefaultVision()
	v.FocusTitle = "Other Game"

	snap := s.Set(v)
	if snap.Version != 2 || s.Snapshot().Vision.FocusTitle != "Other Game" {
		t.Errorf("Set did not publish: %+v", snap.Version)
	}

	if _, err := s.Reload(); err != nil {
		t.Errorf("Reload without path should be a no-op, got %v", err)
	}
}

func TestStoreConcurrentReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vision.yaml")
	if err := os.WriteFile(path, []byte("ocr_threshold: 90\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := s.Reload()
			if err != nil {
				t.Errorf("Reload: %v", err)
				return
			}
			if snap.Vision.OCRThreshold != 90 {
				t.Errorf("threshold = %d, want 90", snap.Vision.OCRThreshold)
			}
		}()
	}
	wg.Wait()

	// Joined calls publish once each; never more versions than callers.
	if v := s.Snapshot().Version; v < 2 || v > 9 {
		t.Errorf("version = %d, want within [2, 9]", v)
	}
}
