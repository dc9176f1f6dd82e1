package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	t.Setenv("APPDATA", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.WindowTitle != "keydrip" {
		t.Errorf("WindowTitle = %q, want %q", cfg.App.WindowTitle, "keydrip")
	}
	if cfg.Typing.StartDelayMs != 3000 {
		t.Errorf("StartDelayMs = %d, want 3000", cfg.Typing.StartDelayMs)
	}
	if cfg.Typing.JitterMinMs != 5 || cfg.Typing.JitterMaxMs != 10 {
		t.Errorf("jitter bounds = %d/%d, want 5/10", cfg.Typing.JitterMinMs, cfg.Typing.JitterMaxMs)
	}
	if cfg.Hotkey.Combo != "ctrl+shift+t" {
		t.Errorf("Combo = %q, want %q", cfg.Hotkey.Combo, "ctrl+shift+t")
	}
	if !cfg.Web.Enabled || cfg.Web.Port != 8765 {
		t.Errorf("web = %v/%d, want enabled on 8765", cfg.Web.Enabled, cfg.Web.Port)
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file not written: %v", err)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Setenv("APPDATA", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg.Typing.BaseDelayMs = 25
	cfg.Typing.Jitter = true
	cfg.Typing.JitterMinMs = 3
	cfg.Typing.JitterMaxMs = 12
	cfg.Hotkey.Combo = "ctrl+alt+f7"
	cfg.Web.Port = 9100
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Typing.BaseDelayMs != 25 || !got.Typing.Jitter {
		t.Errorf("pacing did not round-trip: %+v", got.Typing)
	}
	if got.Typing.JitterMinMs != 3 || got.Typing.JitterMaxMs != 12 {
		t.Errorf("jitter bounds = %d/%d, want 3/12", got.Typing.JitterMinMs, got.Typing.JitterMaxMs)
	}
	if got.Hotkey.Combo != "ctrl+alt+f7" {
		t.Errorf("Combo = %q, want %q", got.Hotkey.Combo, "ctrl+alt+f7")
	}
	if got.Web.Port != 9100 {
		t.Errorf("Port = %d, want 9100", got.Web.Port)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APPDATA", dir)

	configDir := filepath.Join(dir, "keydrip")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	partial := "[typing]\nbase_delay_ms = 40\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Typing.BaseDelayMs != 40 {
		t.Errorf("BaseDelayMs = %d, want 40", cfg.Typing.BaseDelayMs)
	}
	if cfg.Hotkey.Combo != "ctrl+shift+t" {
		t.Errorf("Combo = %q, want default", cfg.Hotkey.Combo)
	}
	if cfg.Typing.StartDelayMs != 3000 {
		t.Errorf("StartDelayMs = %d, want default 3000", cfg.Typing.StartDelayMs)
	}
}
