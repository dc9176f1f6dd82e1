package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App    AppConfig    `toml:"app"`
	Typing TypingConfig `toml:"typing"`
	Hotkey HotkeyConfig `toml:"hotkey"`
	Web    WebConfig    `toml:"web"`
}

type AppConfig struct {
	// WindowTitle is the title the control surface presents to the OS.
	// The session controller refuses to type into a window with this title.
	WindowTitle string `toml:"window_title"`
}

type TypingConfig struct {
	BaseDelayMs  int  `toml:"base_delay_ms"`
	Jitter       bool `toml:"jitter"`
	JitterMinMs  int  `toml:"jitter_min_ms"`
	JitterMaxMs  int  `toml:"jitter_max_ms"`
	StartDelayMs int  `toml:"start_delay_ms"`
}

type HotkeyConfig struct {
	Combo string `toml:"combo"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			WindowTitle: "keydrip",
		},
		Typing: TypingConfig{
			BaseDelayMs:  0,
			Jitter:       false,
			JitterMinMs:  5,
			JitterMaxMs:  10,
			StartDelayMs: 3000,
		},
		Hotkey: HotkeyConfig{
			Combo: "ctrl+shift+t",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8765,
		},
	}
}

// ConfigDir returns the keydrip configuration directory, creating it if needed
func ConfigDir() (string, error) {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		appData = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
	}

	configDir := filepath.Join(appData, "keydrip")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// ConfigPath returns the path to the configuration file
func ConfigPath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// Load loads the configuration from the TOML file
// If the file doesn't exist, it creates it with default values
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	// If config doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := defaultConfig()
		if err := save(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	// Load existing config
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration back to the TOML file
func (c *Config) Save() error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}
	return save(configPath, c)
}

// save writes the configuration to the TOML file
func save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}
