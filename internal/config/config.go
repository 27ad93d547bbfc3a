// Package config loads and manages quipcam configuration.
// Configuration source priority (highest to lowest):
// 1. Environment variables (QUIPCAM_SERVER, QUIPCAM_REQUEST_TIMEOUT, QUIPCAM_STORAGE, QUIPCAM_LOG_LEVEL)
// 2. Config file path specified via --config flag
// 3. ~/.config/quipcam/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultServerURL is the backend the client talks to when nothing else is configured.
const DefaultServerURL = "http://127.0.0.1:5000"

// StorageConfig controls where the session tokens are persisted.
type StorageConfig struct {
	// Driver: "sqlite" (default) | "memory"
	Driver string `yaml:"driver"`

	// Path of the SQLite database. Empty = ~/.local/share/quipcam/storage.db
	Path string `yaml:"path"`
}

// CaptureConfig holds device settings for the capture producers.
type CaptureConfig struct {
	// CameraCommand grabs one frame and writes an encoded image to stdout.
	// Empty = platform default (ffmpeg).
	CameraCommand []string `yaml:"camera_command"`

	// MicrophoneCommand records audio to stdout until killed.
	// Empty = platform default (ffmpeg).
	MicrophoneCommand []string `yaml:"microphone_command"`

	// MaxUploadMB caps the size of uploaded image files.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty = ~/.local/state/quipcam/quipcam.log
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Config is the complete configuration structure for quipcam.
type Config struct {
	// ServerURL is the base URL of the captioning backend.
	ServerURL string `yaml:"server_url"`

	// RequestTimeout bounds a single HTTP request. 0 = no timeout.
	RequestTimeout Duration `yaml:"request_timeout"`

	Storage StorageConfig `yaml:"storage"`
	Capture CaptureConfig `yaml:"capture"`
	Log     LogConfig     `yaml:"log"`
}

// Duration is a time.Duration that unmarshals from strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return v, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerURL: DefaultServerURL,
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		Capture: CaptureConfig{
			MaxUploadMB: 20,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
	}
}

// DefaultPath returns ~/.config/quipcam/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "quipcam", "config.yaml"), nil
}

// Load reads the config file and merges environment variable overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		if p, err := DefaultPath(); err == nil {
			configPath = p
		}
	}

	// Read config file (use defaults if not found)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.Capture.MaxUploadMB <= 0 {
		cfg.Capture.MaxUploadMB = 20
	}
	return cfg, nil
}

// StoragePath returns the configured database path or the default one.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "quipcam", "storage.db"), nil
}

// LogPath returns the configured log file or the default one.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "quipcam", "quipcam.log"), nil
}

// Timeout returns RequestTimeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout)
}

// SaveServerToFile persists the server URL into the config file at path
// (default location when empty), preserving all other user settings.
func SaveServerToFile(path, serverURL string) (string, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = p
	}

	// Read existing file into a generic map to preserve unknown fields.
	raw := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(data, &raw) // start fresh if corrupt
	}
	raw["server_url"] = strings.TrimRight(serverURL, "/")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("QUIPCAM_SERVER"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("QUIPCAM_REQUEST_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("QUIPCAM_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = Duration(d)
	}
	if v := os.Getenv("QUIPCAM_STORAGE"); v != "" {
		if v == "memory" {
			cfg.Storage.Driver = "memory"
		} else {
			cfg.Storage.Driver = "sqlite"
			cfg.Storage.Path = v
		}
	}
	if v := os.Getenv("QUIPCAM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}
