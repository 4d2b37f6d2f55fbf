package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Server settings for `castdeck serve`
	Server ServerConfig `koanf:"server"`

	// Database path (default: XDG data dir)
	Database DatabaseConfig `koanf:"database"`

	// Audio object storage
	Storage StorageConfig `koanf:"storage"`

	// Text-to-speech provider
	TTS TTSConfig `koanf:"tts"`

	// Playback controller tuning
	Player PlayerConfig `koanf:"player"`

	Log LogConfig `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr              string `koanf:"addr"`                // default: ":8080"
	SessionTTLHours   int    `koanf:"session_ttl_hours"`   // default: 168 (7 days)
	SecureCookies     bool   `koanf:"secure_cookies"`      // set behind TLS
	AuthIntervalMS    int    `koanf:"auth_interval_ms"`    // min spacing of login attempts per address (default: 1000)
	ShutdownTimeoutMS int    `koanf:"shutdown_timeout_ms"` // default: 10000
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// StorageConfig holds audio storage configuration.
type StorageConfig struct {
	Dir     string `koanf:"dir"`      // default: <XDG data>/castdeck/audio
	BaseURL string `koanf:"base_url"` // public origin (default: http://localhost:8080)
}

// TTSConfig holds speech synthesis configuration.
type TTSConfig struct {
	Provider string `koanf:"provider"` // "elevenlabs", "openai", "google", "mock" (default: "mock")
	APIKey   string `koanf:"api_key"`  // falls back to ELEVENLABS_API_KEY / OPENAI_API_KEY
	Voice    string `koanf:"voice"`
	Model    string `koanf:"model"`
	Format   string `koanf:"format"`
	Language string `koanf:"language"` // google only
	BaseURL  string `koanf:"base_url"`
}

// PlayerConfig tunes the playback controller.
type PlayerConfig struct {
	PollIntervalMS    int `koanf:"poll_interval_ms"`    // default: 300
	PollAttempts      int `koanf:"poll_attempts"`       // default: 8
	ResyncToleranceMS int `koanf:"resync_tolerance_ms"` // default: 500
	SeekStepSeconds   int `koanf:"seek_step_seconds"`   // default: 5
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`  // default: "info"
	Format string `koanf:"format"` // "text" or "json" (default: "text")
	File   string `koanf:"file"`   // empty logs to stderr
}

func Load() (*Config, error) {
	return LoadFrom(getConfigPaths()...)
}

// LoadFrom loads the given files in order; later files override earlier
// ones and missing files are skipped.
func LoadFrom(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path != "" && cfg.Database.Path != ":memory:" {
		cfg.Database.Path = expandPath(cfg.Database.Path)
	}
	if cfg.Storage.Dir != "" {
		cfg.Storage.Dir = expandPath(cfg.Storage.Dir)
	}
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}

	// Normalize URLs (remove trailing slash)
	cfg.Storage.BaseURL = strings.TrimSuffix(cfg.Storage.BaseURL, "/")
	cfg.TTS.BaseURL = strings.TrimSuffix(cfg.TTS.BaseURL, "/")
	cfg.TTS.Provider = strings.ToLower(strings.TrimSpace(cfg.TTS.Provider))

	if cfg.TTS.APIKey == "" {
		cfg.TTS.APIKey = apiKeyFromEnv(cfg.TTS.Provider)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/castdeck/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "castdeck", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func apiKeyFromEnv(provider string) string {
	switch provider {
	case "elevenlabs":
		return os.Getenv("ELEVENLABS_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// GetServerConfig returns the server configuration with defaults applied.
func (c *Config) GetServerConfig() ServerConfig {
	cfg := c.Server

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.SessionTTLHours <= 0 {
		cfg.SessionTTLHours = 7 * 24
	}
	if cfg.AuthIntervalMS <= 0 {
		cfg.AuthIntervalMS = 1000
	}
	if cfg.ShutdownTimeoutMS <= 0 {
		cfg.ShutdownTimeoutMS = 10000
	}

	return cfg
}

// SessionTTL returns the session lifetime.
func (s ServerConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLHours) * time.Hour
}

// GetStorageConfig returns the storage configuration with defaults applied.
// dataDir is used when no directory is configured.
func (c *Config) GetStorageConfig(dataDir string) StorageConfig {
	cfg := c.Storage

	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(dataDir, "audio")
	}
	if cfg.BaseURL == "" {
		port := "8080"
		if _, p, err := net.SplitHostPort(c.GetServerConfig().Addr); err == nil && p != "" {
			port = p
		}
		cfg.BaseURL = "http://localhost:" + port
	}

	return cfg
}

// GetTTSConfig returns the TTS configuration with defaults applied.
func (c *Config) GetTTSConfig() TTSConfig {
	cfg := c.TTS

	if cfg.Provider == "" {
		cfg.Provider = "mock"
	}

	return cfg
}

// GetPlayerConfig returns the playback configuration with defaults applied.
func (c *Config) GetPlayerConfig() PlayerConfig {
	cfg := c.Player

	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = 300
	}
	if cfg.PollAttempts <= 0 || cfg.PollAttempts > 100 {
		cfg.PollAttempts = 8
	}
	if cfg.ResyncToleranceMS <= 0 {
		cfg.ResyncToleranceMS = 500
	}
	if cfg.SeekStepSeconds <= 0 {
		cfg.SeekStepSeconds = 5
	}

	return cfg
}

// GetLogConfig returns the logging configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log

	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format != "json" {
		cfg.Format = "text"
	}

	return cfg
}
