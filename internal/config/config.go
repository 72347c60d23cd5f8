package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Ingest   IngestConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type DataConfig struct {
	// Source is a directory or an http(s) base URL holding the CSV exports.
	Source  string
	Variant string
}

type IngestConfig struct {
	FetchTimeout    time.Duration
	MaxRetries      int
	// RefreshInterval reloads every source periodically; 0 disables it.
	RefreshInterval time.Duration
}

type PipelineConfig struct {
	ClusteringDelay time.Duration
	ScenarioDelay   time.Duration
	// RulesFile replaces the embedded rule tables when set.
	RulesFile string
}

type StorageConfig struct {
	// DataDir holds the activity log database. ":memory:" keeps it in RAM.
	DataDir string
}

type LogConfig struct {
	Level string
}

// SlogLevel maps the configured level name to a slog.Level. Unknown names
// select Info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// BaseURL is the local API address for CLI clients.
func (c Config) BaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.Server.Port)
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Data: DataConfig{
			Source:  "./public",
			Variant: "lg365",
		},
		Ingest: IngestConfig{
			FetchTimeout: 10 * time.Second,
			MaxRetries:   2,
		},
		Pipeline: PipelineConfig{
			ClusteringDelay: 1500 * time.Millisecond,
			ScenarioDelay:   2 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: ":memory:",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a JSON file at
// $XDG_CONFIG_HOME/signalboard/config.json, then applies environment
// variables (SIGNALBOARD_*), which override file values.
//
// server.token is a secret and is read from SIGNALBOARD_SERVER_TOKEN only.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	switch c.Data.Variant {
	case "lg365", "monthly":
	default:
		return fmt.Errorf("invalid config: data.variant %q must be lg365 or monthly", c.Data.Variant)
	}
	if c.Ingest.MaxRetries < 0 {
		return fmt.Errorf("invalid config: ingest.max_retries must not be negative")
	}
	if c.Ingest.FetchTimeout <= 0 {
		return fmt.Errorf("invalid config: ingest.fetch_timeout must be positive")
	}
	if c.Ingest.RefreshInterval < 0 {
		return fmt.Errorf("invalid config: ingest.refresh_interval must not be negative")
	}
	if c.Pipeline.ClusteringDelay < 0 || c.Pipeline.ScenarioDelay < 0 {
		return fmt.Errorf("invalid config: pipeline delays must not be negative")
	}
	return nil
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "signalboard", "config.json")
}
