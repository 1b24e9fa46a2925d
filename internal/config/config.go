// Package config provides centralized configuration for the task-auction
// daemon. ALL daemon parameters (engine limits, storage, RPC, logging)
// MUST be defined here. No hardcoded values should exist elsewhere in
// the codebase.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds the escrow engine's constant parameters (spec §5).
type EngineConfig struct {
	// MinBounty is the minimum bounty a new auction may post.
	MinBounty uint64 `yaml:"min_bounty"`

	// MinDeposit is the minimum skin-in-the-game deposit required of
	// every party.
	MinDeposit uint64 `yaml:"min_deposit"`

	// MaxDataSize is the maximum length, in bytes, of an auction's
	// opaque data payload.
	MaxDataSize int `yaml:"max_data_size"`
}

// DefaultEngineConfig returns the reference engine parameters.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinBounty:   500,
		MinDeposit:  100,
		MaxDataSize: 16,
	}
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// DataDir is the directory for all data files.
	DataDir string `yaml:"data_dir"`
}

// RPCConfig holds JSON-RPC and WebSocket transport settings.
type RPCConfig struct {
	// ListenAddr is the address the JSON-RPC HTTP server binds to.
	ListenAddr string `yaml:"listen_addr"`

	// WSPath is the WebSocket path shown in the startup banner. The RPC
	// server always serves the event feed at /ws, whatever this says.
	WSPath string `yaml:"ws_path"`
}

// ClockConfig selects and parameterizes the daemon's block-height clock.
type ClockConfig struct {
	// Mode is either "manual" (advanced only via the clock_advance RPC
	// method) or "ticking" (advances automatically every Period).
	Mode string `yaml:"mode"`

	// Period is the tick interval when Mode is "ticking".
	Period time.Duration `yaml:"period"`

	// Start is the initial block height.
	Start uint64 `yaml:"start"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`

	// File is the log file path (empty for stdout).
	File string `yaml:"file"`
}

// Config holds all configuration for the task-auction daemon.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Storage StorageConfig `yaml:"storage"`
	RPC     RPCConfig     `yaml:"rpc"`
	Clock   ClockConfig   `yaml:"clock"`
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: DefaultEngineConfig(),
		Storage: StorageConfig{
			DataDir: "~/.taskauction",
		},
		RPC: RPCConfig{
			ListenAddr: "127.0.0.1:8645",
			WSPath:     "/ws",
		},
		Clock: ClockConfig{
			Mode:  "manual",
			Start: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// LoadConfig loads configuration from a YAML file under dataDir. If the
// file doesn't exist, it creates one with default values.
func LoadConfig(dataDir string) (*Config, error) {
	expandedDir := expandPath(dataDir)
	configPath := filepath.Join(expandedDir, ConfigFileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.Storage.DataDir = dataDir

		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Task-auction daemon configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigPath returns the full path to the config file for the given
// data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
