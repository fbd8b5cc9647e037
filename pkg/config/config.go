package config

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the pngframe configuration
type Config struct {
	Server  Server  `yaml:"server" toml:"server"`
	Archive Archive `yaml:"archive" toml:"archive"`
	Codec   Codec   `yaml:"codec" toml:"codec"`
	Logging Logging `yaml:"logging" toml:"logging"`
}

// Server contains HTTP API configuration
type Server struct {
	Bind         string `yaml:"bind" toml:"bind"`
	Port         int    `yaml:"port" toml:"port"`
	APIKey       string `yaml:"api_key" toml:"api_key"` // empty disables authentication
	MaxBodyBytes int64  `yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// Archive contains chunk archive configuration
type Archive struct {
	DataDir  string `yaml:"data_dir" toml:"data_dir"`
	InMemory bool   `yaml:"in_memory" toml:"in_memory"`
	Sync     bool   `yaml:"sync" toml:"sync"`
}

// Codec contains chunk parsing configuration
type Codec struct {
	MaxDataLength        uint32 `yaml:"max_data_length" toml:"max_data_length"` // 0 = no limit
	Strict               bool   `yaml:"strict" toml:"strict"`
	SkipCorruptAncillary bool   `yaml:"skip_corrupt_ancillary" toml:"skip_corrupt_ancillary"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // json or console
}

var validLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Bind:         "127.0.0.1",
			Port:         8080,
			MaxBodyBytes: 64 << 20,
		},
		Archive: Archive{
			DataDir: "./data",
		},
		Codec: Codec{
			MaxDataLength: 1<<31 - 1,
			Strict:        true,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for values the program cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive"))
	}
	if !c.Archive.InMemory && c.Archive.DataDir == "" {
		errs = append(errs, fmt.Errorf("archive.data_dir is required unless archive.in_memory is set"))
	}
	if !contains(validLevels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level %q is not one of %s", c.Logging.Level, strings.Join(validLevels, ", ")))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from the specified path. Files ending in
// .toml are parsed as TOML, everything else as YAML. Fields missing from
// the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isTOML(configPath) {
		err = toml.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a new configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.Archive.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./pngframe.yaml"
	}

	// For Linux/macOS, use ~/.config/pngframe/config.yaml
	return filepath.Join(homeDir, ".config", "pngframe", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
