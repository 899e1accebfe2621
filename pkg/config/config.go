// Package config loads splat4d settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/eunmann/splat4d/pkg/format"
	"github.com/eunmann/splat4d/pkg/membudget"
	"gopkg.in/yaml.v3"
)

// EnvLogLevel overrides Log.Level when set.
const EnvLogLevel = "SPLAT4D_LOG_LEVEL"

// Config represents the splat4d configuration
type Config struct {
	Log   Log   `yaml:"log"`
	Codec Codec `yaml:"codec"`
	S3    S3    `yaml:"s3"`
}

// Log contains logging configuration
type Log struct {
	Level string `yaml:"level"`
	Human bool   `yaml:"human"`
}

// Codec controls container encode and decode.
type Codec struct {
	// ChunkSize is the checksum streaming granularity, e.g. "32KiB".
	ChunkSize string `yaml:"chunk_size"`
	// MemoryBudget caps palette+index allocation on decode. Empty means
	// 50% of system RAM.
	MemoryBudget string `yaml:"memory_budget"`
}

// S3 configures the object store transport.
type S3 struct {
	Region      string `yaml:"region"`
	PartSize    string `yaml:"part_size"`
	Concurrency int    `yaml:"concurrency"`
	TempDir     string `yaml:"temp_dir"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Log: Log{
			Level: "info",
		},
		Codec: Codec{
			ChunkSize: "32KiB",
		},
		S3: S3{
			PartSize:    "16MiB",
			Concurrency: 4,
		},
	}
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
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
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return config, nil
}

// Load returns the defaults when configPath is empty, else LoadConfig. The
// environment overrides are applied in both cases.
func Load(configPath string) (*Config, error) {
	config := DefaultConfig()
	if configPath != "" {
		var err error
		if config, err = LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	config.ApplyEnv()
	return config, nil
}

// ApplyEnv applies environment overrides. SPLAT4D_MEM_BUDGET is resolved
// later by membudget.Resolve so that a CLI flag can still win over it.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks that size strings parse and counts are sane.
func (c *Config) Validate() error {
	if _, err := c.ChunkSizeBytes(); err != nil {
		return err
	}
	if c.Codec.MemoryBudget != "" {
		if _, err := membudget.ParseHumanSize(c.Codec.MemoryBudget); err != nil {
			return fmt.Errorf("codec.memory_budget: %w", err)
		}
	}
	if _, err := c.PartSizeBytes(); err != nil {
		return err
	}
	if c.S3.Concurrency < 0 {
		return fmt.Errorf("s3.concurrency must not be negative, got %d", c.S3.Concurrency)
	}
	return nil
}

// ChunkSizeBytes returns the checksum chunk size. Empty means the codec
// default.
func (c *Config) ChunkSizeBytes() (int, error) {
	if c.Codec.ChunkSize == "" {
		return format.DefaultChunkSize, nil
	}
	n, err := membudget.ParseHumanSize(c.Codec.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("codec.chunk_size: %w", err)
	}
	if n == 0 || n > 1<<30 {
		return 0, fmt.Errorf("codec.chunk_size out of range: %s", c.Codec.ChunkSize)
	}
	return int(n), nil
}

// PartSizeBytes returns the multipart transfer part size, 0 for the SDK
// default.
func (c *Config) PartSizeBytes() (int64, error) {
	if c.S3.PartSize == "" {
		return 0, nil
	}
	n, err := membudget.ParseHumanSize(c.S3.PartSize)
	if err != nil {
		return 0, fmt.Errorf("s3.part_size: %w", err)
	}
	if n > 5<<30 {
		return 0, fmt.Errorf("s3.part_size exceeds 5GiB: %s", c.S3.PartSize)
	}
	return int64(n), nil
}

// SaveConfig writes the configuration as YAML.
func SaveConfig(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
