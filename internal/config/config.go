package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"scrubflow/internal/workflow"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "scrubflow.yaml"

// Config holds all scrubflow configuration.
type Config struct {
	// Inserted before the input's extension when no output path is given.
	OutputSuffix string `yaml:"output_suffix"`

	// Spaces per indentation level in written documents.
	Indent int `yaml:"indent"`

	// Maximum number of input files processed at once.
	Concurrency int `yaml:"concurrency"`

	Logging LoggingConfig `yaml:"logging"`

	// Additional node-type rules layered over the built-in tables.
	Rules RulesConfig `yaml:"rules"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputSuffix: "_template",
		Indent:       workflow.DefaultIndent,
		Concurrency:  4,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.OutputSuffix == "" {
		return fmt.Errorf("output_suffix must not be empty")
	}
	if c.Indent < 0 || c.Indent > 8 {
		return fmt.Errorf("indent must be between 0 and 8, got %d", c.Indent)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Rules.Validate()
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCRUBFLOW_OUTPUT_SUFFIX"); v != "" {
		c.OutputSuffix = v
	}
	if v := os.Getenv("SCRUBFLOW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SCRUBFLOW_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SCRUBFLOW_CONCURRENCY"); v != "" {
		// Ignore garbage rather than fail; Validate still guards the result.
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
}
