// Package config loads the optional codefold configuration file.
//
// The file is selected by the --config flag or the CODEFOLD_CONFIG
// environment variable. There is no automatic discovery. Values from the file
// are defaults; command line flags override them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"gopkg.in/yaml.v3"

	"codefold/pkg/core"
)

// EnvVar names the environment variable holding the config file path
const EnvVar = "CODEFOLD_CONFIG"

// Config is the codefold configuration file
type Config struct {
	// Log configures logging for every command.
	Log LogConfig `yaml:"log"`

	// Collapse configures the collapse command.
	Collapse CollapseConfig `yaml:"collapse"`

	// Expand configures the expand command.
	Expand ExpandConfig `yaml:"expand"`
}

// LogConfig configures logging
type LogConfig struct {
	Verbosity  int  `yaml:"verbosity"`
	JSON       bool `yaml:"json"`
	Quiet      bool `yaml:"quiet"`
	Timestamps bool `yaml:"timestamps"`
}

// CollapseConfig configures the collapse command
type CollapseConfig struct {
	// Output is the archive path used when -o is not given.
	Output string `yaml:"output"`

	// Compression frames the archive: none, lz4 or zstd. Empty means
	// infer from the output extension.
	Compression string `yaml:"compression"`

	// Strict fails the run when any warning was recorded.
	Strict bool `yaml:"strict"`
}

// ExpandConfig configures the expand command
type ExpandConfig struct {
	// Destination is the folder the archive is expanded into.
	Destination string `yaml:"destination"`

	// Strict fails the run when any warning was recorded.
	Strict bool `yaml:"strict"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Expand: ExpandConfig{Destination: "."},
	}
}

// Path returns the config file path from the flag value or the environment
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvVar)
}

// Load reads the configuration file at path from fs. An empty path yields Default().
func Load(fs vfs.FileSystem, path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := vfs.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates configuration data. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	if _, err := core.ParseCompression(c.Collapse.Compression); err != nil {
		return fmt.Errorf("collapse.compression: %w", err)
	}
	if c.Expand.Destination == "" {
		c.Expand.Destination = "."
	}
	return nil
}
