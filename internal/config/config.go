// Package config loads the settings for mask extraction from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erinpentecost/maskcut/internal/codec"
	"github.com/erinpentecost/maskcut/internal/resample"
	"github.com/erinpentecost/maskcut/internal/source"
)

// Config holds the settings for an extraction, as read from YAML.
type Config struct {
	// Kernel names the resample kernel used to fit the mask to the main image.
	Kernel string `yaml:"kernel"`
	// Format is the output container.
	Format string `yaml:"format"`
	// Workers bounds compositing goroutines. 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
	// MaxSourceBytes caps each fetched image.
	MaxSourceBytes int64 `yaml:"max_source_bytes"`
	// Timeout bounds the whole extraction, fetches included. 0 disables it.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the settings used when no config file is given.
func Default() *Config {
	return &Config{
		Kernel:         resample.Default.String(),
		Format:         codec.PNG.String(),
		Workers:        0,
		MaxSourceBytes: source.DefaultMaxBytes,
		Timeout:        30 * time.Second,
	}
}

// Load reads path on top of Default. A missing file is an error.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML on top of Default and validates the result. Unknown keys
// are rejected.
func Parse(raw []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := resample.ParseKernel(c.Kernel); err != nil {
		errs = append(errs, err)
	}
	if _, err := codec.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.MaxSourceBytes < 0 {
		errs = append(errs, fmt.Errorf("max_source_bytes must not be negative, got %d", c.MaxSourceBytes))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %v", c.Timeout))
	}
	return errors.Join(errs...)
}

// ResampleKernel is the parsed Kernel. Call Validate first.
func (c *Config) ResampleKernel() resample.Kernel {
	k, _ := resample.ParseKernel(c.Kernel)
	return k
}

// OutputFormat is the parsed Format. Call Validate first.
func (c *Config) OutputFormat() codec.Format {
	f, _ := codec.ParseFormat(c.Format)
	return f
}
