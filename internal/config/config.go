// Package config loads deadlint settings from a YAML file.
//
// The file is named .deadlint.yaml (or deadlint.yaml) and is searched for in
// the crate directory and its parents. Every setting is optional.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/deadlint/internal/ir"
	"github.com/roach88/deadlint/internal/lint"
)

// Config represents the configuration file structure.
type Config struct {
	// DefaultLevel is the crate-wide dead_code level: allow, warn, deny or
	// forbid. Attributes in the crate still override it.
	DefaultLevel string `yaml:"default_level,omitempty"`

	// Entry names the entry function by path, overriding the crate's own.
	// An empty string keeps the crate's choice.
	Entry string `yaml:"entry,omitempty"`

	// ExemptAttrs lists extra attribute names that keep a declaration alive
	// like the built-in markers (lang, no_mangle, ...).
	ExemptAttrs []string `yaml:"exempt_attrs,omitempty"`
}

// FileNames are the names searched for config files, in order of preference.
var FileNames = []string{
	".deadlint.yaml",
	".deadlint.yml",
	"deadlint.yaml",
}

// Load searches for a config file starting from the given directory
// and walking up to parent directories. Returns nil if no config file is found.
func Load(startDir string) (*Config, string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", err
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a config document. Unknown keys are rejected so a typo does
// not silently fall back to a default.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if cfg.DefaultLevel != "" {
		if _, err := lint.ParseLevel(cfg.DefaultLevel); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// MergeOptions holds CLI flags that override the file.
type MergeOptions struct {
	Level       string // empty means not specified on CLI
	Entry       string
	ExemptAttrs []string
}

// Settings is a resolved configuration.
type Settings struct {
	Level       lint.Level
	Entry       string
	ExemptAttrs []string
}

// Merge combines config file options with CLI options. CLI options take
// precedence; extra attributes from both are kept. A nil Config is valid.
func (c *Config) Merge(cli MergeOptions) (Settings, error) {
	s := Settings{Level: lint.Warn}
	level := cli.Level
	if c != nil {
		if level == "" {
			level = c.DefaultLevel
		}
		s.Entry = c.Entry
		s.ExemptAttrs = append(s.ExemptAttrs, c.ExemptAttrs...)
	}
	if level != "" {
		l, err := lint.ParseLevel(level)
		if err != nil {
			return Settings{}, err
		}
		s.Level = l
	}
	if cli.Entry != "" {
		s.Entry = cli.Entry
	}
	s.ExemptAttrs = append(s.ExemptAttrs, cli.ExemptAttrs...)
	return s, nil
}

// LintOptions converts the settings into lint.New options.
func (s Settings) LintOptions() []lint.Option {
	opts := []lint.Option{lint.WithDefault(s.Level)}
	if len(s.ExemptAttrs) > 0 {
		opts = append(opts, lint.WithMarkers(s.ExemptAttrs...))
	}
	return opts
}

// Apply overrides the crate's entry point when Entry is set. The path must
// name a function of the crate.
func (s Settings) Apply(c *ir.Crate) error {
	if s.Entry == "" {
		return nil
	}
	id, ok := c.LookupPath(s.Entry)
	if !ok {
		return fmt.Errorf("entry %q: no such declaration in crate %s", s.Entry, c.Name)
	}
	if c.DefKind(id) != ir.DefFn {
		return fmt.Errorf("entry %q: %s is not a function", s.Entry, c.Descr(id))
	}
	c.Entry = id
	return nil
}

// Record returns the settings as stored with a run.
func (s Settings) Record() ir.RunSettings {
	return ir.RunSettings{
		Level:       s.Level.String(),
		Entry:       s.Entry,
		ExemptAttrs: s.ExemptAttrs,
	}
}
