// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the optional repotext configuration file. YAML, JSON and
// HCL are supported, chosen by file extension.
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/repotext/pkg/exclude"
	"github.com/walteh/repotext/pkg/reference"
	"github.com/walteh/repotext/pkg/remote"
	"github.com/walteh/repotext/pkg/remote/github"
	"gitlab.com/tozd/go/errors"
)

// DefaultFile is the configuration file looked up when none is named.
const DefaultFile = ".repotext.yaml"

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🚫 ExcludeArgs adds to the built-in exclusion tables
type ExcludeArgs struct {
	Names      []string `json:"names,omitempty" yaml:"names,omitempty" hcl:"names,optional"`
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty" hcl:"extensions,optional"`
	Patterns   []string `json:"patterns,omitempty" yaml:"patterns,omitempty" hcl:"patterns,optional"`
	// NoDefaults drops the built-in tables so only the listed rules apply.
	NoDefaults bool `json:"no_defaults,omitempty" yaml:"no_defaults,omitempty" hcl:"no_defaults,optional"`
}

// 📚 Config represents the complete configuration
type Config struct {
	APIURL            string       `json:"api_url,omitempty" yaml:"api_url,omitempty" hcl:"api_url,optional"`
	Ref               string       `json:"ref,omitempty" yaml:"ref,omitempty" hcl:"ref,optional"`
	Hosts             []string     `json:"hosts,omitempty" yaml:"hosts,omitempty" hcl:"hosts,optional"`
	Concurrency       int          `json:"concurrency,omitempty" yaml:"concurrency,omitempty" hcl:"concurrency,optional"`
	RequestsPerSecond float64      `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty" hcl:"requests_per_second,optional"`
	MaxFileSize       int64        `json:"max_file_size,omitempty" yaml:"max_file_size,omitempty" hcl:"max_file_size,optional"`
	Timeout           string       `json:"timeout,omitempty" yaml:"timeout,omitempty" hcl:"timeout,optional"`
	RequestTimeout    string       `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty" hcl:"request_timeout,optional"`
	Output            string       `json:"output,omitempty" yaml:"output,omitempty" hcl:"output,optional"`
	Exclude           *ExcludeArgs `json:"exclude,omitempty" yaml:"exclude,omitempty" hcl:"exclude,block"`

	timeout        time.Duration
	requestTimeout time.Duration
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(ctx context.Context, path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		zerolog.Ctx(ctx).Debug().Str("path", path).Msg("no configuration file, using defaults")
		return Default(), nil
	}
	return Load(ctx, path)
}

// 🔍 Validate checks the configuration and fills in defaults
func (cfg *Config) Validate() error {
	if cfg.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative, got %d", cfg.Concurrency)
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}

	if cfg.RequestsPerSecond < 0 {
		return errors.Errorf("requests_per_second must not be negative, got %v", cfg.RequestsPerSecond)
	}

	if cfg.MaxFileSize < 0 {
		return errors.Errorf("max_file_size must not be negative, got %d", cfg.MaxFileSize)
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = remote.MaxFileSize
	}

	cfg.timeout = 0
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return errors.Errorf("parsing timeout %q: %w", cfg.Timeout, err)
		}
		if d < 0 {
			return errors.Errorf("timeout must not be negative, got %s", d)
		}
		cfg.timeout = d
	}

	cfg.requestTimeout = github.DefaultRequestTimeout
	if cfg.RequestTimeout != "" {
		d, err := time.ParseDuration(cfg.RequestTimeout)
		if err != nil {
			return errors.Errorf("parsing request_timeout %q: %w", cfg.RequestTimeout, err)
		}
		if d <= 0 {
			return errors.Errorf("request_timeout must be positive, got %s", d)
		}
		cfg.requestTimeout = d
	}

	if _, err := cfg.Policy(); err != nil {
		return err
	}

	return nil
}

// TimeoutDuration is the parsed Timeout; zero means no deadline.
func (cfg *Config) TimeoutDuration() time.Duration {
	return cfg.timeout
}

// RequestTimeoutDuration bounds each API call. It is never zero after Validate.
func (cfg *Config) RequestTimeoutDuration() time.Duration {
	return cfg.requestTimeout
}

// 🚫 Policy builds the exclusion policy described by the configuration
func (cfg *Config) Policy() (*exclude.Policy, error) {
	if cfg.Exclude == nil {
		return exclude.Default(), nil
	}

	if cfg.Exclude.NoDefaults {
		p, err := exclude.New(cfg.Exclude.Names, cfg.Exclude.Extensions, cfg.Exclude.Patterns)
		if err != nil {
			return nil, errors.Errorf("building exclusion policy: %w", err)
		}
		return p, nil
	}

	p, err := exclude.Default().Extend(cfg.Exclude.Names, cfg.Exclude.Extensions, cfg.Exclude.Patterns)
	if err != nil {
		return nil, errors.Errorf("building exclusion policy: %w", err)
	}
	return p, nil
}

// ReferenceParser returns the locator parser restricted to the configured hosts.
func (cfg *Config) ReferenceParser() *reference.Parser {
	return &reference.Parser{Hosts: cfg.Hosts}
}

// GitHubOptions returns the fetcher options described by the configuration.
func (cfg *Config) GitHubOptions() github.Options {
	return github.Options{
		APIURL:            cfg.APIURL,
		Ref:               cfg.Ref,
		MaxFileSize:       cfg.MaxFileSize,
		RequestsPerSecond: cfg.RequestsPerSecond,
		RequestTimeout:    cfg.requestTimeout,
	}
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	api := cfg.APIURL
	if api == "" {
		api = "default"
	}
	return fmt.Sprintf("api=%s concurrency=%d rps=%v max_file_size=%d", api, cfg.Concurrency, cfg.RequestsPerSecond, cfg.MaxFileSize)
}
