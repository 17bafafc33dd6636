// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists the contextcraft configuration:
// the named chat endpoints, the UI options, and scan overrides.
//
// Configuration lives at ~/.contextcraft/config.toml, with built-in defaults
// and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/contextcraft/contextcraft-tui/internal/util"
)

// Environment overrides.
const (
	EnvEndpoint = "CONTEXTCRAFT_ENDPOINT"
	EnvModel    = "CONTEXTCRAFT_MODEL"
)

// ErrEndpointNotFound indicates no endpoint config matches the given ID.
var ErrEndpointNotFound = errors.New("endpoint not found")

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete application configuration.
type Config struct {
	// DefaultEndpoint is the ID of the endpoint used when none is selected.
	DefaultEndpoint string `toml:"default_endpoint"`

	// Endpoints are the configured chat-completion endpoints.
	Endpoints []Endpoint `toml:"endpoints"`

	// UI holds presentation options.
	UI UIConfig `toml:"ui"`

	// Scan holds project traversal options.
	Scan ScanConfig `toml:"scan"`
}

// Endpoint describes one OpenAI-compatible chat endpoint. The API key is
// never stored here; it lives in the secret store under the endpoint ID.
type Endpoint struct {
	// ID is the stable identifier, also the secret-store key.
	ID string `toml:"id"`
	// Name is the display name.
	Name string `toml:"name"`
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string `toml:"base_url"`
	// Models are the model identifiers offered in the picker.
	Models []string `toml:"models"`
	// DefaultModel is used when the user has not chosen one.
	DefaultModel string `toml:"default_model"`
}

// UIConfig contains presentation options.
type UIConfig struct {
	// ShowThinking controls whether the reasoning stream is displayed while
	// the assistant responds.
	ShowThinking bool `toml:"show_thinking"`
	// Theme selects the palette: "auto", "dark", or "light".
	Theme string `toml:"theme"`
}

// ScanConfig contains project traversal options.
type ScanConfig struct {
	// MaxFileSize caps context file reads in bytes. Zero means the built-in
	// default.
	MaxFileSize int64 `toml:"max_file_size"`
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultEndpoint: "openai",
		Endpoints: []Endpoint{
			{
				ID:           "openai",
				Name:         "OpenAI",
				BaseURL:      "https://api.openai.com/v1",
				Models:       []string{"gpt-4o", "gpt-4o-mini"},
				DefaultModel: "gpt-4o-mini",
			},
		},
		UI: UIConfig{
			ShowThinking: true,
			Theme:        "auto",
		},
	}
}

// Dir returns the configuration directory (~/.contextcraft).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".contextcraft"), nil
}

// Path returns the configuration file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the configuration at path, fills defaults, applies environment
// overrides, and validates. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		loaded := &Config{}
		if _, err := toml.DecodeFile(path, loaded); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		cfg = loaded
		cfg.fillDefaults()
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration atomically.
func Save(cfg *Config, path string) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) fillDefaults() {
	if c.UI.Theme == "" {
		c.UI.Theme = "auto"
	}
	if c.DefaultEndpoint == "" && len(c.Endpoints) > 0 {
		c.DefaultEndpoint = c.Endpoints[0].ID
	}
}

// ApplyEnvOverrides applies CONTEXTCRAFT_* environment variables on top of
// the loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.DefaultEndpoint = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		if ep, err := c.EndpointByID(c.DefaultEndpoint); err == nil {
			ep.DefaultModel = v
		}
	}
}

// Validate checks structural consistency: unique endpoint IDs, parseable
// base URLs, and a resolvable default endpoint.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		if ep.ID == "" {
			return fmt.Errorf("endpoint %d: missing id", i)
		}
		if seen[ep.ID] {
			return fmt.Errorf("duplicate endpoint id %q", ep.ID)
		}
		seen[ep.ID] = true
		if ep.BaseURL == "" {
			return fmt.Errorf("endpoint %q: missing base_url", ep.ID)
		}
		u, err := url.Parse(ep.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("endpoint %q: invalid base_url %q", ep.ID, ep.BaseURL)
		}
	}
	if c.DefaultEndpoint != "" && !seen[c.DefaultEndpoint] {
		return fmt.Errorf("%w: default endpoint %q", ErrEndpointNotFound, c.DefaultEndpoint)
	}
	switch c.UI.Theme {
	case "", "auto", "dark", "light":
	default:
		return fmt.Errorf("invalid theme %q", c.UI.Theme)
	}
	return nil
}

// =============================================================================
// ENDPOINT MANAGEMENT
// =============================================================================

// EndpointByID returns a pointer into the config's endpoint list.
func (c *Config) EndpointByID(id string) (*Endpoint, error) {
	for i := range c.Endpoints {
		if c.Endpoints[i].ID == id {
			return &c.Endpoints[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEndpointNotFound, id)
}

// DefaultEndpointConfig resolves the configured default endpoint.
func (c *Config) DefaultEndpointConfig() (*Endpoint, error) {
	if c.DefaultEndpoint == "" {
		if len(c.Endpoints) == 0 {
			return nil, errors.New("no endpoints configured")
		}
		return &c.Endpoints[0], nil
	}
	return c.EndpointByID(c.DefaultEndpoint)
}

// AddEndpoint appends a new endpoint. An empty ID gets a generated one.
func (c *Config) AddEndpoint(ep Endpoint) (*Endpoint, error) {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	for i := range c.Endpoints {
		if c.Endpoints[i].ID == ep.ID {
			return nil, fmt.Errorf("duplicate endpoint id %q", ep.ID)
		}
	}
	c.Endpoints = append(c.Endpoints, ep)
	if c.DefaultEndpoint == "" {
		c.DefaultEndpoint = ep.ID
	}
	return &c.Endpoints[len(c.Endpoints)-1], nil
}

// UpdateEndpoint replaces the endpoint with the same ID.
func (c *Config) UpdateEndpoint(ep Endpoint) error {
	for i := range c.Endpoints {
		if c.Endpoints[i].ID == ep.ID {
			c.Endpoints[i] = ep
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEndpointNotFound, ep.ID)
}

// RemoveEndpoint deletes the endpoint with the given ID.
func (c *Config) RemoveEndpoint(id string) error {
	for i := range c.Endpoints {
		if c.Endpoints[i].ID == id {
			c.Endpoints = append(c.Endpoints[:i], c.Endpoints[i+1:]...)
			if c.DefaultEndpoint == id {
				c.DefaultEndpoint = ""
				if len(c.Endpoints) > 0 {
					c.DefaultEndpoint = c.Endpoints[0].ID
				}
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEndpointNotFound, id)
}

// ModelFor returns the model to use for an endpoint: the explicit choice if
// given, otherwise the endpoint default, otherwise its first listed model.
func (ep *Endpoint) ModelFor(choice string) string {
	if choice != "" {
		return choice
	}
	if ep.DefaultModel != "" {
		return ep.DefaultModel
	}
	if len(ep.Models) > 0 {
		return ep.Models[0]
	}
	return ""
}
