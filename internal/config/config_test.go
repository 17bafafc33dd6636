// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultEndpoint != "openai" {
		t.Errorf("default endpoint = %q", cfg.DefaultEndpoint)
	}
	ep, err := cfg.DefaultEndpointConfig()
	if err != nil {
		t.Fatalf("DefaultEndpointConfig failed: %v", err)
	}
	if ep.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("base URL = %q", ep.BaseURL)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	if _, err := cfg.AddEndpoint(Endpoint{
		ID:           "local",
		Name:         "LM Studio",
		BaseURL:      "http://localhost:1234/v1",
		Models:       []string{"llama-3"},
		DefaultModel: "llama-3",
	}); err != nil {
		t.Fatalf("AddEndpoint failed: %v", err)
	}
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ep, err := loaded.EndpointByID("local")
	if err != nil {
		t.Fatalf("EndpointByID failed: %v", err)
	}
	if ep.Name != "LM Studio" || ep.BaseURL != "http://localhost:1234/v1" {
		t.Errorf("endpoint = %+v", ep)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perm = %o, want 0600", perm)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
	}{
		{"duplicate ids", func(c *Config) {
			c.Endpoints = append(c.Endpoints, c.Endpoints[0])
		}},
		{"missing base url", func(c *Config) {
			c.Endpoints[0].BaseURL = ""
		}},
		{"bad scheme", func(c *Config) {
			c.Endpoints[0].BaseURL = "ftp://example.com"
		}},
		{"dangling default endpoint", func(c *Config) {
			c.DefaultEndpoint = "ghost"
		}},
		{"bad theme", func(c *Config) {
			c.UI.Theme = "solarized"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg := Default()
	if _, err := cfg.AddEndpoint(Endpoint{ID: "alt", BaseURL: "http://localhost:8080/v1"}); err != nil {
		t.Fatalf("AddEndpoint failed: %v", err)
	}

	t.Setenv(EnvEndpoint, "alt")
	t.Setenv(EnvModel, "llama-3")
	cfg.ApplyEnvOverrides()

	if cfg.DefaultEndpoint != "alt" {
		t.Errorf("default endpoint = %q", cfg.DefaultEndpoint)
	}
	ep, _ := cfg.EndpointByID("alt")
	if ep.DefaultModel != "llama-3" {
		t.Errorf("default model = %q", ep.DefaultModel)
	}
}

func TestRemoveEndpointReassignsDefault(t *testing.T) {
	cfg := Default()
	if _, err := cfg.AddEndpoint(Endpoint{ID: "alt", BaseURL: "http://localhost:8080/v1"}); err != nil {
		t.Fatalf("AddEndpoint failed: %v", err)
	}

	if err := cfg.RemoveEndpoint("openai"); err != nil {
		t.Fatalf("RemoveEndpoint failed: %v", err)
	}
	if cfg.DefaultEndpoint != "alt" {
		t.Errorf("default endpoint = %q, want alt", cfg.DefaultEndpoint)
	}
	if err := cfg.RemoveEndpoint("ghost"); !errors.Is(err, ErrEndpointNotFound) {
		t.Errorf("err = %v, want ErrEndpointNotFound", err)
	}
}

func TestModelFor(t *testing.T) {
	ep := &Endpoint{Models: []string{"a", "b"}, DefaultModel: "b"}
	if got := ep.ModelFor("c"); got != "c" {
		t.Errorf("explicit choice = %q", got)
	}
	if got := ep.ModelFor(""); got != "b" {
		t.Errorf("default = %q", got)
	}
	ep.DefaultModel = ""
	if got := ep.ModelFor(""); got != "a" {
		t.Errorf("first model = %q", got)
	}
}
