// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_DefaultIsValid(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	if want, got := 4*1024*1024, config.PreferredChunkSize; want != got {
		t.Errorf("unexpected preferred chunk size, wanted %d, got %d", want, got)
	}
	if want, got := 5*1024*1024, config.MaxChunkSize; want != got {
		t.Errorf("unexpected max chunk size, wanted %d, got %d", want, got)
	}
}

func TestConfig_InvalidConfigsAreDetected(t *testing.T) {
	tests := map[string]func(*Config){
		"zero chunk size":      func(c *Config) { c.PreferredChunkSize = 0 },
		"max below preferred":  func(c *Config) { c.MaxChunkSize = c.PreferredChunkSize - 1 },
		"no parallelism":       func(c *Config) { c.Parallelism = 0 },
		"no subparts":          func(c *Config) { c.Subparts = 0 },
		"too many subparts":    func(c *Config) { c.Subparts = 257 },
		"no code cache":        func(c *Config) { c.CodeCacheSize = 0 },
		"negative chunk sizes": func(c *Config) { c.PreferredChunkSize, c.MaxChunkSize = -1, -1 },
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			config := DefaultConfig()
			modify(&config)
			if err := config.Validate(); err == nil {
				t.Errorf("expected validation to fail")
			}
		})
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
preferred_chunk_size = 1024
max_chunk_size = 2048
subparts = 4
`)
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	want := DefaultConfig()
	want.PreferredChunkSize = 1024
	want.MaxChunkSize = 2048
	want.Subparts = 4
	if want != config {
		t.Errorf("unexpected config, wanted %+v, got %+v", want, config)
	}
}

func TestLoadConfig_RejectsUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, "chunk_size = 1024\n")
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("expected unknown key to be rejected")
	}
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	path := writeConfigFile(t, "max_chunk_size = 10\n")
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("expected invalid config to be rejected")
	}
}

func TestLoadConfig_MissingFileFails(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); !os.IsNotExist(err) {
		t.Errorf("expected missing file error, got %v", err)
	}
}
