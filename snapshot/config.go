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
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
)

const (
	// PreferredChunkSize is the default uncompressed size chunks are filled up to.
	PreferredChunkSize = 4 * 1024 * 1024
	// MaxChunkSize is the default limit for the uncompressed size of received chunks.
	MaxChunkSize = PreferredChunkSize / 4 * 5
	// DefaultSubparts is the default number of account ranges chunked in parallel.
	DefaultSubparts = 16
)

// Config lists the tunables of snapshot production and restoration.
type Config struct {
	// PreferredChunkSize is the size entries are packed into a chunk up to.
	// Accounts split over multiple chunks start each continuation with this
	// budget.
	PreferredChunkSize int `toml:"preferred_chunk_size"`
	// MaxChunkSize bounds the uncompressed size of chunks accepted when
	// restoring.
	MaxChunkSize int `toml:"max_chunk_size"`
	// Parallelism is the number of subparts processed concurrently.
	Parallelism int `toml:"parallelism"`
	// Subparts is the number of account hash ranges the state is split into.
	Subparts int `toml:"subparts"`
	// CodeCacheSize is the number of code hashes the rebuilder remembers as
	// present without consulting the database.
	CodeCacheSize int `toml:"code_cache_size"`
}

// DefaultConfig returns the configuration used unless specified otherwise.
func DefaultConfig() Config {
	return Config{
		PreferredChunkSize: PreferredChunkSize,
		MaxChunkSize:       MaxChunkSize,
		Parallelism:        runtime.NumCPU(),
		Subparts:           DefaultSubparts,
		CodeCacheSize:      1 << 16,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.PreferredChunkSize <= 0 {
		return fmt.Errorf("preferred chunk size must be positive, got %d", c.PreferredChunkSize)
	}
	if c.MaxChunkSize < c.PreferredChunkSize {
		return fmt.Errorf("max chunk size %d is smaller than preferred chunk size %d", c.MaxChunkSize, c.PreferredChunkSize)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive, got %d", c.Parallelism)
	}
	if c.Subparts <= 0 || c.Subparts > 256 {
		return fmt.Errorf("number of subparts must be in [1,256], got %d", c.Subparts)
	}
	if c.CodeCacheSize <= 0 {
		return fmt.Errorf("code cache size must be positive, got %d", c.CodeCacheSize)
	}
	return nil
}

// LoadConfig reads a TOML file overriding the defaults. Unknown keys are
// rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	meta, err := toml.Decode(string(buf), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	return cfg, cfg.Validate()
}
