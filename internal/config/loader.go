package config

import (
	"bytes"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nexus-agent/core/internal/coreerr"
)

// Load reads path, expands ${VAR} environment references, decodes it as a
// single YAML document rejecting unknown keys, applies §6 defaults, and
// validates the result.
func Load(path string) (*Settings, error) {
	const op = "load"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerr.ConfigError(op, "failed to read config file", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Settings
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, coreerr.ConfigError(op, "failed to parse config", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, coreerr.ConfigError(op, "expected a single YAML document", nil)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, coreerr.ConfigError(op, "config validation failed", err)
	}
	return &cfg, nil
}

// current holds the process-wide Settings instance, initialized exactly
// once (at agent construction) per §5's concurrency model.
var (
	currentMu sync.RWMutex
	current   *Settings
)

// Init sets the process-wide Settings instance. Calling Init a second
// time without an intervening Reset is a programmer error and panics,
// since Settings is documented as init-once.
func Init(s *Settings) {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current != nil {
		panic("config: Init called twice without Reset")
	}
	current = s
}

// Current returns the process-wide Settings instance. Panics if Init has
// not been called yet.
func Current() *Settings {
	currentMu.RLock()
	defer currentMu.RUnlock()
	if current == nil {
		panic("config: Current called before Init")
	}
	return current
}

// Reset clears the process-wide Settings instance, for test isolation.
func Reset() {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = nil
}
