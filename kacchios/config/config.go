// Package config loads the boot configuration from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"kacchi/kacchios/sched"
)

// BootConfig selects the scheduler's initial knob settings.
type BootConfig struct {
	Policy           string `json:"policy"`
	DefaultQuantum   uint32 `json:"default_quantum"`
	AgingThreshold   uint32 `json:"aging_threshold"`
	AgingInterval    uint32 `json:"aging_interval"`
	EnableAging      *bool  `json:"enable_aging"`
	EnablePreemption *bool  `json:"enable_preemption"`
}

// Default returns the stock boot configuration.
func Default() BootConfig {
	return BootConfig{Policy: "priority", DefaultQuantum: 100}
}

// Load reads path into a BootConfig. An empty path returns the
// defaults; a file that cannot be opened is an error.
func Load(path string) (BootConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if _, ok := sched.ParsePolicy(cfg.Policy); !ok {
		return cfg, fmt.Errorf("config %s: unknown policy %q (round_robin|priority|priority_rr|fcfs)", path, cfg.Policy)
	}
	return cfg, nil
}

// ParsedPolicy returns the scheduling policy the config names.
func (c BootConfig) ParsedPolicy() sched.Policy {
	p, _ := sched.ParsePolicy(c.Policy)
	return p
}
