// Package config loads playback tuning parameters. The schema uses pointer
// fields so a partial JSON file only overrides what it names; the Get*
// accessors supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/routeplay/internal/sim"
)

// DefaultConfigPath is the path to the canonical playback defaults file.
const DefaultConfigPath = "config/playback.defaults.json"

// PlaybackConfig is the root configuration for the playback engine and the
// upload API.
type PlaybackConfig struct {
	// Engine params
	TickInterval *string  `json:"tick_interval,omitempty"` // duration string like "100ms"
	StepScale    *float64 `json:"step_scale,omitempty"`

	// API params
	MaxUploadBytes *int64 `json:"max_upload_bytes,omitempty"`
	GeocodeLimit   *int   `json:"geocode_limit,omitempty"`
}

// EmptyPlaybackConfig returns a PlaybackConfig with all fields unset, so
// every accessor falls back to its default.
func EmptyPlaybackConfig() *PlaybackConfig {
	return &PlaybackConfig{}
}

// LoadPlaybackConfig loads a PlaybackConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe.
func LoadPlaybackConfig(path string) (*PlaybackConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPlaybackConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *PlaybackConfig) Validate() error {
	if c.TickInterval != nil && *c.TickInterval != "" {
		d, err := time.ParseDuration(*c.TickInterval)
		if err != nil {
			return fmt.Errorf("invalid tick_interval %q: %w", *c.TickInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("tick_interval must be positive, got %s", d)
		}
	}

	if c.StepScale != nil && *c.StepScale <= 0 {
		return fmt.Errorf("step_scale must be positive, got %f", *c.StepScale)
	}

	if c.MaxUploadBytes != nil && *c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", *c.MaxUploadBytes)
	}

	if c.GeocodeLimit != nil && *c.GeocodeLimit <= 0 {
		return fmt.Errorf("geocode_limit must be positive, got %d", *c.GeocodeLimit)
	}

	return nil
}

// GetTickInterval parses and returns the tick interval, defaulting to the
// protocol's 100ms clock.
func (c *PlaybackConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return sim.DefaultTickInterval
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil || d <= 0 {
		return sim.DefaultTickInterval
	}
	return d
}

// GetStepScale returns the speed-to-degrees-per-tick conversion factor. The
// default is the protocol constant; overriding it changes every session's
// observable pace and is intended for tests and demos only.
func (c *PlaybackConfig) GetStepScale() float64 {
	if c.StepScale == nil {
		return sim.DefaultStepScale
	}
	return *c.StepScale
}

// GetMaxUploadBytes bounds route file uploads.
func (c *PlaybackConfig) GetMaxUploadBytes() int64 {
	if c.MaxUploadBytes == nil {
		return 1 << 20 // 1MB
	}
	return *c.MaxUploadBytes
}

// GetGeocodeLimit bounds the number of geocoder matches returned.
func (c *PlaybackConfig) GetGeocodeLimit() int {
	if c.GeocodeLimit == nil {
		return 10
	}
	return *c.GeocodeLimit
}
