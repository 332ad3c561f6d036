package config

import (
	"time"

	"github.com/dpup/journeys/server/internal/lib/editor"
	"github.com/dpup/journeys/server/internal/lib/trails"
	"github.com/dpup/journeys/server/internal/store"
)

// Config represents the complete server configuration. Each section is
// unmarshalled separately from prefab's config (prefab.yaml plus PF__ env vars).
type Config struct {
	Editor   EditorConfig `koanf:"editor" yaml:"editor"`
	Mapbox   MapboxConfig `koanf:"mapbox" yaml:"mapbox"`
	Database store.Config `koanf:"database" yaml:"database"`
}

// EditorConfig holds editing session settings
type EditorConfig struct {
	HistoryDepth   int           `koanf:"history_depth" yaml:"history_depth"`
	StatusDuration time.Duration `koanf:"status_duration" yaml:"status_duration"`
	SessionIdle    time.Duration `koanf:"session_idle" yaml:"session_idle"`
	ReapInterval   time.Duration `koanf:"reap_interval" yaml:"reap_interval"`
}

// MapboxConfig holds trail matching settings
type MapboxConfig struct {
	AccessToken   string        `koanf:"access_token" yaml:"access_token"`
	BaseURL       string        `koanf:"base_url" yaml:"base_url"`
	Profile       string        `koanf:"profile" yaml:"profile"`
	SnapRadius    int           `koanf:"snap_radius" yaml:"snap_radius"`
	MinConfidence float64       `koanf:"min_confidence" yaml:"min_confidence"`
	CacheTTL      time.Duration `koanf:"cache_ttl" yaml:"cache_ttl"`
	ChunkSize     int           `koanf:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap  int           `koanf:"chunk_overlap" yaml:"chunk_overlap"`
	ChunkDelay    time.Duration `koanf:"chunk_delay" yaml:"chunk_delay"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	matching := trails.DefaultConfig()
	return &Config{
		Editor: EditorConfig{
			HistoryDepth:   editor.DefaultHistoryDepth,
			StatusDuration: 2 * time.Second,
			SessionIdle:    30 * time.Minute,
			ReapInterval:   time.Minute,
		},
		Mapbox: MapboxConfig{
			BaseURL:       "https://api.mapbox.com",
			Profile:       matching.Options.Profile,
			SnapRadius:    matching.Options.SnapRadius,
			MinConfidence: matching.Options.MinConfidence,
			CacheTTL:      matching.CacheTTL,
			ChunkSize:     matching.ChunkSize,
			ChunkOverlap:  matching.ChunkOverlap,
			ChunkDelay:    matching.ChunkDelay,
		},
		Database: store.Config{
			Driver: store.DriverSQLite,
			DSN:    "journeys.db",
		},
	}
}

// Matching converts the mapbox section into trail matcher settings
func (c MapboxConfig) Matching() trails.Config {
	return trails.Config{
		Options: trails.Options{
			SnapRadius:    c.SnapRadius,
			Profile:       c.Profile,
			MinConfidence: c.MinConfidence,
		},
		CacheTTL:     c.CacheTTL,
		ChunkSize:    c.ChunkSize,
		ChunkOverlap: c.ChunkOverlap,
		ChunkDelay:   c.ChunkDelay,
	}
}

// Options converts the editor section into editor options
func (c EditorConfig) Options() editor.Options {
	opts := editor.DefaultOptions()
	if c.HistoryDepth > 0 {
		opts.HistoryDepth = c.HistoryDepth
	}
	if c.StatusDuration > 0 {
		opts.StatusDuration = c.StatusDuration
	}
	return opts
}
