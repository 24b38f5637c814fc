// FILE: mavlog/src/internal/config/config.go
package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Output  OutputConfig `toml:"output"`
	Input   InputConfig  `toml:"input"`
	Status  StatusConfig `toml:"status"`
	Logging LogConfig    `toml:"logging"`
}

// OutputConfig describes the log file being written.
type OutputConfig struct {
	// Path is the active file path; rotated files gain numeric suffixes.
	Path string `toml:"path"`

	// Format: "mavlog" (extensible, versioned header) or "tlog" (legacy).
	Format string `toml:"format"`

	// MaxSizeKB bounds each file; a write that would exceed it rotates first.
	MaxSizeKB int64 `toml:"max_size_kb"`

	// MaxFiles bounds the total file count, the active file included.
	MaxFiles int `toml:"max_files"`

	// MavlinkOnly drops the per-entry type tag and rejects text/raw entries.
	// Only meaningful for the "mavlog" format.
	MavlinkOnly bool `toml:"mavlink_only"`

	// NoTimestamp drops per-entry timestamps. Only meaningful for "mavlog".
	NoTimestamp bool `toml:"no_timestamp"`

	// TimestampName inserts a capture timestamp into the file name.
	TimestampName bool `toml:"timestamp_name"`

	// Dialect names the message set used for decoding. Currently only
	// "common" ships; empty disables message decoding.
	Dialect string `toml:"dialect"`
}

// InputConfig describes where frames are captured from.
type InputConfig struct {
	// Source: "stdin" or a file path to drain.
	Source string `toml:"source"`
}

// StatusConfig controls the HTTP statistics endpoint.
type StatusConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

func (c *Config) validate() error {
	out := &c.Output
	if out.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	switch out.Format {
	case "mavlog", "tlog":
	default:
		return fmt.Errorf("invalid output format: %q (expected \"mavlog\" or \"tlog\")", out.Format)
	}
	if out.Format == "tlog" && (out.MavlinkOnly || out.NoTimestamp) {
		return fmt.Errorf("format flags are only supported by the \"mavlog\" format")
	}
	if out.MaxSizeKB <= 0 {
		return fmt.Errorf("output.max_size_kb must be positive")
	}
	if out.MaxFiles <= 0 {
		return fmt.Errorf("output.max_files must be positive")
	}
	switch strings.ToLower(out.Dialect) {
	case "", "common":
	default:
		return fmt.Errorf("unknown dialect: %q", out.Dialect)
	}

	if c.Status.Enabled {
		if c.Status.Port < 1 || c.Status.Port > 65535 {
			return fmt.Errorf("status.port must be 1-65535, got %d", c.Status.Port)
		}
	}

	return validateLogConfig(&c.Logging)
}
