package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is the compositor configuration. Every field has a usable default
// so the file is optional.
type Config struct {
	// X display to connect to; empty means $DISPLAY.
	Display string `yaml:"display" toml:"display"`

	// Background is the overlay fill colour as #rrggbb.
	Background string `yaml:"background" toml:"background"`

	LogLevel  string `yaml:"log_level" toml:"log_level"`
	LogFormat string `yaml:"log_format" toml:"log_format"`

	// RevalidateInterval retries picture creation for viewable windows
	// that have none. Zero disables it.
	RevalidateInterval Duration `yaml:"revalidate_interval" toml:"revalidate_interval"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Display:    "",
		Background: "#000000",
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// ValidationError names the offending key.
type ValidationError struct {
	Path string
	File string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate performs strict validation of the configuration.
func (c *Config) Validate() error {
	if _, _, _, err := ParseColor(c.Background); err != nil {
		return &ValidationError{Path: "background", Err: err}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.LogFormat {
	case "console", "text", "json":
	default:
		return &ValidationError{Path: "log_format", Err: fmt.Errorf("log_format must be one of: console, text, json")}
	}
	if c.RevalidateInterval < 0 {
		return &ValidationError{Path: "revalidate_interval", Err: fmt.Errorf("revalidate_interval must be >= 0")}
	}
	return nil
}

// BackgroundRGB returns the parsed background colour.
func (c *Config) BackgroundRGB() (r, g, b uint8) {
	r, g, b, _ = ParseColor(c.Background)
	return r, g, b
}

// ParseColor parses a #rrggbb colour.
func ParseColor(s string) (r, g, b uint8, err error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok || len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("colour %q must have the form #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("colour %q is not hexadecimal", s)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// Duration is a time.Duration written as a Go duration string ("1500ms").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}
