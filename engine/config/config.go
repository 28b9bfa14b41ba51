// Package config loads the TOML file that drives the engine.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Shaders     ShadersConfig     `toml:"shaders"`
	Log         LogConfig         `toml:"log"`
}

type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position, if applicable.
	StartPosX uint32 `toml:"x"`
	StartPosY uint32 `toml:"y"`
	// Window starting size in screen coordinates.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// Name of a registered hal backend: vulkan or headless.
	Backend    string `toml:"backend"`
	Validation bool   `toml:"validation"`
	// Bound on both the fence wait and the image acquire.
	FrameTimeout Duration `toml:"frame_timeout"`
	// Consecutive abandoned frames tolerated before giving up. 0 retries forever.
	SoftFailureLimit int `toml:"soft_failure_limit"`
}

type ShadersConfig struct {
	// WGSL files. Empty selects the embedded triangle shaders.
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a Go duration string ("1s", "250ms").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:   "Trigon",
			Width:  512,
			Height: 512,
		},
		Renderer: RendererConfig{
			Backend:      "vulkan",
			FrameTimeout: Duration{time.Second},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of the defaults. An empty path returns the defaults.
// Unknown keys are rejected so typos do not go unnoticed.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Application.Width, c.Application.Height)
	}
	if c.Renderer.Backend == "" {
		return fmt.Errorf("%w: renderer.backend is empty", ErrInvalidConfig)
	}
	if c.Renderer.FrameTimeout.Duration <= 0 {
		return fmt.Errorf("%w: renderer.frame_timeout must be positive, got %s", ErrInvalidConfig, c.Renderer.FrameTimeout)
	}
	if c.Renderer.SoftFailureLimit < 0 {
		return fmt.Errorf("%w: renderer.soft_failure_limit must not be negative", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Encode renders the configuration back to TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
