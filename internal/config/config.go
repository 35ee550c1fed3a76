package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // appliance images often ship without zoneinfo

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/BrandonDHaskell/tracker/internal/tracker/catalog"
)

const EnvPrefix = "TRACKER_"

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Display  DisplayConfig  `koanf:"display"`
	Pages    [][]string     `koanf:"pages"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type DisplayConfig struct {
	Timezone       string `koanf:"timezone"`
	Buttons        int    `koanf:"buttons"`
	NextPageButton int    `koanf:"next_page_button"` // zero-based
	IdleTimeout    string `koanf:"idle_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	Local bool   `koanf:"local"` // human-readable console output
}

type MetricsConfig struct {
	Textfile string `koanf:"textfile"` // empty disables
	Interval string `koanf:"interval"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"database.path":            "./data/tracker.sqlite",
		"display.timezone":         "America/New_York",
		"display.buttons":          4,
		"display.next_page_button": 3,
		"display.idle_timeout":     "20s",
		"pages": [][]string{
			{"Fed Cat", "Fed Baby", "Pee"},
			{"Poo", "Sleep start", "Sleep end"},
		},
		"log.level":        "info",
		"log.local":        true,
		"metrics.textfile": "",
		"metrics.interval": "1m",
	}
}

// Load layers defaults, the YAML file at configPath (if non-empty) and
// TRACKER_ environment variables, in that order. TRACKER_DATABASE__PATH
// overrides database.path.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the pages fit the button layout and that every
// duration and zone parses.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	d := c.Display
	if d.Buttons < 2 {
		errs = append(errs, fmt.Errorf("display.buttons must be at least 2, got %d", d.Buttons))
	}
	if d.NextPageButton < 0 || d.NextPageButton >= d.Buttons {
		errs = append(errs, fmt.Errorf("display.next_page_button %d out of range [0,%d)", d.NextPageButton, d.Buttons))
	}

	if len(c.Pages) == 0 {
		errs = append(errs, errors.New("at least one page is required"))
	}
	for i, page := range c.Pages {
		if len(page) == 0 {
			errs = append(errs, fmt.Errorf("page %d is empty", i+1))
		}
		if len(page) > d.Buttons-1 {
			errs = append(errs, fmt.Errorf("page %d has %d events, at most %d fit", i+1, len(page), d.Buttons-1))
		}
		for _, label := range page {
			switch {
			case strings.TrimSpace(label) == "":
				errs = append(errs, fmt.Errorf("page %d has a blank event name", i+1))
			case strings.TrimSpace(label) != label:
				errs = append(errs, fmt.Errorf("page %d event name %q has leading or trailing space", i+1, label))
			}
		}
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.IdleTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.MetricsInterval(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// EventNames is every event across all pages, first occurrence wins.
func (c *Config) EventNames() []string {
	return catalog.FromPages(c.Pages).Names()
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("display.timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) IdleTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Display.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("display.idle_timeout: %w", err)
	}
	return d, nil
}

func (c *Config) MetricsInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Metrics.Interval)
	if err != nil {
		return 0, fmt.Errorf("metrics.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("metrics.interval must be positive, got %s", d)
	}
	return d, nil
}
