package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and YAML-based
// load/save behavior. Environment variables override file values.

const (
	DefaultTimeZone     = "America/Los_Angeles"
	DefaultEventsFile   = "output_events.csv"
	DefaultCalendarFile = "output_ics.ics"
	DefaultCalendarName = "Work schedule"
	DefaultProductID    = "-//sheetcal//Schedule Export//EN"
	DefaultLogLevel     = "info"
	DefaultListen       = "127.0.0.1:8080"
	DefaultRefreshCron  = "*/15 * * * *"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the feed server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" env:"USERNAME"`
	Password string `yaml:"password" json:"password" env:"PASSWORD"`
}

// Config is the top-level application configuration.
type Config struct {
	// TimeZone is the IANA timezone every shift is localized to
	// (e.g. "America/Los_Angeles").
	TimeZone string `yaml:"timezone" json:"timezone" env:"SHEETCAL_TIMEZONE"`

	// Year resolves header dates, which carry only day and month.
	// Zero means the current year at run time.
	Year int `yaml:"year" json:"year" env:"SHEETCAL_YEAR"`

	// EventsFile is where the intermediate event table is written.
	EventsFile string `yaml:"events_file" json:"events_file" env:"SHEETCAL_EVENTS_FILE"`

	// CalendarFile is where the iCalendar document is written.
	CalendarFile string `yaml:"calendar_file" json:"calendar_file" env:"SHEETCAL_CALENDAR_FILE"`

	// CalendarName is shown by calendar clients that honor X-WR-CALNAME.
	CalendarName string `yaml:"calendar_name" json:"calendar_name" env:"SHEETCAL_CALENDAR_NAME"`

	ProductID string `yaml:"product_id" json:"product_id" env:"SHEETCAL_PRODUCT_ID"`

	// CacheDir stores downloaded tables when the input is a URL.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" env:"SHEETCAL_CACHE_DIR"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level" env:"SHEETCAL_LOG_LEVEL"`

	// Input is the table location used by "serve" when none is given on
	// the command line, typically a published spreadsheet's CSV link.
	Input string `yaml:"input" json:"input" env:"SHEETCAL_INPUT"`

	// Listen is the HTTP listen address of the feed server.
	Listen string `yaml:"listen" json:"listen" env:"SHEETCAL_LISTEN"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for re-reading the input while serving.
	RefreshCron string `yaml:"refresh" json:"refresh" env:"SHEETCAL_REFRESH"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health. SHEETCAL_BASIC_AUTH_* variables override the
	// credentials only when the file declares basic_auth.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" envPrefix:"SHEETCAL_BASIC_AUTH_"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		TimeZone:     DefaultTimeZone,
		EventsFile:   DefaultEventsFile,
		CalendarFile: DefaultCalendarFile,
		CalendarName: DefaultCalendarName,
		ProductID:    DefaultProductID,
		CacheDir:     defaultCacheDir(),
		LogLevel:     DefaultLogLevel,
		Listen:       DefaultListen,
		RefreshCron:  DefaultRefreshCron,
		BasicAuth:    nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.TimeZone == "" {
		c.TimeZone = DefaultTimeZone
	}
	if c.Year < 0 {
		c.Year = 0
	}
	if c.EventsFile == "" {
		c.EventsFile = DefaultEventsFile
	}
	if c.CalendarFile == "" {
		c.CalendarFile = DefaultCalendarFile
	}
	if c.CalendarName == "" {
		c.CalendarName = DefaultCalendarName
	}
	if c.ProductID == "" {
		c.ProductID = DefaultProductID
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir()
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - An empty path or a missing file yields the defaults.
//   - An existing file is unmarshaled over the defaults.
//   - SHEETCAL_* environment variables then override individual fields.
//   - The result is normalized.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// run with defaults
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".sheetcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "sheetcal")
	}
	return ".sheetcal-cache"
}
