package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Endpoints are the API paths used for the cookie-session flow, relative
// to BaseURL.
type Endpoints struct {
	CSRFCookie  string `yaml:"csrf_cookie"`
	Login       string `yaml:"login"`
	Register    string `yaml:"register"`
	Logout      string `yaml:"logout"`
	CurrentUser string `yaml:"current_user"`
}

type Config struct {
	BaseURL        string        `yaml:"base_url"`
	Endpoints      Endpoints     `yaml:"endpoints"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CacheDir       string        `yaml:"cache_dir"`
	DBPath         string        `yaml:"db_path"`
	LogPath        string        `yaml:"log_path"`
	LogLevel       string        `yaml:"log_level"`

	// SessionCheckInterval is how often the TUI re-validates a logged-in
	// session. Zero disables the check.
	SessionCheckInterval time.Duration `yaml:"session_check_interval"`
}

func Default() Config {
	cacheDir := filepath.Join(userConfigDir(), "keyhole")
	return Config{
		BaseURL: "http://localhost:8000",
		Endpoints: Endpoints{
			CSRFCookie:  "/sanctum/csrf-cookie",
			Login:       "/login",
			Register:    "/register",
			Logout:      "/logout",
			CurrentUser: "/api/user",
		},
		RequestTimeout: 10 * time.Second,
		CacheDir:       cacheDir,
		DBPath:         filepath.Join(cacheDir, "keyhole.db"),
		LogPath:        filepath.Join(cacheDir, "debug.log"),
		LogLevel:       "info",

		SessionCheckInterval: 5 * time.Minute,
	}
}

// DefaultPath is where Load looks when no config file is given.
func DefaultPath() string {
	return filepath.Join(userConfigDir(), "keyhole", "config.yaml")
}

// Option overrides a loaded setting. Options apply after the file and the
// environment, so command-line flags win.
type Option func(*Config)

// WithBaseURL overrides BaseURL when u is not empty.
func WithBaseURL(u string) Option {
	return func(c *Config) {
		if u != "" {
			c.BaseURL = u
		}
	}
}

// Load returns Default overlaid with the YAML file at path (if it exists),
// then with KEYHOLE_* environment variables, then with opts.
func Load(path string, opts ...Option) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("KEYHOLE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("KEYHOLE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("KEYHOLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("KEYHOLE_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	// A relocated cache dir moves the files that were left at their defaults.
	def := Default()
	if cfg.CacheDir != def.CacheDir {
		if cfg.DBPath == def.DBPath {
			cfg.DBPath = filepath.Join(cfg.CacheDir, "keyhole.db")
		}
		if cfg.LogPath == def.LogPath {
			cfg.LogPath = filepath.Join(cfg.CacheDir, "debug.log")
		}
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, cfg.Validate()
}

// Validate reports configuration that cannot produce a working client.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https, got %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url has no host: %q", c.BaseURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if c.SessionCheckInterval < 0 {
		return fmt.Errorf("session_check_interval must not be negative")
	}
	return nil
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
