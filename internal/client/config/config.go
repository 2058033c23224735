package config

import (
	"errors"
	"net/url"
	"os"
	"time"
)

// Config holds runtime settings for the chantube CLI.
//
// Fields:
//   - ServerURL: base URL of the account HTTP API.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - RequestTimeout: per-request deadline for API calls.
type Config struct {
	ServerURL           string        `env:"CHANTUBE_SERVER_URL"`
	OnlineCheckInterval time.Duration `env:"CHANTUBE_ONLINE_CHECK_INTERVAL"`
	RequestTimeout      time.Duration `env:"CHANTUBE_REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
}

// Validate reports settings the client cannot start with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("server URL must be absolute, e.g. http://host:8000")
	}
	if c.OnlineCheckInterval <= 0 {
		return errors.New("online check interval must be positive")
	}
	return nil
}

// LoadConfig builds a Config from os.Args and the process environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load applies defaults, JSON, environment and flags from args, then validates.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
