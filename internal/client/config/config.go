package config

import "time"

// Config holds runtime settings for the CLI client.
type Config struct {
	// ServerBaseURL is the root of the backend REST API, e.g.
	// "http://127.0.0.1:8080".
	ServerBaseURL string

	// RequestTimeout bounds every API call.
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
