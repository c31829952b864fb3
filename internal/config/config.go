package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTokenEnv is the environment variable the API token is read from.
const DefaultTokenEnv = "PRODUCTBOARD_API_TOKEN"

// Config holds settings loaded from pbscope.yml.
type Config struct {
	API       APIConfig       `yaml:"api,omitempty"`
	Auth      AuthConfig      `yaml:"auth,omitempty"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`
	Cache     CacheConfig     `yaml:"cache,omitempty"`
	LogLevel  string          `yaml:"logLevel,omitempty"`
	LogFormat string          `yaml:"logFormat,omitempty"` // "text" or "json"
}

// APIConfig configures the HTTP transport.
type APIConfig struct {
	BaseURL string        `yaml:"baseUrl,omitempty"`
	Version string        `yaml:"version,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// AuthConfig locates the API token.
type AuthConfig struct {
	Token    string `yaml:"token,omitempty"`
	TokenEnv string `yaml:"tokenEnv,omitempty"`
}

// DiscoveryConfig tunes the probe runner.
type DiscoveryConfig struct {
	ProbeInterval time.Duration `yaml:"probeInterval,omitempty"`
	Workers       int           `yaml:"workers,omitempty"`
}

// CacheConfig configures the in-memory permission cache used by the MCP
// server.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled,omitempty"`
	TTL     time.Duration `yaml:"ttl,omitempty"`
	MaxSize int           `yaml:"maxSize,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://api.productboard.com",
			Version: "1",
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{TokenEnv: DefaultTokenEnv},
		Discovery: DiscoveryConfig{
			ProbeInterval: 100 * time.Millisecond,
			Workers:       1,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     15 * time.Minute,
			MaxSize: 16,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load attempts to read pbscope.yml or pbscope.yaml from the given
// directory. Values in the file override the defaults. Returns the defaults
// (not an error) if no config file exists.
func Load(dir string) (*Config, error) {
	cfg := Default()
	for _, name := range []string{"pbscope.yml", "pbscope.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		return cfg, nil
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logFormat %q", c.LogFormat)
	}
	if c.Discovery.Workers < 0 {
		return fmt.Errorf("discovery.workers must not be negative")
	}
	if c.Discovery.ProbeInterval < 0 {
		return fmt.Errorf("discovery.probeInterval must not be negative")
	}
	return nil
}

// ResolveToken returns the API token, preferring the environment variable
// named by auth.tokenEnv over auth.token from the file.
func (c *Config) ResolveToken() string {
	env := c.Auth.TokenEnv
	if env == "" {
		env = DefaultTokenEnv
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return c.Auth.Token
}

// NewLogger builds a structured logger writing to w at the configured level
// and format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown logLevel %q", s)
	}
}
