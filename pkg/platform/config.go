// Package platform assembles the search service from its configuration.
package platform

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentConfigVersion is the only supported config API version.
const CurrentConfigVersion = "v1"

// Provider names accepted in upstream.provider.
const (
	ProviderSynthetic = "synthetic"
	ProviderLiveQuote = "livequote"
)

const defaultServerName = "trip-planner"

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Config holds the complete service configuration.
type Config struct {
	APIVersion string         `yaml:"apiVersion"`
	Server     ServerConfig   `yaml:"server"`
	Log        LogConfig      `yaml:"log"`
	Search     SearchConfig   `yaml:"search"`
	Upstream   UpstreamConfig `yaml:"upstream"`
	Database   DatabaseConfig `yaml:"database"`
	Audit      AuditConfig    `yaml:"audit"`
	MCP        MCPConfig      `yaml:"mcp"`
	Admin      AdminConfig    `yaml:"admin"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Name            string        `yaml:"name"`
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures the default slog logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SearchConfig configures session lifetimes.
type SearchConfig struct {
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// PollInterval is what the bundled client uses between polls.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// UpstreamConfig selects and configures the flight data provider.
type UpstreamConfig struct {
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	Market   string        `yaml:"market"`
	Locale   string        `yaml:"locale"`
	Currency string        `yaml:"currency"`

	// Batches is how many calls the synthetic provider takes to complete.
	Batches int `yaml:"batches"`

	// DisableFallback turns off serving synthetic data when the live
	// provider fails to start a search.
	DisableFallback bool `yaml:"disable_fallback"`
}

// DatabaseConfig configures the PostgreSQL connection for the audit log.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// AuditConfig configures search auditing.
type AuditConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// MCPConfig configures the MCP tool surface.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AdminConfig configures the admin API.
type AdminConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns a configuration that runs with no file: synthetic
// provider, no database, every surface enabled.
func DefaultConfig() *Config {
	cfg := &Config{
		MCP:   MCPConfig{Enabled: true},
		Admin: AdminConfig{Enabled: true},
		Audit: AuditConfig{Enabled: true},
	}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML config bytes, expanding ${VAR} references and
// applying defaults.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	cfg := &Config{
		MCP:   MCPConfig{Enabled: true},
		Admin: AdminConfig{Enabled: true},
		Audit: AuditConfig{Enabled: true},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.APIVersion != "" && cfg.APIVersion != CurrentConfigVersion {
		return nil, fmt.Errorf("unsupported config apiVersion %q; supported versions: %s",
			cfg.APIVersion, CurrentConfigVersion)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = CurrentConfigVersion
	}
	if cfg.Server.Name == "" {
		cfg.Server.Name = defaultServerName
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 25 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Search.Retention == 0 {
		cfg.Search.Retention = 30 * time.Minute
	}
	if cfg.Search.SweepInterval == 0 {
		cfg.Search.SweepInterval = 5 * time.Minute
	}
	if cfg.Search.PollInterval == 0 {
		cfg.Search.PollInterval = 2 * time.Second
	}
	if cfg.Upstream.Provider == "" {
		cfg.Upstream.Provider = ProviderSynthetic
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 20 * time.Second
	}
	if cfg.Upstream.Market == "" {
		cfg.Upstream.Market = "US"
	}
	if cfg.Upstream.Locale == "" {
		cfg.Upstream.Locale = "en-US"
	}
	if cfg.Upstream.Currency == "" {
		cfg.Upstream.Currency = "USD"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 90
	}
	if cfg.MCP.Path == "" {
		cfg.MCP.Path = "/mcp"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	switch c.Upstream.Provider {
	case ProviderSynthetic:
	case ProviderLiveQuote:
		if c.Upstream.BaseURL == "" {
			errs = append(errs, "upstream.base_url is required for the livequote provider")
		}
		if c.Upstream.APIKey == "" {
			errs = append(errs, "upstream.api_key is required for the livequote provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("upstream.provider %q is not one of %s, %s",
			c.Upstream.Provider, ProviderSynthetic, ProviderLiveQuote))
	}

	if c.Search.Retention <= 0 {
		errs = append(errs, "search.retention must be positive")
	}
	if c.Search.SweepInterval <= 0 {
		errs = append(errs, "search.sweep_interval must be positive")
	}
	if c.Search.SweepInterval > c.Search.Retention {
		errs = append(errs, "search.sweep_interval must not exceed search.retention")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is not one of json, text", c.Log.Format))
	}

	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, "mcp.path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
