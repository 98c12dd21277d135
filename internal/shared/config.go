package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file and the environment.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Playlist    PlaylistConfig    `toml:"playlist"`
	Metrics     MetricsConfig     `toml:"metrics"`
	LogLevel    string            `toml:"log_level"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
//
// ClientID/ClientSecret drive the client-credentials grant used by the pipeline;
// RefreshToken/UserID are only needed by the playlist job.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	RefreshToken string `toml:"refresh_token"`
	UserID       string `toml:"user_id"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the local callback server settings for the auth helper.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// PipelineConfig contains ranking pipeline settings.
type PipelineConfig struct {
	SnapshotDate      string  `toml:"snapshot_date"`
	WeekEndDate       string  `toml:"week_end_date"`
	Timezone          string  `toml:"timezone"`
	Market            string  `toml:"market"`
	BatchSize         int     `toml:"batch_size"`
	TopTracks         int     `toml:"top_tracks"`
	ReleaseWindowDays int     `toml:"release_window_days"`
	RetryRounds       int     `toml:"retry_rounds"`
	RetryDelaySecs    int     `toml:"retry_delay_secs"`
	RisingThreshold   float64 `toml:"rising_threshold"`
	HighlightCount    int     `toml:"highlight_count"`
	DebugGroupID      string  `toml:"debug_group_id"`
}

// CatalogConfig contains catalog API client settings.
type CatalogConfig struct {
	BaseURL            string  `toml:"base_url"`
	TokenURL           string  `toml:"token_url"`
	AuthURL            string  `toml:"auth_url"`
	MaxAttempts        int     `toml:"max_attempts"`
	RequestTimeoutSecs int     `toml:"request_timeout_secs"`
	TokenMarginSecs    int     `toml:"token_margin_secs"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
	Burst              int     `toml:"burst"`
	BreakerThreshold   int     `toml:"breaker_threshold"`
	BreakerCooldownSec int     `toml:"breaker_cooldown_secs"`
}

// PlaylistConfig contains weekly playlist settings.
type PlaylistConfig struct {
	BaseName    string `toml:"base_name"`
	Description string `toml:"description"`
	Size        int    `toml:"size"`
}

// MetricsConfig contains Prometheus Pushgateway settings.
type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url"`
	JobName        string `toml:"job_name"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process environment.
//
// A missing file is not an error; existing variables are never overwritten.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values with environment variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("SNAPSHOT_DATE", &c.Pipeline.SnapshotDate)
	str("WEEK_END_DATE", &c.Pipeline.WeekEndDate)
	str("TIMEZONE", &c.Pipeline.Timezone)
	str("SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID)
	str("SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret)
	str("SPOTIFY_REFRESH_TOKEN", &c.Credentials.Spotify.RefreshToken)
	str("SPOTIFY_USER_ID", &c.Credentials.Spotify.UserID)
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.Path)
	str("PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("WEEKLY_DEBUG_GROUP_ID", &c.Pipeline.DebugGroupID)

	if v, ok := lookup("BATCH_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: BATCH_SIZE=%q", ErrInvalidConfig, v)
		}
		c.Pipeline.BatchSize = n
	}

	return nil
}

// Validate checks settings every job depends on.
func (c *Config) Validate() error {
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.Pipeline.BatchSize)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrMissingConfig)
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if _, err := LoadLocation(c.Pipeline.Timezone); err != nil {
		return err
	}
	if c.Catalog.BreakerThreshold > 0 {
		cooldown := c.Catalog.BreakerCooldown()
		if cooldown <= 0 || (c.Pipeline.RetryRounds > 0 && cooldown >= c.Pipeline.RetryDelay()) {
			return fmt.Errorf("%w: breaker_cooldown_secs must be positive and below retry_delay_secs (%s), got %s",
				ErrInvalidConfig, c.Pipeline.RetryDelay(), cooldown)
		}
	}
	for _, d := range []string{c.Pipeline.SnapshotDate, c.Pipeline.WeekEndDate} {
		if d == "" {
			continue
		}
		if _, err := ParseDate(d); err != nil {
			return err
		}
	}
	return nil
}

// RequireCatalogCredentials reports whether client-credentials settings are present.
func (c *Config) RequireCatalogCredentials() error {
	if c.Credentials.Spotify.ClientID == "" {
		return fmt.Errorf("%w: SPOTIFY_CLIENT_ID is required", ErrMissingCredentials)
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: SPOTIFY_CLIENT_SECRET is required", ErrMissingCredentials)
	}
	return nil
}

// RequireUserCredentials reports whether the refresh-token settings used by the playlist job are present.
func (c *Config) RequireUserCredentials() error {
	if err := c.RequireCatalogCredentials(); err != nil {
		return err
	}
	if c.Credentials.Spotify.RefreshToken == "" {
		return fmt.Errorf("%w: SPOTIFY_REFRESH_TOKEN is required", ErrMissingCredentials)
	}
	if c.Credentials.Spotify.UserID == "" {
		return fmt.Errorf("%w: SPOTIFY_USER_ID is required", ErrMissingCredentials)
	}
	return nil
}

// RetryDelay is the pause between self-healing collection rounds.
func (p PipelineConfig) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelaySecs) * time.Second
}

// RequestTimeout is the per-request HTTP timeout.
func (c CatalogConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// TokenMargin is subtracted from a token's lifetime before it is considered expired.
func (c CatalogConfig) TokenMargin() time.Duration {
	return time.Duration(c.TokenMarginSecs) * time.Second
}

// BreakerCooldown is how long an open breaker short-circuits calls.
func (c CatalogConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSec) * time.Second
}
