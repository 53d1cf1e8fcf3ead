package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Fetch       FetchConfig       `toml:"fetch"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	YouTube YouTubeConfig `toml:"youtube"`
}

// YouTubeConfig contains the Google OAuth client used to read YouTube data.
//
// The client may be given inline (ClientID/ClientSecret), as a path to a downloaded client-secrets JSON file, or as the
// JSON document itself (set from the GOOGLE_CREDENTIALS environment variable).
type YouTubeConfig struct {
	ClientID          string `toml:"client_id"`
	ClientSecret      string `toml:"client_secret"`
	ClientSecretsPath string `toml:"client_secrets_path"`
	ClientSecretsJSON string `toml:"-"`
	RedirectURI       string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	SecretKey string `toml:"secret_key"`
	// MultiUser gives every browser session its own credential and overrides.
	// When false all sessions share [LocalUser] with the CLI.
	MultiUser bool `toml:"multi_user"`
}

// FetchConfig tunes how the YouTube Data API is called.
type FetchConfig struct {
	MaxPlaylists      int           `toml:"max_playlists"`
	MaxVideos         int           `toml:"max_videos"`
	MaxAttempts       int           `toml:"max_attempts"`
	InitialBackoff    time.Duration `toml:"initial_backoff"`
	MaxBackoff        time.Duration `toml:"max_backoff"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
	DailyQuota        int           `toml:"daily_quota"`
	QuotaReserve      int           `toml:"quota_reserve"`
	TokenSafetyMargin time.Duration `toml:"token_safety_margin"`
	// Endpoint overrides the API base URL. Empty uses Google's.
	Endpoint string `toml:"endpoint"`
}

// LogConfig controls log verbosity and the TUI log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults from [DefaultConfig].
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

// ApplyEnv overlays deployment-provided environment variables onto the config.
//
// lookup is usually [os.LookupEnv]; tests pass a map-backed function.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("YTCAT_CLIENT_ID"); ok && v != "" {
		c.Credentials.YouTube.ClientID = v
	}
	if v, ok := lookup("YTCAT_CLIENT_SECRET"); ok && v != "" {
		c.Credentials.YouTube.ClientSecret = v
	}
	if v, ok := lookup("CREDENTIALS_PATH"); ok && v != "" {
		c.Credentials.YouTube.ClientSecretsPath = v
	}
	if v, ok := lookup("GOOGLE_CREDENTIALS"); ok && v != "" {
		c.Credentials.YouTube.ClientSecretsJSON = v
	}
	if v, ok := lookup("OAUTH_REDIRECT_URI"); ok && v != "" {
		c.Credentials.YouTube.RedirectURI = v
	}
	if v, ok := lookup("SECRET_KEY"); ok && v != "" {
		c.Server.SecretKey = v
	}
	if v, ok := lookup("YTCAT_DB_PATH"); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q is not a number", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate reports settings that would make the pipeline unusable.
func (c *Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is empty", ErrInvalidConfig)
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	case c.Fetch.MaxAttempts < 1:
		return fmt.Errorf("%w: fetch.max_attempts must be at least 1", ErrInvalidConfig)
	case c.Fetch.RequestsPerSecond <= 0:
		return fmt.Errorf("%w: fetch.requests_per_second must be positive", ErrInvalidConfig)
	case c.Fetch.DailyQuota <= 0:
		return fmt.Errorf("%w: fetch.daily_quota must be positive", ErrInvalidConfig)
	case c.Fetch.QuotaReserve < 0 || c.Fetch.QuotaReserve >= c.Fetch.DailyQuota:
		return fmt.Errorf("%w: fetch.quota_reserve must be within [0, daily_quota)", ErrInvalidConfig)
	}
	return nil
}

// HasClient reports whether any OAuth client source is configured.
func (y YouTubeConfig) HasClient() bool {
	return y.ClientSecretsJSON != "" || y.ClientSecretsPath != "" || (y.ClientID != "" && y.ClientSecret != "")
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
