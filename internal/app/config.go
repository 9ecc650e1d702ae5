package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"turntable/internal/cachestore"
	"turntable/internal/observability"
	"turntable/internal/spotify"
	"turntable/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
	LogFormatOTLP LogFormat = "otlp"
)

// TokenStorageType represents the different storage types supported for the
// persisted token record.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigServerHost      = "127.0.0.1"
	DefaultConfigServerPort      = 8000 // matches the default redirect URI
	DefaultConfigShutdownTimeout = 5 * time.Second
	DefaultConfigTokenStorage    = TokenStorageTypeFile
)

// keyringService namespaces this application's entries in the OS keyring.
const keyringService = "turntable-token"

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// SpotifyConfig identifies the registered Spotify application. Fields left
// empty by file, environment and flags fall back to the SPOTIFY_* variables.
type SpotifyConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri" validate:"omitempty,url"`
}

// Credentials returns the configured identity in the authenticator's shape.
func (s *SpotifyConfig) Credentials() spotify.Credentials {
	return spotify.Credentials{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURI:  s.RedirectURI,
	}
}

// TokensConfig describes where the session's token record is persisted.
type TokensConfig struct {
	Storage TokenStorageType `json:"storage" validate:"required,oneof=file keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to the record
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewStore creates the token store described by the configuration.
func (t *TokensConfig) NewStore() (tokenstore.Store, error) {
	switch t.Storage {
	case TokenStorageTypeFile:
		return tokenstore.NewFileStore(t.File)
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyringStore(keyringService, t.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", t.Storage)
	}
}

// CacheConfig locates the directory holding cached API data.
type CacheConfig struct {
	Dir string `json:"dir"`
}

// NewStore creates the cache store rooted at the configured directory.
func (c *CacheConfig) NewStore() (cachestore.Store, error) {
	return cachestore.NewFileStore(c.Dir)
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json otlp"`
	Server    ServerConfig   `json:"server"`
	Shutdown  ShutdownConfig `json:"shutdown"`
	Spotify   SpotifyConfig  `json:"spotify"`
	Tokens    TokensConfig   `json:"tokens"`
	Cache     CacheConfig    `json:"cache"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormat(observability.DefaultFormat())
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Tokens.Storage == "" {
		c.Tokens.Storage = DefaultConfigTokenStorage
	}

	// The SPOTIFY_* environment fills whatever file, TURNTABLE_* environment
	// and flags left unset.
	env := spotify.CredentialsFromEnv()
	if c.Spotify.ClientID == "" {
		c.Spotify.ClientID = env.ClientID
	}
	if c.Spotify.ClientSecret == "" {
		c.Spotify.ClientSecret = env.ClientSecret
	}
	if c.Spotify.RedirectURI == "" {
		// CredentialsFromEnv already fell back to the default redirect URI.
		c.Spotify.RedirectURI = env.RedirectURI
	}

	// Dynamic defaults based on storage type
	switch c.Tokens.Storage {
	case TokenStorageTypeFile:
		if c.Tokens.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("tokens.file required (auto-detect failed: %w)", err)
			}
			c.Tokens.File = filepath.Join(configDir, "turntable", "token.json")
		}
	case TokenStorageTypeKeyring:
		if c.Tokens.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("tokens.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Tokens.KeyringUser = currentUser.Username
		}
	}

	if c.Cache.Dir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("cache.dir required (auto-detect failed: %w)", err)
		}
		c.Cache.Dir = filepath.Join(cacheDir, "turntable")
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// Client credentials have no defaults; report them by the environment
	// variables that would supply them.
	var missing []string
	if c.Spotify.ClientID == "" {
		missing = append(missing, spotify.EnvClientID)
	}
	if c.Spotify.ClientSecret == "" {
		missing = append(missing, spotify.EnvClientSecret)
	}
	if len(missing) > 0 {
		return &spotify.MissingCredentialsError{Missing: missing}
	}

	switch c.Tokens.Storage {
	case TokenStorageTypeFile:
		if c.Tokens.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeKeyring:
		if c.Tokens.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	if c.Cache.Dir == "" {
		return errors.New("cache directory required")
	}

	return nil
}
