package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultRedirectURI is the callback scheme registered with the provider.
const DefaultRedirectURI = "obsidian://music-vault-callback"

// Config represents the application configuration loaded from a TOML file.
//
// Every key can be overridden by the environment variable named in its env tag.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Vault    VaultConfig    `toml:"vault"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// SpotifyConfig contains the public PKCE client settings. There is no client secret.
type SpotifyConfig struct {
	ClientID          string   `toml:"client_id" env:"MUSICVAULT_CLIENT_ID"`
	RedirectURI       string   `toml:"redirect_uri" env:"MUSICVAULT_REDIRECT_URI"`
	Scopes            []string `toml:"scopes" env:"MUSICVAULT_SCOPES" env-separator:" "`
	RequestsPerSecond float64  `toml:"requests_per_second" env:"MUSICVAULT_RPS"`
}

// VaultConfig locates the note vault and the song-note folder inside it.
type VaultConfig struct {
	Path        string `toml:"path" env:"MUSICVAULT_VAULT_PATH"`
	Name        string `toml:"name" env:"MUSICVAULT_VAULT_NAME"`
	Folder      string `toml:"folder" env:"MUSICVAULT_FOLDER"`
	MaxFilename int    `toml:"max_filename" env:"MUSICVAULT_MAX_FILENAME"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"MUSICVAULT_DB_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig is the loopback listener that relays redirect navigations.
type ServerConfig struct {
	Host string `toml:"host" env:"MUSICVAULT_HOST"`
	Port int    `toml:"port" env:"MUSICVAULT_PORT"`
}

// Addr returns host:port for the relay listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads a TOML configuration file on top of the defaults, then applies
// environment overrides. A .env file in the working directory is loaded first if present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: failed to load .env: %v", ErrInvalidConfig, err)
	}

	config := DefaultConfig()
	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return config, nil
}

// DefaultConfig returns a Config with defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile writes the embedded example config to path. Fails if the file exists.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the settings required to talk to the provider.
func (c *Config) Validate() error {
	id := strings.TrimSpace(c.Spotify.ClientID)
	if id == "" || id == "your_spotify_client_id" {
		return fmt.Errorf("%w: spotify.client_id must be set", ErrInvalidConfig)
	}
	if c.Spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify.redirect_uri must be set", ErrInvalidConfig)
	}
	if len(c.Spotify.Scopes) == 0 {
		return fmt.Errorf("%w: spotify.scopes must not be empty", ErrInvalidConfig)
	}
	if c.Vault.Folder == "" {
		return fmt.Errorf("%w: vault.folder must be set", ErrInvalidConfig)
	}
	return nil
}
