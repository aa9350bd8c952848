// Package config handles the configuration directory, environment settings
// and the stored session token.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"golang.org/x/oauth2"
)

const (
	// AppName is the application directory name.
	AppName = "rsm"

	// TokenFile is the stored session token filename.
	TokenFile = "token.json"

	// LogFile is the default log filename inside the config directory.
	LogFile = "rsm.log"
)

// ErrNoToken is returned when no session token is stored.
var ErrNoToken = errors.New("not logged in")

// Env is the environment-driven part of the configuration.
type Env struct {
	APIURL    string        `env:"RSM_API_URL" env-default:"http://100.97.63.15:10001" env-description:"base URL of the task service"`
	Timeout   time.Duration `env:"RSM_TIMEOUT" env-default:"10s" env-description:"per-request timeout"`
	LogFile   string        `env:"RSM_LOG_FILE" env-description:"log file path, defaults to rsm.log in the config directory"`
	ConfigDir string        `env:"RSM_CONFIG_DIR" env-description:"configuration directory"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// APIURL is the base URL of the task service, without trailing slash.
	APIURL string

	// Timeout bounds each request.
	Timeout time.Duration

	// LogPath is where log records are appended.
	LogPath string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// ReadEnv reads the RSM_* environment variables.
func ReadEnv() (Env, error) {
	var env Env
	if err := cleanenv.ReadEnv(&env); err != nil {
		return Env{}, fmt.Errorf("read environment: %w", err)
	}
	return env, nil
}

// New creates a Config. The directory is configDir if set, then
// RSM_CONFIG_DIR, then the XDG default.
func New(configDir string) (*Config, error) {
	env, err := ReadEnv()
	if err != nil {
		return nil, err
	}

	dir := configDir
	if dir == "" {
		dir = env.ConfigDir
	}
	if dir == "" {
		dir = DefaultConfigDir()
	}

	if env.Timeout <= 0 {
		return nil, fmt.Errorf("invalid RSM_TIMEOUT: %s", env.Timeout)
	}

	logPath := env.LogFile
	if logPath == "" {
		logPath = filepath.Join(dir, LogFile)
	}

	return &Config{
		Dir:     dir,
		APIURL:  strings.TrimRight(env.APIURL, "/"),
		Timeout: env.Timeout,
		LogPath: logPath,
	}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// TokenPath returns the path to the stored session token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// LoadToken reads the stored token. It returns ErrNoToken when the file is
// missing or holds no access token.
func (c *Config) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.TokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TokenFile, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", TokenFile, err)
	}
	if token.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &token, nil
}

// SaveToken writes token to the token file with mode 0600.
func (c *Config) SaveToken(token *oauth2.Token) error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.TokenPath(), data, 0600)
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
