package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env     string  `yaml:"env" env:"LIBRARY_ENV" env-default:"local"`
	API     API     `yaml:"api"`
	Storage Storage `yaml:"storage"`
	Session Session `yaml:"session"`
	Log     Log     `yaml:"log"`
}

type API struct {
	BaseURL string `yaml:"base_url" env:"LIBRARY_API_BASE"`
}

type Storage struct {
	Path string `yaml:"path" env:"LIBRARY_STATE_PATH"`
}

type Session struct {
	// RevalidateExpiry re-checks the token's exp claim before every request
	// instead of only at startup.
	RevalidateExpiry bool `yaml:"revalidate_expiry" env:"LIBRARY_REVALIDATE_EXPIRY" env-default:"false"`
}

type Log struct {
	Level string `yaml:"level" env:"LIBRARY_LOG_LEVEL" env-default:"warn"`
	Path  string `yaml:"path" env:"LIBRARY_LOG_PATH" env-default:"stderr"`
}

var ErrMissingBaseURL = errors.New("api base url is not set (LIBRARY_API_BASE or api.base_url)")

// Load reads an optional .env file, then configPath (if non-empty) with
// environment overrides, or the environment alone.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	var cfg Config
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStatePath()
	}
	return &cfg, nil
}

// Validate checks the settings every API-talking command needs.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return ErrMissingBaseURL
	}
	return nil
}

// DefaultStatePath is <user config dir>/library-client/state.db, falling back
// to the working directory.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "library-state.db"
	}
	return filepath.Join(dir, "library-client", "state.db")
}
