package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/dailyverse/config.yaml"

// Config holds all dailyverse configuration.
type Config struct {
	Archive      ArchiveConfig      `yaml:"archive"`
	Storage      StorageConfig      `yaml:"storage"`
	Selector     SelectorConfig     `yaml:"selector"`
	Bundled      BundledConfig      `yaml:"bundled"`
	Notification NotificationConfig `yaml:"notification"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ArchiveConfig struct {
	URLTemplate    string        `yaml:"url_template" env:"DAILYVERSE_ARCHIVE_URL_TEMPLATE"`
	Dataset        string        `yaml:"dataset" env:"DAILYVERSE_ARCHIVE_DATASET"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"DAILYVERSE_ARCHIVE_CONNECT_TIMEOUT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"DAILYVERSE_ARCHIVE_READ_TIMEOUT"`
}

type StorageConfig struct {
	Path              string `yaml:"path" env:"DAILYVERSE_STORAGE_PATH"`
	SQLiteFile        string `yaml:"sqlite_file" env:"DAILYVERSE_STORAGE_SQLITE_FILE"`
	CacheDir          string `yaml:"cache_dir" env:"DAILYVERSE_STORAGE_CACHE_DIR"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode" env:"DAILYVERSE_STORAGE_SQLITE_JOURNAL_MODE"`
}

type SelectorConfig struct {
	BalanceOrder    bool `yaml:"balance_order" env:"DAILYVERSE_SELECTOR_BALANCE_ORDER"`
	SessionRotation bool `yaml:"session_rotation" env:"DAILYVERSE_SELECTOR_SESSION_ROTATION"`
}

type BundledConfig struct {
	DefaultDataset string   `yaml:"default_dataset" env:"DAILYVERSE_BUNDLED_DEFAULT_DATASET"`
	Datasets       []string `yaml:"datasets" env:"DAILYVERSE_BUNDLED_DATASETS"`
}

type NotificationConfig struct {
	Time string `yaml:"time" env:"DAILYVERSE_NOTIFICATION_TIME"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"DAILYVERSE_LOG_LEVEL"`
	Format string `yaml:"format" env:"DAILYVERSE_LOG_FORMAT"`
	File   string `yaml:"file" env:"DAILYVERSE_LOG_FILE"`
}

// Load reads a YAML config file at path, merges it with defaults and applies
// DAILYVERSE_* environment overrides.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with any DAILYVERSE_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if c.Archive.URLTemplate == "" {
		return fmt.Errorf("archive.url_template must not be empty")
	}
	if c.Archive.Dataset == "" {
		return fmt.Errorf("archive.dataset must not be empty")
	}
	if c.Archive.ConnectTimeout < 0 || c.Archive.ReadTimeout < 0 {
		return fmt.Errorf("archive timeouts must not be negative")
	}
	if len(c.Bundled.Datasets) > 0 && !lo.Contains(c.Bundled.Datasets, c.Bundled.DefaultDataset) {
		return fmt.Errorf("bundled.default_dataset %q is not listed in bundled.datasets", c.Bundled.DefaultDataset)
	}
	return nil
}

// DBPath returns the SQLite database file with ~ expanded.
func (c *Config) DBPath() (string, error) {
	return expandPath(filepath.Join(c.Storage.Path, c.Storage.SQLiteFile))
}

// CacheDirPath returns the archive cache directory with ~ expanded. A
// relative cache_dir is resolved against storage.path.
func (c *Config) CacheDirPath() (string, error) {
	dir := c.Storage.CacheDir
	if dir == "" || (!filepath.IsAbs(dir) && dir[0] != '~') {
		dir = filepath.Join(c.Storage.Path, dir)
	}
	return expandPath(dir)
}

// LogFilePath returns the log file with ~ expanded, or "" for stderr. A
// relative file is resolved against storage.path.
func (c *Config) LogFilePath() (string, error) {
	file := c.Logging.File
	if file == "" {
		return "", nil
	}
	if !filepath.IsAbs(file) && file[0] != '~' {
		file = filepath.Join(c.Storage.Path, file)
	}
	return expandPath(file)
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		if err := ApplyEnv(cfg); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}

	return Load(path)
}
