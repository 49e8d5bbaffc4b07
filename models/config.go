// Package models defines the configuration shared by the lilypads commands.
package models

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when --config is not given.
const DefaultConfigFile = "lilypads.yaml"

// Config is the YAML configuration file. Command-line flags and LILYPADS_*
// environment variables take precedence over it.
type Config struct {
	Database string        `yaml:"database"`
	Server   ServerConfig  `yaml:"server"`
	Convert  ConvertConfig `yaml:"convert"`
}

// ServerConfig configures lilypads serve.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	DataDir    string `yaml:"data_dir"`
	ContentDir string `yaml:"content_dir"`
	DistDir    string `yaml:"dist_dir"`
	// BehindProxy trusts X-Forwarded-* headers from a reverse proxy.
	BehindProxy   bool `yaml:"behind_proxy"`
	SecureCookies bool `yaml:"secure_cookies"`
	// LogFile and AccessLog are rotated files; empty means stderr.
	LogFile     string        `yaml:"log_file"`
	AccessLog   string        `yaml:"access_log"`
	LogBackups  int           `yaml:"log_backups"`
	LogMaxSize  int           `yaml:"log_max_size_mb"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	RememberTTL time.Duration `yaml:"remember_ttl"`
}

// ConvertConfig configures lilypads convert.
type ConvertConfig struct {
	Geolocations string `yaml:"geolocations"`
	// Stopwords is a directory of stopwords.<iso>.txt files; empty uses the
	// embedded lists.
	Stopwords   string   `yaml:"stopwords"`
	Language    string   `yaml:"language"`
	Workers     int      `yaml:"workers"`
	DropColumns []string `yaml:"drop_columns"`
	// ExtraWords lists words forced into the wordclouds of a CSV file,
	// keyed by the file's base name.
	ExtraWords map[string][]string `yaml:"extra_words"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: "users.db",
		Server: ServerConfig{
			Addr:        ":8000",
			DataDir:     "data",
			ContentDir:  "content",
			DistDir:     "dist",
			LogBackups:  10,
			LogMaxSize:  100,
			SessionTTL:  12 * time.Hour,
			RememberTTL: 365 * 24 * time.Hour,
		},
		Convert: ConvertConfig{
			Geolocations: "geolocations.d",
			Language:     "English",
			DropColumns:  []string{"translated"},
			ExtraWords: map[string][]string{
				"cs2_geolocated_translated.csv": {"kossuth"},
			},
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. A missing file
// is only an error when mustExist is set.
func LoadConfig(path string, mustExist bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !mustExist {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ExtraWordsFor returns the configured extra words for a CSV file.
func (c *ConvertConfig) ExtraWordsFor(csvPath string) []string {
	return c.ExtraWords[filepath.Base(csvPath)]
}
