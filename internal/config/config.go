package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
)

// Config represents the profilepub configuration file.
type Config struct {
	Version  string         `yaml:"version"`
	Site     SiteConfig     `yaml:"site"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Release  ReleaseConfig  `yaml:"release"`
	Rules    []RuleConfig   `yaml:"rules,omitempty"`
	History  HistoryConfig  `yaml:"history"`
	Notify   NotifyConfig   `yaml:"notify"`
	Watch    WatchConfig    `yaml:"watch"`
}

// SiteConfig describes the published documentation site.
type SiteConfig struct {
	URL          string `yaml:"url"`
	ProfilesPath string `yaml:"profiles_path"`
	ContentDir   string `yaml:"content_dir,omitempty"`
}

// ProfilesConfig locates the template tree and the published copies.
type ProfilesConfig struct {
	TemplateDir string `yaml:"template_dir"`
	OutputRoot  string `yaml:"output_root"`
	LatestTag   string `yaml:"latest_tag"`
}

// ReleaseConfig points at the release metadata the version is read from.
type ReleaseConfig struct {
	MetadataFile string `yaml:"metadata_file"`
}

// RuleConfig declares one placeholder substitution.
type RuleConfig struct {
	Placeholder string   `yaml:"placeholder"`
	Path        string   `yaml:"path"`
	Files       []string `yaml:"files"`
	Extensions  []string `yaml:"extensions,omitempty"`
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Limit   int    `yaml:"limit,omitempty"`
}

// NotifyConfig configures the optional NATS publish notification.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`

	// Retries is the number of extra attempts after a failed send.
	Retries      int    `yaml:"retries,omitempty"`
	Backoff      string `yaml:"backoff,omitempty"` // fixed|linear|exponential
	RetryInitial string `yaml:"retry_initial,omitempty"`
}

// Enabled reports whether notifications are configured.
func (n NotifyConfig) Enabled() bool { return n.NATSURL != "" }

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce       string `yaml:"debounce,omitempty"`
	ResyncInterval string `yaml:"resync_interval,omitempty"`
	MetricsAddr    string `yaml:"metrics_addr,omitempty"`
}

// Load reads, expands, defaults and validates the configuration at configPath.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	return Parse(data)
}

// Parse decodes configuration YAML, expanding ${VAR} references from the environment.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile loads .env/.env.local, stopping at the first file that parses.
// Existing process environment variables are never overwritten.
func loadEnvFile() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
			return
		}
	}
}

// Init writes the default configuration to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	cfg := Default()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return ferrors.InternalError("failed to marshal config").WithCause(err).Build()
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	return nil
}
