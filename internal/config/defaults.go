package config

import "strings"

const (
	DefaultSiteURL       = "https://fairspec.org"
	DefaultProfilesPath  = "profiles"
	DefaultTemplateDir   = "profiles"
	DefaultOutputRoot    = "public/profiles"
	DefaultLatestTag     = "latest"
	DefaultMetadataFile  = "package.json"
	DefaultHistoryPath   = ".profilepub/history.db"
	DefaultHistoryLimit  = 20
	DefaultNotifySubject = "fairspec.profiles.published"
	DefaultNotifyTimeout = "5s"
	DefaultWatchDebounce = "500ms"
	currentConfigVersion = "1"
)

// Default returns the configuration written by `profilepub init`.
// Rules are left empty so the built-in rule table applies.
func Default() *Config {
	cfg := &Config{History: HistoryConfig{Enabled: true}}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = currentConfigVersion
	}
	if cfg.Site.URL == "" {
		cfg.Site.URL = DefaultSiteURL
	}
	cfg.Site.URL = strings.TrimRight(cfg.Site.URL, "/")
	if cfg.Site.ProfilesPath == "" {
		cfg.Site.ProfilesPath = DefaultProfilesPath
	}
	cfg.Site.ProfilesPath = strings.Trim(cfg.Site.ProfilesPath, "/")

	if cfg.Profiles.TemplateDir == "" {
		cfg.Profiles.TemplateDir = DefaultTemplateDir
	}
	if cfg.Profiles.OutputRoot == "" {
		cfg.Profiles.OutputRoot = DefaultOutputRoot
	}
	if cfg.Profiles.LatestTag == "" {
		cfg.Profiles.LatestTag = DefaultLatestTag
	}

	if cfg.Release.MetadataFile == "" {
		cfg.Release.MetadataFile = DefaultMetadataFile
	}

	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.Limit <= 0 {
		cfg.History.Limit = DefaultHistoryLimit
	}

	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if cfg.Notify.Timeout == "" {
		cfg.Notify.Timeout = DefaultNotifyTimeout
	}

	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
}

// ProfilesBaseURL is the absolute URL under which tags are published,
// e.g. https://fairspec.org/profiles.
func (c *Config) ProfilesBaseURL() string {
	if c.Site.ProfilesPath == "" {
		return c.Site.URL
	}
	return c.Site.URL + "/" + c.Site.ProfilesPath
}
