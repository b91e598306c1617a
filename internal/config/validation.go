package config

import (
	"net/url"
	"time"

	ferrors "github.com/fairspec/profilepub/internal/foundation/errors"
)

// Validate checks the configuration for values the publisher cannot work with.
// Rule tables are validated by the profiles package once converted.
func (c *Config) Validate() error {
	if c.Version != currentConfigVersion {
		return ferrors.ConfigError("unsupported configuration version").
			WithContext("version", c.Version).
			Build()
	}

	u, err := url.Parse(c.Site.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ferrors.ConfigError("site.url must be an absolute URL").
			WithContext("url", c.Site.URL).
			Build()
	}

	if c.Profiles.TemplateDir == c.Profiles.OutputRoot {
		return ferrors.ConfigError("profiles.template_dir and profiles.output_root must differ").
			WithContext("path", c.Profiles.TemplateDir).
			Build()
	}

	for i, r := range c.Rules {
		if r.Placeholder == "" || r.Path == "" || len(r.Files) == 0 {
			return ferrors.ConfigError("rule requires placeholder, path and files").
				WithContext("index", i).
				Build()
		}
	}

	if c.Notify.Retries < 0 {
		return ferrors.ConfigError("notify.retries cannot be negative").
			WithContext("retries", c.Notify.Retries).
			Build()
	}
	switch c.Notify.Backoff {
	case "", "fixed", "linear", "exponential":
	default:
		return ferrors.ConfigError("notify.backoff must be fixed, linear or exponential").
			WithContext("backoff", c.Notify.Backoff).
			Build()
	}

	durations := map[string]string{
		"notify.timeout":        c.Notify.Timeout,
		"notify.retry_initial":  c.Notify.RetryInitial,
		"watch.debounce":        c.Watch.Debounce,
		"watch.resync_interval": c.Watch.ResyncInterval,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return ferrors.ConfigError("invalid duration").
				WithContext("field", field).
				WithContext("value", value).
				Build()
		}
	}

	return nil
}

// NotifyTimeout returns the parsed notification timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return parseDurationOr(c.Notify.Timeout, 5*time.Second)
}

// NotifyRetryInitial returns the delay before the first notification retry.
func (c *Config) NotifyRetryInitial() time.Duration {
	return parseDurationOr(c.Notify.RetryInitial, 500*time.Millisecond)
}

// WatchDebounce returns the parsed watch debounce window.
func (c *Config) WatchDebounce() time.Duration {
	return parseDurationOr(c.Watch.Debounce, 500*time.Millisecond)
}

// ResyncInterval returns the periodic resync interval, zero when disabled.
func (c *Config) ResyncInterval() time.Duration {
	return parseDurationOr(c.Watch.ResyncInterval, 0)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
