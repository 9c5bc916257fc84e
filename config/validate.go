package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the loaded config for consistent and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := validateLexiconConfig(cfg.Lexicon); err != nil {
		return err
	}

	if cfg.Classifier.BaseURL != "" {
		u, err := url.Parse(cfg.Classifier.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("classifier.base_url %q must be an absolute http(s) URL", cfg.Classifier.BaseURL)
		}
	}
	if cfg.Classifier.Timeout < 0 {
		return errors.New("classifier.timeout must be >= 0")
	}
	if cfg.Cache.TTL < 0 {
		return errors.New("cache.ttl must be >= 0")
	}
	if cfg.Cache.MaxBytes < 0 {
		return errors.New("cache.max_bytes must be >= 0")
	}
	if cfg.Batch.Workers < 0 {
		return errors.New("batch.workers must be >= 0")
	}
	if cfg.MaxTextSize < 0 {
		return errors.New("max_text_size must be >= 0")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", cfg.Logging.Format)
	}

	return nil
}

func validateLexiconConfig(l LexiconConfig) error {
	path := strings.TrimSpace(l.Path)
	dsn := strings.TrimSpace(l.SQL.DSN)
	if path != "" && dsn != "" {
		return errors.New("lexicon.path and lexicon.sql.dsn are mutually exclusive")
	}
	if dsn != "" && strings.TrimSpace(l.SQL.Driver) == "" {
		return errors.New("lexicon.sql.driver must be set when lexicon.sql.dsn is set")
	}
	if strings.ContainsAny(l.SQL.Table, " ;'\"") {
		return fmt.Errorf("lexicon.sql.table %q is not a plain identifier", l.SQL.Table)
	}
	return nil
}
