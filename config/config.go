package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds toxicity service configuration.
type Config struct {
	Lexicon     LexiconConfig    `yaml:"lexicon"`
	Scorer      ScorerConfig     `yaml:"scorer"`
	Classifier  ClassifierConfig `yaml:"classifier"`
	Cache       CacheConfig      `yaml:"cache"`
	Batch       BatchConfig      `yaml:"batch"`
	MaxTextSize int              `yaml:"max_text_size"` // runes; 0 selects the core default
	Logging     LoggingConfig    `yaml:"logging"`
}

// LexiconConfig selects where category records come from. With neither a
// path nor a SQL DSN the built-in table is used.
type LexiconConfig struct {
	Path string    `yaml:"path"`
	SQL  SQLConfig `yaml:"sql"`
}

type SQLConfig struct {
	Driver string `yaml:"driver"` // e.g. "pgx"
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
	// Seed writes the built-in table into an empty database on startup.
	Seed bool `yaml:"seed"`
}

type ScorerConfig struct {
	DisableCaps           bool `yaml:"disable_caps"`
	DisablePunctuation    bool `yaml:"disable_punctuation"`
	DisableRepetition     bool `yaml:"disable_repetition"`
	DisablePersonalAttack bool `yaml:"disable_personal_attack"`
	LexiconOnly           bool `yaml:"lexicon_only"`
}

type ClassifierConfig struct {
	BaseURL   string        `yaml:"base_url"`    // empty disables external models
	APIKeyEnv string        `yaml:"api_key_env"` // e.g. "TOXICITY_MODEL_KEY"
	Timeout   time.Duration `yaml:"timeout"`
	Text      bool          `yaml:"text"`
	Image     bool          `yaml:"image"`
}

type CacheConfig struct {
	Disabled bool          `yaml:"disabled"`
	TTL      time.Duration `yaml:"ttl"`
	MaxBytes int           `yaml:"max_bytes"`
}

type BatchConfig struct {
	Workers int `yaml:"workers"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML document and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		Classifier: ClassifierConfig{Text: true, Image: true},
	}
	applyDefaults(cfg)
	return cfg
}

// APIKey resolves the classifier key from the configured environment variable.
func (c ClassifierConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

func applyDefaults(cfg *Config) {
	if cfg.Lexicon.SQL.Table == "" {
		cfg.Lexicon.SQL.Table = "toxicity_lexicon"
	}
	if cfg.Classifier.Timeout == 0 {
		cfg.Classifier.Timeout = 15 * time.Second
	}
	// A configured service with no modality selected serves both.
	if cfg.Classifier.BaseURL != "" && !cfg.Classifier.Text && !cfg.Classifier.Image {
		cfg.Classifier.Text = true
		cfg.Classifier.Image = true
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
