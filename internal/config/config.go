package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/hero-campaign/internal/engine"
	"github.com/tatianab/hero-campaign/internal/persistence"
	"github.com/tatianab/hero-campaign/internal/storage"
)

// Config holds the application configuration. Values come from, in order of
// increasing precedence: built-in defaults, the YAML config file, a .env
// file, and the process environment.
type Config struct {
	Provider          string        `yaml:"provider" env:"CAMPAIGN_PROVIDER"`
	GeminiAPIKey      string        `yaml:"-" env:"GEMINI_API_KEY"`
	OpenAIAPIKey      string        `yaml:"-" env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	Model             string        `yaml:"model" env:"CAMPAIGN_MODEL"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"CAMPAIGN_REQUESTS_PER_MINUTE"`
	GenerationTimeout time.Duration `yaml:"generation_timeout" env:"CAMPAIGN_GENERATION_TIMEOUT"`

	Storage       string `yaml:"storage" env:"CAMPAIGN_STORAGE"`
	SaveDir       string `yaml:"save_dir" env:"CAMPAIGN_SAVE_DIR"`
	SQLitePath    string `yaml:"sqlite_path" env:"CAMPAIGN_SQLITE_PATH"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"-" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	KeyPrefix     string `yaml:"key_prefix" env:"CAMPAIGN_KEY_PREFIX"`

	SupabaseURL string `yaml:"supabase_url" env:"SUPABASE_URL"`
	SupabaseKey string `yaml:"-" env:"SUPABASE_KEY"`
	UserID      string `yaml:"user_id" env:"CAMPAIGN_USER_ID"`
	HeroesFile  string `yaml:"heroes_file" env:"CAMPAIGN_HEROES_FILE"`

	MaxBanter int    `yaml:"max_banter" env:"CAMPAIGN_MAX_BANTER"`
	LogFile   string `yaml:"log_file" env:"CAMPAIGN_LOG_FILE"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Provider:          engine.ProviderGemini,
		RequestsPerMinute: 30,
		GenerationTimeout: 60 * time.Second,
		Storage:           storage.BackendFile,
		SaveDir:           storage.DefaultSaveDir,
		SQLitePath:        "campaign.db",
		KeyPrefix:         persistence.DefaultPrefix,
		MaxBanter:         2,
		LogFile:           "campaign.log",
	}
}

// LoadConfig loads the configuration. path names an optional YAML file; a
// missing .env file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that do not depend on which command runs.
func (c *Config) Validate() error {
	switch c.Provider {
	case engine.ProviderGemini, engine.ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.Storage {
	case storage.BackendMemory, storage.BackendFile, storage.BackendSQLite:
	case storage.BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for redis storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.MaxBanter < 0 {
		return errors.New("max banter cannot be negative")
	}
	if (c.SupabaseURL == "") != (c.SupabaseKey == "") {
		return errors.New("SUPABASE_URL and SUPABASE_KEY must be set together")
	}
	return nil
}

// StorageConfig returns the key/value backend settings.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend:   c.Storage,
		Dir:       c.SaveDir,
		Path:      c.SQLitePath,
		RedisAddr: c.RedisAddr,
		RedisPass: c.RedisPassword,
		RedisDB:   c.RedisDB,
	}
}

// GeneratorOptions returns the text-generation settings. It fails when the
// selected provider has no API key.
func (c *Config) GeneratorOptions() (engine.Options, error) {
	opts := engine.Options{
		Provider:          c.Provider,
		Model:             c.Model,
		RequestsPerMinute: c.RequestsPerMinute,
		Timeout:           c.GenerationTimeout,
	}
	switch c.Provider {
	case engine.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return opts, errors.New("OPENAI_API_KEY environment variable is not set")
		}
		opts.APIKey = c.OpenAIAPIKey
		opts.BaseURL = c.OpenAIBaseURL
	default:
		if c.GeminiAPIKey == "" {
			return opts, errors.New("GEMINI_API_KEY environment variable is not set")
		}
		opts.APIKey = c.GeminiAPIKey
	}
	return opts, nil
}
