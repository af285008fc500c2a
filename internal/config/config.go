package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingEnvironmentVariables = errors.New("missing required environment variables")
	ErrUnknownQuestionSource       = errors.New("unknown question source")
	ErrNoHostEnabled               = errors.New("neither telegram nor http host is enabled")
)

const (
	SourceJSON     = "json"
	SourcePostgres = "postgres"
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env       string    `mapstructure:"env"`       // current application environment (local, dev, production)
	Telegram  Telegram  `mapstructure:"telegram"`  // Telegram host section
	HTTP      HTTP      `mapstructure:"http"`      // JSON API host section
	Questions Questions `mapstructure:"questions"` // question bank section
	Quiz      Quiz      `mapstructure:"quiz"`      // per-country quiz parameters
	DB        DB        `mapstructure:"database"`  // database configuration section
	Log       Log       `mapstructure:"log"`       // logging section
}

// Telegram configures the bot host.
type Telegram struct {
	Enabled       bool    `mapstructure:"enabled"`
	APIToken      string  `mapstructure:"-"`               // loaded from environment
	Debug         bool    `mapstructure:"debug"`           // log raw bot API traffic
	RatePerSecond float64 `mapstructure:"rate_per_second"` // accepted updates per chat per second
	RateBurst     int     `mapstructure:"rate_burst"`
}

// HTTP configures the JSON API host.
type HTTP struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Questions selects where question banks come from.
type Questions struct {
	Source     string `mapstructure:"source"` // "json" or "postgres"
	CanadaPath string `mapstructure:"canada_path"`
	UKPath     string `mapstructure:"uk_path"`
}

// Quiz holds the session parameters.
type Quiz struct {
	PassMark  float64       `mapstructure:"pass_mark"`
	Retention time.Duration `mapstructure:"completed_retention"` // how long finished sessions stay readable
	Canada    CountryPolicy `mapstructure:"canada"`
	UK        CountryPolicy `mapstructure:"uk"`
}

// CountryPolicy holds quiz sizes and time limits of one country.
type CountryPolicy struct {
	QuizSize      int           `mapstructure:"quiz_size"`
	MockSize      int           `mapstructure:"mock_size"`
	QuizTimeLimit time.Duration `mapstructure:"quiz_time_limit"` // zero for an untimed quiz
	MockTimeLimit time.Duration `mapstructure:"mock_time_limit"`
}

// DB contains database-related configuration parameters.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// Log configures the logger output.
type Log struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // rotating log file; stdout only when empty
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Load reads configuration from ./config/config.yaml and environment variables.
func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom reads configuration from config.yaml in dir and environment variables.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	// Nested keys map to ENV style names: quiz.uk.mock_size -> QUIZ_UK_MOCK_SIZE.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("env", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.Telegram.APIToken = v.GetString("telegram_api_token")
	cfg.DB.URL = v.GetString("database_url")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateHosts checks that at least one host is enabled and has its credentials.
func (c *Config) ValidateHosts() error {
	if !c.Telegram.Enabled && !c.HTTP.Enabled {
		return ErrNoHostEnabled
	}
	if c.Telegram.Enabled && c.Telegram.APIToken == "" {
		return fmt.Errorf("%w: TELEGRAM_API_TOKEN", ErrMissingEnvironmentVariables)
	}
	return nil
}

// Validate checks that the question source is usable.
func (c *Config) Validate() error {
	switch c.Questions.Source {
	case SourceJSON:
	case SourcePostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("%w: DATABASE_URL", ErrMissingEnvironmentVariables)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownQuestionSource, c.Questions.Source)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")

	v.SetDefault("telegram.enabled", true)
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.rate_per_second", 2.0)
	v.SetDefault("telegram.rate_burst", 5)

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("questions.source", SourceJSON)
	v.SetDefault("questions.canada_path", "assets/data/questions_canada.json")
	v.SetDefault("questions.uk_path", "assets/data/questions_uk.json")

	v.SetDefault("quiz.pass_mark", 75)
	v.SetDefault("quiz.completed_retention", "1h")
	v.SetDefault("quiz.canada.quiz_size", 20)
	v.SetDefault("quiz.canada.mock_size", 20)
	v.SetDefault("quiz.canada.quiz_time_limit", "0s")
	v.SetDefault("quiz.canada.mock_time_limit", "30m")
	v.SetDefault("quiz.uk.quiz_size", 24)
	v.SetDefault("quiz.uk.mock_size", 24)
	v.SetDefault("quiz.uk.quiz_time_limit", "45m")
	v.SetDefault("quiz.uk.mock_time_limit", "45m")

	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_conn_lifetime", "30m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}
