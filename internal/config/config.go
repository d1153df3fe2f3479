// Package config loads actorchart settings from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds the runtime settings of the CLI and of actors it starts.
type Config struct {
	LogLevel  string `env:"ACTORCHART_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ACTORCHART_LOG_FORMAT" envDefault:"text"`

	ActivityTimeout time.Duration `env:"ACTORCHART_ACTIVITY_TIMEOUT" envDefault:"100ms"`
	// MaxMicrosteps bounds raised-event cascades; zero means unlimited.
	MaxMicrosteps int `env:"ACTORCHART_MAX_MICROSTEPS" envDefault:"0"`

	// SnapshotDir enables file persistence when set.
	SnapshotDir    string `env:"ACTORCHART_SNAPSHOT_DIR"`
	SnapshotFormat string `env:"ACTORCHART_SNAPSHOT_FORMAT" envDefault:"json"`

	Redis Redis `envPrefix:"ACTORCHART_"`
}

// Redis enables Redis persistence when URL is set.
type Redis struct {
	URL            string        `env:"REDIS_URL"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
}

// Load reads the given .env files, or ./.env when none are given, and then
// parses the environment. A missing default .env file is not an error;
// missing explicit files are. Variables already set in the environment win
// over .env values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("load %v: %w", files, err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that env tags cannot express.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.SnapshotFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("%w: snapshot format %q", ErrInvalidConfig, c.SnapshotFormat)
	}
	if c.ActivityTimeout <= 0 {
		return fmt.Errorf("%w: activity timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxMicrosteps < 0 {
		return fmt.Errorf("%w: max microsteps must not be negative", ErrInvalidConfig)
	}
	return nil
}
