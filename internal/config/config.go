package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

const (
	// DirectoryMemory keeps nothing across restarts; development and tests only.
	DirectoryMemory   = "memory"
	DirectorySQLite   = "sqlite"
	DirectoryPostgres = "postgres"
)

type Config struct {
	Addr             string        `env:"ADDR" envDefault:":8080"`
	Directory        string        `env:"DIRECTORY" envDefault:"sqlite"`
	SQLitePath       string        `env:"SQLITE_PATH" envDefault:"squares.db"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	InitialSquares   int           `env:"INITIAL_SQUARES" envDefault:"4"`
	SubscriberBuffer int           `env:"SUBSCRIBER_BUFFER" envDefault:"8"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file from each of files (".env" when none are
// given) and then parses SQUARES_* environment variables. Variables already set
// in the environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "SQUARES_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var err error
	switch c.Directory {
	case DirectoryMemory:
	case DirectorySQLite:
		if c.SQLitePath == "" {
			err = multierr.Append(err, errors.New("SQUARES_SQLITE_PATH is required for the sqlite directory"))
		}
	case DirectoryPostgres:
		if c.DatabaseURL == "" {
			err = multierr.Append(err, errors.New("SQUARES_DATABASE_URL is required for the postgres directory"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown directory %q", c.Directory))
	}
	if c.InitialSquares < 1 {
		err = multierr.Append(err, fmt.Errorf("SQUARES_INITIAL_SQUARES must be at least 1, got %d", c.InitialSquares))
	}
	if c.SubscriberBuffer < 1 {
		err = multierr.Append(err, fmt.Errorf("SQUARES_SUBSCRIBER_BUFFER must be at least 1, got %d", c.SubscriberBuffer))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		err = multierr.Append(err, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
