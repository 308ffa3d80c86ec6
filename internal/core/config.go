package core

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config carries process configuration parsed from GYMCORE_* environment
// variables.
type Config struct {
	StorageDriver string `env:"GYMCORE_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"GYMCORE_SQLITE_PATH"`
	PostgresDSN   string `env:"GYMCORE_POSTGRES_DSN"`

	// Seed the default gym fixture into an empty store on startup.
	SeedOnStart bool `env:"GYMCORE_SEED_ON_START" envDefault:"true"`

	MetricsExpvarName string `env:"GYMCORE_METRICS_EXPVAR_NAME"`
	TraceLogPath      string `env:"GYMCORE_TRACE_LOG_PATH"`
}

// LoadConfig parses Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
