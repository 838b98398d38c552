// Package config loads ideaflow settings from IDEAFLOW_* environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexanderramin/ideaflow/internal/db"
	"github.com/spf13/viper"
)

const EnvPrefix = "IDEAFLOW"

// Job store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	DBPath string
	User   string
	Jobs   JobsConfig
	Sweep  SweepConfig
	Relay  RelayConfig
	Log    LogConfig
}

type JobsConfig struct {
	Store       string
	DatabaseURL string
}

type SweepConfig struct {
	StaleMinutes    int
	IntervalMinutes int
	FailStalePlans  bool
}

type RelayConfig struct {
	IntervalSeconds int
	BatchSize       int
}

type LogConfig struct {
	Level  string
	Format string
}

// NewViper returns a viper instance with ideaflow's env binding and
// defaults. Keys use dots; env names use underscores (sweep.stale_minutes is
// IDEAFLOW_SWEEP_STALE_MINUTES).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("config", "")
	v.SetDefault("db.path", defaultDBPath())
	v.SetDefault("user", "")
	v.SetDefault("jobs.store", StoreSQLite)
	v.SetDefault("jobs.database_url", "")
	v.SetDefault("sweep.stale_minutes", 60)
	v.SetDefault("sweep.interval_minutes", 5)
	v.SetDefault("sweep.fail_stale_plans", true)
	v.SetDefault("relay.interval_seconds", 5)
	v.SetDefault("relay.batch_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	return v
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ideaflow", "ideaflow.db")
	}
	return filepath.Join(home, ".ideaflow", "ideaflow.db")
}

// Load reads the optional config file named by the "config" key, then
// builds and validates the Config. Environment variables and bound flags
// win over the file.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		DBPath: v.GetString("db.path"),
		User:   v.GetString("user"),
		Jobs: JobsConfig{
			Store:       strings.ToLower(v.GetString("jobs.store")),
			DatabaseURL: v.GetString("jobs.database_url"),
		},
		Sweep: SweepConfig{
			StaleMinutes:    v.GetInt("sweep.stale_minutes"),
			IntervalMinutes: v.GetInt("sweep.interval_minutes"),
			FailStalePlans:  v.GetBool("sweep.fail_stale_plans"),
		},
		Relay: RelayConfig{
			IntervalSeconds: v.GetInt("relay.interval_seconds"),
			BatchSize:       v.GetInt("relay.batch_size"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	switch c.Jobs.Store {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.Jobs.DatabaseURL == "" {
			errs = append(errs, errors.New("jobs.database_url is required for the postgres job store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown jobs.store %q", c.Jobs.Store))
	}
	if c.Sweep.StaleMinutes <= 0 {
		errs = append(errs, fmt.Errorf("sweep.stale_minutes must be positive, got %d", c.Sweep.StaleMinutes))
	}
	if c.Sweep.IntervalMinutes <= 0 {
		errs = append(errs, fmt.Errorf("sweep.interval_minutes must be positive, got %d", c.Sweep.IntervalMinutes))
	}
	if c.Relay.IntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("relay.interval_seconds must be positive, got %d", c.Relay.IntervalSeconds))
	}
	if c.Relay.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("relay.batch_size must be positive, got %d", c.Relay.BatchSize))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// SweeperEnabled reports whether jobs live in a durable store. Sweeping an
// ephemeral store is pointless since a restart already drops its jobs.
func (c *Config) SweeperEnabled() bool {
	switch c.Jobs.Store {
	case StorePostgres:
		return true
	case StoreSQLite:
		return c.DBPath != db.MemoryPath
	default:
		return false
	}
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Sweep.StaleMinutes) * time.Minute
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweep.IntervalMinutes) * time.Minute
}

func (c *Config) RelayInterval() time.Duration {
	return time.Duration(c.Relay.IntervalSeconds) * time.Second
}
