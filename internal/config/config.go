package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Storage backend names
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// Config holds all server settings. Every flag can also be set through the
// environment with the CASEBOARD_ prefix (dashes become underscores).
type Config struct {
	Bind        string
	Port        int
	StorageType string
	SQLitePath  string
	RedisURL    string
	CacheTTL    time.Duration
	Verbose     bool
}

// Validate checks the configuration for obvious mistakes before startup
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}

	switch c.StorageType {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			return errors.New("--sqlite-path is required when --storage is sqlite")
		}
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("--redis-url is required when --storage is redis")
		}
	default:
		return fmt.Errorf("invalid storage backend %q (must be memory, sqlite or redis)", c.StorageType)
	}

	return nil
}

// RegisterFlags declares the flags on a cobra command and binds each one to
// its CASEBOARD_* environment variable
func RegisterFlags(cmd *cobra.Command, cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("CASEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := cmd.Flags()
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: CASEBOARD_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 3000, "port to listen on (env: CASEBOARD_PORT)")
	fs.StringVar(&cfg.StorageType, "storage", StorageSQLite, "durable store backend: memory, sqlite or redis (env: CASEBOARD_STORAGE)")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", "database.sqlite", "path to the sqlite database file (env: CASEBOARD_SQLITE_PATH)")
	fs.StringVar(&cfg.RedisURL, "redis-url", "", "redis connection URL (env: CASEBOARD_REDIS_URL)")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", 24*time.Hour, "how long untouched rooms stay cached (env: CASEBOARD_CACHE_TTL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging (env: CASEBOARD_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
