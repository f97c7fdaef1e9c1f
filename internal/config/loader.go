// Package config loads postgate configuration from files, environment
// variables and defaults, in ascending order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const appName = "postgate"

// configSearchPaths returns the paths to search for config files in order
// of precedence (later paths have higher priority in Viper).
func configSearchPaths() []string {
	paths := []string{filepath.Join("/etc", appName)}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}

	return paths
}

// newViper creates a Viper instance wired for postgate: a config file named
// "config" in the search paths, plus POSTGATE_* environment variables
// (POSTGATE_SERVER_PORT, POSTGATE_METADATA_URL, ...).
func newViper() *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range configSearchPaths() {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration. cfgFile, when non-empty, names an explicit
// config file; a missing implicit config file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := newViper()
	setDefaults(v, Default())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := resolveSecrets(&cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	// A bare DATABASE_URL is honored as the metadata DSN when nothing
	// more specific is configured.
	if cfg.Metadata.URL == "" {
		cfg.Metadata.URL = os.Getenv("DATABASE_URL")
	}

	return &cfg, nil
}

// setDefaults registers default values in Viper from a config struct.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.output", cfg.Log.Output)
	v.SetDefault("log.redact_fields", cfg.Log.RedactFields)
	v.SetDefault("audit.enabled", cfg.Audit.Enabled)
	v.SetDefault("audit.path", cfg.Audit.Path)
	v.SetDefault("audit.max_age_days", cfg.Audit.MaxAgeDays)
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", cfg.Server.MaxBodyBytes)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("metadata.url", cfg.Metadata.URL)
	v.SetDefault("metadata.host", cfg.Metadata.Host)
	v.SetDefault("metadata.port", cfg.Metadata.Port)
	v.SetDefault("metadata.user", cfg.Metadata.User)
	v.SetDefault("metadata.password", cfg.Metadata.Password)
	v.SetDefault("metadata.dbname", cfg.Metadata.DBName)
	v.SetDefault("metadata.sslmode", cfg.Metadata.SSLMode)
	v.SetDefault("metadata.migrate_on_start", cfg.Metadata.MigrateOnStart)
	v.SetDefault("executor.shared_max_conns", cfg.Executor.SharedMaxConns)
	v.SetDefault("executor.dedicated_max_conns", cfg.Executor.DedicatedMaxConns)
	v.SetDefault("executor.query_timeout", cfg.Executor.QueryTimeout)
	v.SetDefault("executor.default_max_rows", cfg.Executor.DefaultMaxRows)
}
