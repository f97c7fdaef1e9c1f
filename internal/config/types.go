package config

import (
	"fmt"
	"net/url"
	"time"
)

// LogConfig holds logging configuration shared by postgate and postgated.
type LogConfig struct {
	Level        string   `mapstructure:"level"`         // debug, info, warn, error
	Format       string   `mapstructure:"format"`        // text, json
	Output       string   `mapstructure:"output"`        // stdout, stderr, or file path
	FilePath     string   `mapstructure:"file_path"`     // path to log file (in addition to output)
	MaxSizeMB    int      `mapstructure:"max_size_mb"`   // max size in MB before rotation
	MaxBackups   int      `mapstructure:"max_backups"`   // max number of old log files to keep
	MaxAgeDays   int      `mapstructure:"max_age_days"`  // max days to retain old log files
	EnableCaller bool     `mapstructure:"enable_caller"` // include source file/line in logs
	RedactFields []string `mapstructure:"redact_fields"` // field names to redact from logs
}

// AuditConfig holds query audit log configuration.
type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns the host:port the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MetadataConfig locates the metadata database holding registered
// databases and tokens. URL wins when set; otherwise the DSN is
// composed from the individual parts.
type MetadataConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	MigrateOnStart bool `mapstructure:"migrate_on_start"`
}

// DSN returns the connection string for the metadata database.
func (m MetadataConfig) DSN() string {
	if m.URL != "" {
		return m.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(m.User, m.Password),
		Host:   fmt.Sprintf("%s:%d", m.Host, m.Port),
		Path:   "/" + m.DBName,
	}
	q := url.Values{}
	if m.SSLMode != "" {
		q.Set("sslmode", m.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ExecutorConfig controls the tenant query executor.
type ExecutorConfig struct {
	// SharedMaxConns caps the pool serving schema-isolated tenants.
	SharedMaxConns int32 `mapstructure:"shared_max_conns"`

	// DedicatedMaxConns caps each per-database pool for dedicated tenants.
	DedicatedMaxConns int32 `mapstructure:"dedicated_max_conns"`

	// QueryTimeout bounds a single tenant statement end to end.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`

	// DefaultMaxRows is the row cap applied when a database sets none.
	DefaultMaxRows int `mapstructure:"default_max_rows"`
}

// Config is the full postgated configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Server   ServerConfig   `mapstructure:"server"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Executor ExecutorConfig `mapstructure:"executor"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:        "info",
			Format:       "text",
			Output:       "stderr",
			RedactFields: []string{"token", "secret", "password", "authorization"},
		},
		Audit: AuditConfig{
			Enabled:    false,
			Path:       "postgate-audit.log",
			MaxAgeDays: 365,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Metadata: MetadataConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Password:       "postgres",
			DBName:         "postgres",
			SSLMode:        "disable",
			MigrateOnStart: true,
		},
		Executor: ExecutorConfig{
			SharedMaxConns:    50,
			DedicatedMaxConns: 10,
			QueryTimeout:      30 * time.Second,
			DefaultMaxRows:    1000,
		},
	}
}
