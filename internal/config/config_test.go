package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Executor.SharedMaxConns != 50 {
		t.Errorf("shared max conns = %d, want 50", cfg.Executor.SharedMaxConns)
	}
	if cfg.Executor.QueryTimeout != 30*time.Second {
		t.Errorf("query timeout = %v, want 30s", cfg.Executor.QueryTimeout)
	}
	if cfg.Executor.DefaultMaxRows != 1000 {
		t.Errorf("default max rows = %d, want 1000", cfg.Executor.DefaultMaxRows)
	}
	if !cfg.Metadata.MigrateOnStart {
		t.Error("migrations should run on start by default")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr = %q, want 0.0.0.0:8080", cfg.Server.Addr())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POSTGATE_SERVER_PORT", "9090")
	t.Setenv("POSTGATE_LOG_LEVEL", "debug")
	t.Setenv("POSTGATE_METADATA_URL", "postgres://meta:pw@dbhost:5432/meta")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Metadata.DSN() != "postgres://meta:pw@dbhost:5432/meta" {
		t.Errorf("metadata DSN = %q", cfg.Metadata.DSN())
	}
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://fallback@localhost/meta")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Metadata.URL != "postgres://fallback@localhost/meta" {
		t.Errorf("metadata URL = %q, want DATABASE_URL value", cfg.Metadata.URL)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
server:
  port: 3000
executor:
  default_max_rows: 250
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Executor.DefaultMaxRows != 250 {
		t.Errorf("max rows = %d, want 250", cfg.Executor.DefaultMaxRows)
	}
	// Untouched keys keep their defaults.
	if cfg.Executor.SharedMaxConns != 50 {
		t.Errorf("shared max conns = %d, want default 50", cfg.Executor.SharedMaxConns)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestMetadataDSN_Composed(t *testing.T) {
	m := MetadataConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "gate",
		Password: "p@ss word",
		DBName:   "gatemeta",
		SSLMode:  "require",
	}

	dsn := m.DSN()
	if !strings.HasPrefix(dsn, "postgres://") {
		t.Errorf("DSN should use postgres scheme, got %q", dsn)
	}
	if !strings.Contains(dsn, "db.internal:5433") {
		t.Errorf("DSN missing host:port, got %q", dsn)
	}
	if !strings.Contains(dsn, "sslmode=require") {
		t.Errorf("DSN missing sslmode, got %q", dsn)
	}
	if strings.Contains(dsn, "p@ss word") {
		t.Errorf("password should be URL-escaped, got %q", dsn)
	}
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv("TEST_META_PASSWORD", "from-env")

	dir := t.TempDir()
	secretFile := filepath.Join(dir, "user")
	if err := os.WriteFile(secretFile, []byte("from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Metadata.Password = "env://TEST_META_PASSWORD"
	cfg.Metadata.User = "file://" + secretFile

	if err := resolveSecrets(cfg); err != nil {
		t.Fatalf("resolveSecrets() error: %v", err)
	}
	if cfg.Metadata.Password != "from-env" {
		t.Errorf("password = %q, want from-env", cfg.Metadata.Password)
	}
	if cfg.Metadata.User != "from-file" {
		t.Errorf("user = %q, want from-file", cfg.Metadata.User)
	}
}

func TestResolveSecrets_MissingEnv(t *testing.T) {
	cfg := Default()
	cfg.Metadata.Password = "env://POSTGATE_TEST_UNSET_VAR"

	if err := resolveSecrets(cfg); err == nil {
		t.Error("expected error for unset env secret")
	}
}
