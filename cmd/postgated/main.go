// Command postgated is the gateway daemon: it fronts PostgreSQL with a
// token-authenticated HTTP /query endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"postgate/internal/config"
	"postgate/internal/executor"
	"postgate/internal/logger"
	"postgate/internal/server"
	"postgate/internal/store"
	"postgate/internal/store/migrate"
	"postgate/internal/version"
)

var (
	cfgFile     string
	showVersion bool
)

func init() {
	flag.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/postgate/config.yaml)")
	flag.BoolVar(&showVersion, "version", false, "show version")
}

func main() {
	flag.Parse()

	if showVersion {
		info := version.Get()
		fmt.Printf("postgated %s\n", info.String())
		fmt.Println(info.Full())
		os.Exit(0)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = log.Close() }()

	var auditLog *logger.AuditLogger
	if cfg.Audit.Enabled {
		auditLog, err = logger.NewAuditLogger(cfg.Audit.Path, cfg.Audit.MaxAgeDays)
		if err != nil {
			log.Warn("failed to initialize audit logger", "error", err)
		} else {
			defer func() { _ = auditLog.Close() }()
		}
	}

	ctx := logger.WithLogger(context.Background(), log)
	dsn := cfg.Metadata.DSN()

	log.Info("starting postgated",
		"version", version.Get().String(),
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"log_level", cfg.Log.Level,
	)

	if cfg.Metadata.MigrateOnStart {
		mg, err := migrate.New(dsn)
		if err != nil {
			log.Error("failed to create migrator", "error", err)
			os.Exit(1)
		}
		if err := mg.Up(); err != nil {
			mg.Close()
			log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		mg.Close()
		log.Info("metadata schema up to date")
	}

	st, err := store.New(ctx, dsn, log)
	if err != nil {
		log.Error("failed to connect to metadata database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	exec, err := executor.New(ctx, dsn, cfg.Executor, log)
	if err != nil {
		log.Error("failed to create executor", "error", err)
		os.Exit(1)
	}
	defer exec.Close()

	srv := server.New(cfg.Server, st, exec, log, auditLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("stopped")
}
