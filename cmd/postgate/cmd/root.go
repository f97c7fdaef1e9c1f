package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"postgate/internal/config"
	"postgate/internal/logger"
	"postgate/internal/store"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "postgate",
	Short: "postgate administers the PostgreSQL gateway",
	Long: `postgate is the operator CLI for the gateway daemon (postgated).
It registers logical databases and mints the access tokens clients use
against the /query endpoint. It talks directly to the metadata database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		log, err = logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Close()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/postgate/config.yaml)")
}

// cmdContext returns the bounded context admin commands run under.
func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// openStore connects to the metadata database for one command.
func openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.New(ctx, cfg.Metadata.DSN(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to metadata database: %w", err)
	}
	return st, nil
}
