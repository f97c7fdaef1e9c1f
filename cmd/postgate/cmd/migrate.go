package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"postgate/internal/store/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply metadata schema migrations",
	Long: `Apply the metadata schema migrations by hand. The daemon applies
them on startup by default, so this is only needed when migrate_on_start
is disabled or for provisioning a fresh metadata database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mg, err := migrate.New(cfg.Metadata.DSN())
		if err != nil {
			return err
		}
		defer mg.Close()

		if err := mg.Up(); err != nil {
			return err
		}

		v, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		fmt.Printf("Metadata schema at version %d (dirty=%v)\n", v, dirty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
