package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"postgate/internal/domain"
	"postgate/internal/store"
)

var (
	dbDedicatedURL string
	dbMaxRows      int
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage logical databases",
}

var dbCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register a logical database",
	Long: `Register a logical database. By default the database lives as a
schema on the shared cluster; pass --dedicated-url to point it at its own
PostgreSQL instance instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		backend := domain.Backend{Type: domain.BackendSchema}
		if dbDedicatedURL != "" {
			backend = domain.DedicatedBackend(dbDedicatedURL)
		}

		db, err := st.CreateDatabase(ctx, args[0], backend, dbMaxRows)
		if err != nil {
			return err
		}

		fmt.Printf("Database %q registered\n", db.Name)
		fmt.Printf("  ID:      %s\n", db.ID)
		fmt.Printf("  Backend: %s\n", db.Backend.Type)
		if db.Backend.Type == domain.BackendSchema {
			fmt.Printf("  Schema:  %s\n", db.Backend.SchemaName)
		}
		fmt.Printf("  MaxRows: %d\n", db.MaxRows)
		return nil
	},
}

var dbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered databases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		dbs, err := st.ListDatabases(ctx)
		if err != nil {
			return err
		}
		if len(dbs) == 0 {
			fmt.Println("No databases registered")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBACKEND\tMAX ROWS\tCREATED")
		for _, db := range dbs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				db.ID, db.Name, db.Backend.Type, db.MaxRows,
				db.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var dbDeleteCmd = &cobra.Command{
	Use:   "delete <id-or-name>",
	Short: "Delete a database, its tokens and its schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		db, err := resolveDatabase(ctx, st, args[0])
		if err != nil {
			return err
		}

		if err := st.DeleteDatabase(ctx, db.ID); err != nil {
			return err
		}
		fmt.Printf("Database %q deleted\n", db.Name)
		return nil
	},
}

// resolveDatabase accepts either a database UUID or its name.
func resolveDatabase(ctx context.Context, st *store.Store, arg string) (*domain.DatabaseConfig, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return st.GetDatabase(ctx, id)
	}
	return st.GetDatabaseByName(ctx, arg)
}

func init() {
	dbCreateCmd.Flags().StringVar(&dbDedicatedURL, "dedicated-url", "", "connection URL for a dedicated backend")
	dbCreateCmd.Flags().IntVar(&dbMaxRows, "max-rows", 1000, "row cap per query")

	dbCmd.AddCommand(dbCreateCmd)
	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbDeleteCmd)
	rootCmd.AddCommand(dbCmd)
}
