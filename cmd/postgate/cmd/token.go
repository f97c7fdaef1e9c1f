package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"postgate/internal/domain"
)

var (
	tokenOperations []string
	tokenDDL        bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage access tokens",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create <database> <name>",
	Short: "Mint an access token for a database",
	Long: `Mint an access token scoped to a database. The full secret is
printed exactly once; only its hash is stored. Creating a token under an
existing name rotates it.`,
	Args: cobra.ExactArgs(2),
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

		ops := domain.DefaultOperations()
		if tokenDDL {
			ops = domain.TenantOperations()
		}
		if len(tokenOperations) > 0 {
			if tokenDDL {
				return fmt.Errorf("--ddl and --operations are mutually exclusive")
			}
			ops = domain.ParseOperations(tokenOperations)
			if len(ops) == 0 {
				return fmt.Errorf("no valid operations in %q", strings.Join(tokenOperations, ","))
			}
		}

		created, err := st.CreateToken(ctx, db.ID, args[1], ops)
		if err != nil {
			return err
		}

		fmt.Printf("Token %q created for database %q\n", created.Name, db.Name)
		fmt.Printf("  ID:         %s\n", created.ID)
		fmt.Printf("  Operations: %s\n", strings.Join(ops.Strings(), ", "))
		fmt.Println()
		fmt.Println("Store this secret now; it cannot be shown again:")
		fmt.Printf("  %s\n", created.Secret)
		return nil
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list <database>",
	Short: "List a database's tokens",
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

		tokens, err := st.ListTokens(ctx, db.ID)
		if err != nil {
			return err
		}
		if len(tokens) == 0 {
			fmt.Printf("No tokens for database %q\n", db.Name)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPREFIX\tOPERATIONS\tCREATED\tLAST USED")
		for _, t := range tokens {
			lastUsed := "never"
			if t.LastUsedAt != nil {
				lastUsed = t.LastUsedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%s...\t%s\t%s\t%s\n",
				t.ID, t.Name, t.Prefix,
				strings.Join(t.Operations.Strings(), ","),
				t.CreatedAt.Format("2006-01-02 15:04:05"),
				lastUsed)
		}
		return w.Flush()
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <token-id>",
	Short: "Revoke a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid token ID %q: %w", args[0], err)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteToken(ctx, id); err != nil {
			return err
		}
		fmt.Println("Token revoked")
		return nil
	},
}

func init() {
	tokenCreateCmd.Flags().StringSliceVar(&tokenOperations, "operations", nil,
		"allowed operations (default SELECT,INSERT,UPDATE,DELETE)")
	tokenCreateCmd.Flags().BoolVar(&tokenDDL, "ddl", false,
		"grant the full DML+DDL set for tenants that manage their own tables")

	tokenCmd.AddCommand(tokenCreateCmd)
	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)
	rootCmd.AddCommand(tokenCmd)
}
