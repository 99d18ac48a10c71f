// admin runs one-off maintenance against the portal database.
// Run: go run ./cmd/admin --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/coach-portal/internal/infrastructure/postgres"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	databaseURL   string
	operatorEmail string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "Coach portal maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	cmd.PersistentFlags().StringVar(&flags.operatorEmail, "operator-email", os.Getenv("OPERATOR_EMAIL"), "Operator account, excluded from client listings")

	cmd.AddCommand(newMigrateCmd(flags))
	cmd.AddCommand(newSetRoleCmd(flags))
	cmd.AddCommand(newListClientsCmd(flags))
	cmd.AddCommand(newSeedCmd(flags))
	return cmd
}

func (f *globalFlags) pool(ctx context.Context) (*pgxpool.Pool, error) {
	if f.databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set, pass --database-url")
	}
	return postgres.NewPool(ctx, f.databaseURL)
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := flags.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
