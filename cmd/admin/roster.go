package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/coach-portal/internal/usecase"
)

func newSetRoleCmd(flags *globalFlags) *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:     "set-role",
		Short:   "Persist a role for an existing account",
		Example: "  admin set-role --email assistant@example.com --role coach",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := flags.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			profiles := postgres.NewProfileRepository(pool)
			roster := usecase.NewRosterUsecase(
				postgres.NewUserRepository(pool),
				profiles,
				usecase.NewCheckInUsecase(postgres.NewCheckInRepository(pool)),
				flags.operatorEmail,
			)
			if err := roster.SetRole(cmd.Context(), email, domain.Role(role)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&role, "role", "", "coach or client")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newListClientsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list-clients"},
		Short:   "List client accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := flags.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			clients, err := postgres.NewProfileRepository(pool).ListClients(cmd.Context(), flags.operatorEmail)
			if err != nil {
				return err
			}
			if len(clients) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clients yet")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tONBOARDED\tLAST CHECK-IN")
			for _, c := range clients {
				last := "-"
				if c.LastCheckIn != nil {
					last = c.LastCheckIn.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s %s\t%t\t%s\n", c.UserID, c.Email, c.FirstName, c.LastName, c.IsOnboarded, last)
			}
			return w.Flush()
		},
	}
}
