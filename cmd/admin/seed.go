package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/coach-portal/internal/domain"
	"github.com/ErlanBelekov/coach-portal/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/coach-portal/internal/usecase"
)

type seedClient struct {
	email     string
	firstName string
	lastName  string
	heightCM  int
	goal      domain.Goal
	weightKG  float64
}

var seedClients = []seedClient{
	{"ana@seed.local", "Ana", "Ruiz", 168, domain.GoalLoseWeight, 74.0},
	{"ben@seed.local", "Ben", "Okafor", 183, domain.GoalGainMuscle, 78.5},
	{"chen@seed.local", "Chen", "Wei", 175, domain.GoalPerformance, 70.2},
}

// newSeedCmd fills the local database with confirmed, onboarded clients and
// a week of check-ins each. Re-running overwrites the same rows.
func newSeedCmd(flags *globalFlags) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo clients and check-ins into a local database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, err := flags.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}

			users := postgres.NewUserRepository(pool)
			onboarding := usecase.NewOnboardingUsecase(postgres.NewProfileRepository(pool))
			checkins := usecase.NewCheckInUsecase(postgres.NewCheckInRepository(pool))
			now := time.Now().UTC()

			out := cmd.OutOrStdout()
			for _, sc := range seedClients {
				u, err := users.FindOrCreate(ctx, sc.email)
				if err != nil {
					return fmt.Errorf("user %s: %w", sc.email, err)
				}
				if !u.EmailConfirmed() {
					if err := users.ConfirmEmail(ctx, u.ID, now); err != nil {
						return fmt.Errorf("confirm %s: %w", sc.email, err)
					}
				}

				height := sc.heightCM
				if _, err := onboarding.Complete(ctx, usecase.CompleteOnboardingInput{
					UserID:    u.ID,
					FirstName: sc.firstName,
					LastName:  sc.lastName,
					HeightCM:  &height,
					Goal:      sc.goal,
				}); err != nil {
					return fmt.Errorf("onboard %s: %w", sc.email, err)
				}

				for i := range days {
					weight := sc.weightKG - 0.1*float64(i%4)
					sleep := 6.5 + 0.25*float64(i%5)
					energy := 2 + i%4
					if _, err := checkins.Upsert(ctx, usecase.UpsertCheckInInput{
						UserID:     u.ID,
						Day:        now.AddDate(0, 0, -i),
						WeightKG:   &weight,
						SleepHours: &sleep,
						Energy:     &energy,
					}); err != nil {
						return fmt.Errorf("check-in %s: %w", sc.email, err)
					}
				}
				fmt.Fprintf(out, "  %-18s %s\n", sc.email, u.ID)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Seed complete. Request a sign-in link from /auth/login;")
			fmt.Fprintln(out, "with ENV=local the link is printed in the server log.")
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Check-ins per client, counting back from today")
	return cmd
}
