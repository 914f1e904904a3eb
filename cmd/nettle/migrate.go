package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/nettle/internal/app"
)

func newMigrateCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app.NewMigrator(env.cfg, env.logger)
			if err := a.Start(cmd.Context()); err != nil {
				return err
			}
			env.logger.Info("Migrations applied")
			return a.Stop(context.WithoutCancel(cmd.Context()))
		},
	}
}
