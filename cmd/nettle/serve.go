package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/nettle/internal/app"
	"github.com/Ramsey-B/nettle/internal/server"
)

func newServeCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, env.cfg, env.logger)
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				return err
			}
			defer a.Stop(context.WithoutCancel(ctx))

			deps := server.Dependencies{
				Runner: a.Runner(),
				Health: a.Health(),
			}
			if repo := a.Entities(); repo != nil {
				deps.RunStore = repo
				deps.EntityStore = repo
			}

			e, err := server.New(env.cfg, env.logger, deps)
			if err != nil {
				return err
			}
			return server.Serve(ctx, e, env.cfg, env.logger)
		},
	}
}
