package main

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/nettle/config"
	"github.com/Ramsey-B/nettle/internal/logging"
	"github.com/Ramsey-B/nettle/internal/tracing"
)

// environment is what every command starts from
type environment struct {
	cfg      *config.Config
	logger   ectologger.Logger
	shutdown func(context.Context) error
}

func newRootCommand() *cobra.Command {
	env := &environment{}

	root := &cobra.Command{
		Use:          "nettle",
		Short:        "Deduplicate sanctions list entities and resolve their company references",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.load(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if env.shutdown == nil {
				return nil
			}
			return env.shutdown(context.WithoutCancel(cmd.Context()))
		},
	}

	root.AddCommand(
		newRunCommand(env),
		newServeCommand(env),
		newMigrateCommand(env),
	)
	return root
}

func (env *environment) load(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return err
	}

	shutdown, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:  cfg.AppName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPProtocol: cfg.OTLPProtocol,
		OTLPInsecure: cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}

	env.cfg = cfg
	env.logger = logger.WithFields(map[string]any{
		"app":     cfg.AppName,
		"version": cfg.Version,
	})
	env.shutdown = shutdown
	return nil
}
