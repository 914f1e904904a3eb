package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/nettle/internal/app"
	"github.com/Ramsey-B/nettle/internal/runner"
	"github.com/Ramsey-B/nettle/pkg/sources"
)

func newRunCommand(env *environment) *cobra.Command {
	var (
		inputs   []string
		encoding string
	)

	cmd := &cobra.Command{
		Use:   "run --input path[=list] [--input path[=list] ...]",
		Short: "Deduplicate one or more list files and export the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			specs, err := parseInputs(inputs, encoding)
			if err != nil {
				return err
			}

			a, err := app.New(ctx, env.cfg, env.logger)
			if err != nil {
				return err
			}
			for _, warning := range a.Settings().Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warning)
			}
			if err := a.Start(ctx); err != nil {
				return err
			}
			defer a.Stop(context.WithoutCancel(ctx))

			opened := make([]runner.Input, 0, len(specs))
			for _, spec := range specs {
				file, err := os.Open(spec.path)
				if err != nil {
					return err
				}
				defer file.Close()
				opened = append(opened, runner.Input{
					Format:   spec.format,
					List:     spec.list,
					Encoding: spec.encoding,
					Reader:   file,
				})
			}

			result, runErr := a.Runner().Run(ctx, opened)
			if result != nil {
				printSummary(cmd.OutOrStdout(), result)
			}
			return runErr
		},
	}

	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "list file, optionally suffixed with =list-id")
	cmd.Flags().StringVar(&encoding, "encoding", "", "text encoding of csv inputs, e.g. windows-1251")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

type inputSpec struct {
	path     string
	list     string
	format   string
	encoding string
}

// parseInputs reads "path[=list]" flags. The list id defaults to the file stem.
func parseInputs(values []string, encoding string) ([]inputSpec, error) {
	if len(values) == 0 {
		return nil, runner.ErrNoInputs
	}

	specs := make([]inputSpec, 0, len(values))
	for _, value := range values {
		path, list, _ := strings.Cut(value, "=")
		path = strings.TrimSpace(path)
		if path == "" {
			return nil, fmt.Errorf("invalid input %q", value)
		}

		format, err := sources.FormatFromPath(path)
		if err != nil {
			return nil, err
		}

		list = strings.TrimSpace(list)
		if list == "" {
			list = sources.ListFromPath(path)
		}

		specs = append(specs, inputSpec{
			path:     path,
			list:     list,
			format:   format,
			encoding: encoding,
		})
	}
	return specs, nil
}
