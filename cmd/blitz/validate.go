package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/blitz/pkg/cmd"
	"github.com/dukex/blitz/pkg/log"
	"github.com/dukex/blitz/pkg/pipeline"
	cli "github.com/urfave/cli/v3"
)

var ErrInvalidPipeline = errors.New("pipeline is invalid")

func newValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check pipeline files for wiring and configuration errors",
		ArgsUsage: "FILE...",
		Action: func(_ context.Context, command *cli.Command) error {
			logger := log.WithModule("blitz").With("action", "validate")
			w := command.Root().Writer

			if command.Args().Len() == 0 {
				return errors.New("at least one pipeline file is required")
			}

			registry := cmd.NewRegistry(logger)
			invalid := 0

			for _, path := range command.Args().Slice() {
				workflow, err := loadWorkflow(path)
				if err != nil {
					invalid++

					_, _ = fmt.Fprintf(w, "✗ %s\n  %v\n", path, err)

					continue
				}

				report := pipeline.Validate(workflow, pipeline.WithRegistry(registry))
				if report.Valid {
					_, _ = fmt.Fprintf(w, "✓ %s\n", path)
				} else {
					invalid++

					_, _ = fmt.Fprintf(w, "✗ %s\n", path)
				}

				for _, e := range report.Errors {
					_, _ = fmt.Fprintf(w, "  error: %v\n", e)
				}

				for _, warning := range report.Warnings {
					_, _ = fmt.Fprintf(w, "  warning: %s\n", warning)
				}
			}

			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d files", ErrInvalidPipeline, invalid, command.Args().Len())
			}

			return nil
		},
	}
}
