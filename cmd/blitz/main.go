// Package main provides the blitz command line: run, validate and encrypt pipeline files.
package main

import (
	"context"
	"os"

	"github.com/dukex/blitz/pkg/llm"
	"github.com/dukex/blitz/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	if err := newApp(nil).Run(context.Background(), os.Args); err != nil {
		log.WithModule("blitz").Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// newApp builds the command tree. A nil providers factory reaches the real language models.
func newApp(providers llm.Factory) *cli.Command {
	return &cli.Command{
		Name:                  "blitz",
		Usage:                 "Run and check chatbot pipelines from YAML files",
		EnableShellCompletion: true,
		Writer:                os.Stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.SetupWriter(command.Root().ErrWriter, command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			newRunCommand(providers),
			newValidateCommand(),
			newEncryptCommand(),
		},
	}
}
