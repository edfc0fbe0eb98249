package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/blitz/pkg/cmd"
	cli "github.com/urfave/cli/v3"
)

var ErrNothingToEncrypt = errors.New("no value to encrypt")

func newEncryptCommand() *cli.Command {
	return &cli.Command{
		Name:      "encrypt",
		Aliases:   []string{"e"},
		Usage:     "Encrypt an API key for a node configuration; reads stdin when no value is given",
		ArgsUsage: "[VALUE]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "credential-secret",
				Usage:    "Secret the credential encryption key is derived from",
				Required: true,
				Sources:  cli.EnvVars("BLITZ_CREDENTIAL_SECRET"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			value := command.Args().First()
			if value == "" {
				line, err := bufio.NewReader(command.Root().Reader).ReadString('\n')
				if err != nil && line == "" {
					return ErrNothingToEncrypt
				}

				value = line
			}

			value = strings.TrimSpace(value)
			if value == "" {
				return ErrNothingToEncrypt
			}

			store, err := cmd.NewCredentialStore(command.String("credential-secret"))
			if err != nil {
				return err
			}

			encrypted, err := store.Encrypt(value)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(command.Root().Writer, encrypted)

			return nil
		},
	}
}
