package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dukex/blitz/pkg/cmd"
	"github.com/dukex/blitz/pkg/engine"
	"github.com/dukex/blitz/pkg/llm"
	"github.com/dukex/blitz/pkg/log"
	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/nodes/classifier"
	"github.com/dukex/blitz/pkg/pipeline"
	cli "github.com/urfave/cli/v3"
)

var ErrExecutionFailed = errors.New("execution failed")

func newRunCommand(providers llm.Factory) *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run one message through a pipeline file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Pipeline YAML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "message",
				Aliases:  []string{"m"},
				Usage:    "Customer message",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "user-id",
				Usage: "Customer the message comes from",
				Value: "cli-user",
			},
			&cli.StringFlag{
				Name:  "history",
				Usage: "YAML file with the prior conversation",
			},
			&cli.StringFlag{
				Name:     "credential-secret",
				Usage:    "Secret the credential encryption key is derived from",
				Required: true,
				Sources:  cli.EnvVars("BLITZ_CREDENTIAL_SECRET"),
			},
			&cli.DurationFlag{
				Name:    "llm-timeout",
				Usage:   "Timeout of a single language model call",
				Value:   classifier.DefaultTimeout,
				Sources: cli.EnvVars("LLM_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the whole execution result as JSON",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("blitz").With("action", "run")

			workflow, err := loadWorkflow(command.String("file"))
			if err != nil {
				return err
			}

			history, err := loadHistory(command.String("history"))
			if err != nil {
				return err
			}

			credentialStore, err := cmd.NewCredentialStore(command.String("credential-secret"))
			if err != nil {
				return err
			}

			p, err := pipeline.Load(workflow, pipeline.WithRegistry(cmd.NewRegistry(logger)))
			if err != nil {
				return err
			}

			execCtx := models.NewExecutionContext(models.ExecutionInput{
				BusinessID:          workflow.BusinessID,
				UserID:              command.String("user-id"),
				WorkflowID:          workflow.ID,
				ConversationHistory: history,
				CurrentMessage:      command.String("message"),
			})

			result := engine.New(p, engine.Dependencies{
				Credentials: credentialStore,
				Providers:   providers,
				Logger:      log.WithModule("engine"),
				LLMTimeout:  command.Duration("llm-timeout"),
			}).Run(ctx, execCtx)

			return printResult(command.Root().Writer, result, command.Bool("json"))
		},
	}
}

func printResult(w io.Writer, result *models.ExecutionResult, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(result); err != nil {
			return err
		}
	} else if result.Success {
		if text, ok := result.ResponseText(); ok {
			_, _ = fmt.Fprintln(w, text)
		} else {
			raw, err := json.MarshalIndent(result.Response, "", "  ")
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(w, string(raw))
		}
	}

	if !result.Success {
		codes := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			codes = append(codes, e.Error())
		}

		return fmt.Errorf("%w: %s", ErrExecutionFailed, strings.Join(codes, "; "))
	}

	return nil
}
