package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/blitz/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrEmptyPipelineFile = errors.New("pipeline file is empty")

// loadWorkflow reads a pipeline file. The workflow id defaults to the file name.
func loadWorkflow(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyPipelineFile
	}

	var workflow models.Workflow
	if err := yaml.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline file %s: %w", path, err)
	}

	if workflow.ID == "" {
		workflow.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(workflow); err != nil {
		return nil, fmt.Errorf("pipeline file %s is invalid: %w", path, err)
	}

	return &workflow, nil
}

// loadHistory reads a conversation history file: a YAML list of role/content pairs.
func loadHistory(path string) ([]models.ConversationMessage, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var history []models.ConversationMessage
	if err := yaml.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse history file %s: %w", path, err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Var(history, "dive"); err != nil {
		return nil, fmt.Errorf("history file %s is invalid: %w", path, err)
	}

	return history, nil
}
