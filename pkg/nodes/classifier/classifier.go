// Package classifier implements the intent classifier node: it asks a language model what
// the customer wants and, later in the pipeline, how to phrase a module result.
package classifier

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dukex/blitz/pkg/llm"
	"github.com/dukex/blitz/pkg/models"
)

// Mode names the two ways the classifier talks to the provider.
type Mode string

const (
	ModeIntentDetection    Mode = "intent-detection"
	ModeResponseFormatting Mode = "response-formatting"
)

const (
	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 60 * time.Second

	intentTemperature     = 0.1
	formattingTemperature = 0.7
	formattingExchanges   = 2
)

// SupportedModels is the allow-list checked by Validate. New models must be added explicitly.
var SupportedModels = []string{
	"claude-3-5-haiku-20241022",
	"claude-3-5-sonnet-20241022",
	"claude-3-7-sonnet-20250219",
	"claude-sonnet-4-20250514",
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
}

// Classifier is the intent classifier node.
type Classifier struct {
	nodeID          string
	config          models.ClassifierConfig
	credential      string
	providers       llm.Factory
	supportedModels []string
	timeout         time.Duration
	logger          *slog.Logger
}

// Option customises a Classifier.
type Option func(*Classifier)

// WithProviderFactory replaces the factory used to reach the language model.
func WithProviderFactory(factory llm.Factory) Option {
	return func(c *Classifier) {
		c.providers = factory
	}
}

// WithSupportedModels replaces the model allow-list.
func WithSupportedModels(allowed []string) Option {
	return func(c *Classifier) {
		c.supportedModels = slices.Clone(allowed)
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Classifier) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates a classifier. credential is the plaintext provider key; it is handed to the
// provider per call and never stored anywhere shared.
func New(nodeID string, config models.ClassifierConfig, credential string, opts ...Option) (*Classifier, error) {
	model := strings.TrimSpace(config.Model)
	credential = strings.TrimSpace(credential)

	switch {
	case model == "" && credential == "":
		return nil, models.NewExecutionError(models.CodeConfigMissing,
			"classifier requires a model and a credential",
			models.WithNode(nodeID, models.RoleClassifier))
	case model == "":
		return nil, models.NewExecutionError(models.CodeConfigIncomplete,
			"classifier model is not configured",
			models.WithNode(nodeID, models.RoleClassifier))
	case credential == "":
		return nil, models.NewExecutionError(models.CodeConfigIncomplete,
			"classifier credential is not configured",
			models.WithNode(nodeID, models.RoleClassifier),
			models.WithDetails(map[string]any{"model": model}))
	}

	config.Model = model

	c := &Classifier{
		nodeID:          nodeID,
		config:          config,
		credential:      credential,
		providers:       llm.NewFactory(),
		supportedModels: SupportedModels,
		timeout:         DefaultTimeout,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("node_id", nodeID, "model", model)

	return c, nil
}

// NodeID returns the id of the classifier node.
func (c *Classifier) NodeID() string {
	return c.nodeID
}

// Validate rejects models missing from the allow-list.
func (c *Classifier) Validate() error {
	if !slices.Contains(c.supportedModels, c.config.Model) {
		return models.NewExecutionError(models.CodeUnsupportedModel,
			"model "+c.config.Model+" is not supported",
			models.WithNode(c.nodeID, models.RoleClassifier),
			models.WithDetails(map[string]any{"model": c.config.Model, "supported": c.supportedModels}))
	}

	return nil
}

// Execute runs intent-detection mode for message.
func (c *Classifier) Execute(ctx context.Context, message string, execCtx *models.ExecutionContext) (*models.ClassifierResult, error) {
	messages := toLLMMessages(execCtx.ConversationHistory())
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	systemPrompt := c.config.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}

	text, err := c.call(ctx, ModeIntentDetection, systemPrompt, messages, intentTemperature)
	if err != nil {
		return nil, err
	}

	result := &models.ClassifierResult{
		NodeID:   c.nodeID,
		Intent:   models.IntentGeneralQuery,
		Response: strings.TrimSpace(text),
	}

	if payload, ok := TryParseIntentPayload(text); ok {
		result.Intent = payload.Intent
		result.ExtractedData = payload.Data
		result.Response = FallbackResponse

		if reply := strings.TrimSpace(payload.Response); reply != "" {
			result.Response = reply
		}
	} else {
		c.logger.DebugContext(ctx, "Model reply is not an intent payload, answering directly")
	}

	result.Method = models.MethodNeedsFurtherProcessing
	if result.Intent == models.IntentGeneralQuery {
		result.Method = models.MethodToCallerDirectly
	}

	c.logger.InfoContext(ctx, "Intent classified",
		"execution_id", execCtx.ExecutionID(),
		"intent", result.Intent,
		"method", result.Method)

	return result, nil
}

// FormatResponse runs response-formatting mode: it phrases the module result of data as a
// conversational reply, using only the last exchanges of history.
func (c *Classifier) FormatResponse(ctx context.Context, data *models.NodeExecutionData, execCtx *models.ExecutionContext) (string, error) {
	if data == nil || data.ModuleResult == nil {
		return "", models.NewExecutionError(models.CodeModuleResultMissing,
			"there is no module result to format",
			models.WithNode(c.nodeID, models.RoleClassifier))
	}

	messages := toLLMMessages(lastExchanges(execCtx.ConversationHistory(), formattingExchanges))
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: buildFormattingInstruction(data)})

	text, err := c.call(ctx, ModeResponseFormatting, formattingSystemPrompt, messages, formattingTemperature)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

func (c *Classifier) call(ctx context.Context, mode Mode, systemPrompt string, messages []llm.Message, temperature float64) (string, error) {
	sanitized, err := SanitizeHistory(messages)
	if err != nil {
		var execErr *models.ExecutionError
		if errors.As(err, &execErr) {
			execErr.NodeID = c.nodeID
			execErr.NodeType = models.RoleClassifier
		}

		return "", err
	}

	provider, err := c.providers(c.config.Model, c.credential)
	if err != nil {
		return "", c.executionError(mode, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := provider.Chat(ctx, &llm.ChatRequest{
		Model:        c.config.Model,
		SystemPrompt: systemPrompt,
		Messages:     sanitized,
		Temperature:  temperature,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Provider call failed", "mode", mode, "error", err)

		return "", c.executionError(mode, err)
	}

	return resp.Text, nil
}

func (c *Classifier) executionError(mode Mode, err error) *models.ExecutionError {
	details := map[string]any{
		"model": c.config.Model,
		"mode":  string(mode),
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		details["status"] = apiErr.StatusCode
	}

	if errors.Is(err, context.DeadlineExceeded) {
		details["timeout"] = c.timeout.String()
	}

	return models.NewExecutionError(models.CodeClassifierExecutionError,
		"language model call failed: "+err.Error(),
		models.WithNode(c.nodeID, models.RoleClassifier),
		models.WithDetails(details),
		models.WithCause(err))
}
