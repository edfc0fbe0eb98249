package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dukex/blitz/pkg/llm"
	"github.com/dukex/blitz/pkg/mocks"
	"github.com/dukex/blitz/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testModel = "claude-3-5-haiku-20241022"

func newTestClassifier(t *testing.T, provider *mocks.MockProvider, cfg models.ClassifierConfig) *Classifier {
	t.Helper()

	if cfg.Model == "" {
		cfg.Model = testModel
	}

	c, err := New("classifier-1", cfg, "sk-test", WithProviderFactory(provider.Factory()))
	require.NoError(t, err)

	return c
}

func testContext(history ...models.ConversationMessage) *models.ExecutionContext {
	return models.NewExecutionContext(models.ExecutionInput{
		BusinessID:          "biz-1",
		UserID:              "user-1",
		WorkflowID:          "wf-1",
		ConversationHistory: history,
	})
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name       string
		config     models.ClassifierConfig
		credential string
		expected   models.ErrorCode
	}{
		{"nothing configured", models.ClassifierConfig{}, "", models.CodeConfigMissing},
		{"missing model", models.ClassifierConfig{}, "sk", models.CodeConfigIncomplete},
		{"missing credential", models.ClassifierConfig{Model: testModel}, " ", models.CodeConfigIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("c1", tt.config, tt.credential)
			require.ErrorIs(t, err, tt.expected)

			var execErr *models.ExecutionError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, "c1", execErr.NodeID)
			assert.Equal(t, models.RoleClassifier, execErr.NodeType)
		})
	}
}

func TestClassifier_Validate(t *testing.T) {
	provider := &mocks.MockProvider{}

	assert.NoError(t, newTestClassifier(t, provider, models.ClassifierConfig{}).Validate())

	unsupported := newTestClassifier(t, provider, models.ClassifierConfig{Model: "claude-2.1"})
	assert.ErrorIs(t, unsupported.Validate(), models.CodeUnsupportedModel)

	custom, err := New("c1", models.ClassifierConfig{Model: "claude-2.1"}, "sk", WithSupportedModels([]string{"claude-2.1"}))
	require.NoError(t, err)
	assert.NoError(t, custom.Validate())
}

func TestClassifier_Execute_GeneralQuery(t *testing.T) {
	provider := &mocks.MockProvider{}
	provider.On("NewProvider", testModel, "sk-test").Return(nil).Once()
	provider.On("Chat", mock.Anything, mock.MatchedBy(func(req *llm.ChatRequest) bool {
		return req.SystemPrompt == DefaultSystemPrompt &&
			len(req.Messages) == 1 &&
			req.Messages[0].Content == "Hi there"
	})).Return(&llm.ChatResponse{Text: "Hello! How can I help you today?"}, nil).Once()

	c := newTestClassifier(t, provider, models.ClassifierConfig{})

	result, err := c.Execute(context.Background(), "Hi there", testContext())
	require.NoError(t, err)

	assert.Equal(t, models.IntentGeneralQuery, result.Intent)
	assert.Equal(t, "Hello! How can I help you today?", result.Response)
	assert.Equal(t, models.MethodToCallerDirectly, result.Method)
	assert.Equal(t, "classifier-1", result.NodeID)
	provider.AssertExpectations(t)
}

func TestClassifier_Execute_StructuredIntent(t *testing.T) {
	provider := &mocks.MockProvider{}
	provider.ExpectNewProvider()
	provider.On("Chat", mock.Anything, mock.MatchedBy(func(req *llm.ChatRequest) bool {
		// history + current message, merged into alternating turns
		return len(req.Messages) == 3 && req.SystemPrompt == "custom prompt"
	})).Return(&llm.ChatResponse{Text: `{"intent":"cancellation","data":{"orderId":"123"}}`}, nil)

	c := newTestClassifier(t, provider, models.ClassifierConfig{SystemPrompt: "custom prompt"})

	execCtx := testContext(
		models.ConversationMessage{Role: models.ConversationUser, Content: "hello"},
		models.ConversationMessage{Role: models.ConversationAssistant, Content: "hi, how can I help?"},
	)

	result, err := c.Execute(context.Background(), "cancel my order #123", execCtx)
	require.NoError(t, err)

	assert.Equal(t, models.IntentCancellation, result.Intent)
	assert.Equal(t, map[string]any{"orderId": "123"}, result.ExtractedData)
	assert.Equal(t, models.MethodNeedsFurtherProcessing, result.Method)
	assert.Equal(t, FallbackResponse, result.Response)
}

func TestDefaultSystemPrompt_AsksForResponse(t *testing.T) {
	assert.Contains(t, DefaultSystemPrompt, `"response": "<one short sentence for the customer>"`)
}

func TestClassifier_Execute_MalformedJSONFallsBack(t *testing.T) {
	provider := &mocks.MockProvider{}
	provider.ExpectNewProvider()
	provider.On("Chat", mock.Anything, mock.Anything).
		Return(&llm.ChatResponse{Text: `{"intent": "cancellation", "data": {oops}`}, nil)

	c := newTestClassifier(t, provider, models.ClassifierConfig{})

	result, err := c.Execute(context.Background(), "cancel it", testContext())
	require.NoError(t, err)

	assert.Equal(t, models.IntentGeneralQuery, result.Intent)
	assert.Equal(t, `{"intent": "cancellation", "data": {oops}`, result.Response)
	assert.Equal(t, models.MethodToCallerDirectly, result.Method)
}

func TestClassifier_Execute_ProviderError(t *testing.T) {
	provider := &mocks.MockProvider{}
	provider.ExpectNewProvider()
	provider.On("Chat", mock.Anything, mock.Anything).
		Return(nil, &llm.APIError{Provider: "anthropic", StatusCode: 529, Body: "overloaded"})

	c := newTestClassifier(t, provider, models.ClassifierConfig{})

	_, err := c.Execute(context.Background(), "hello", testContext())
	require.ErrorIs(t, err, models.CodeClassifierExecutionError)

	var execErr *models.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, testModel, execErr.Details["model"])
	assert.Equal(t, string(ModeIntentDetection), execErr.Details["mode"])
	assert.Equal(t, 529, execErr.Details["status"])

	var apiErr *llm.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestClassifier_Execute_NoValidMessages(t *testing.T) {
	provider := &mocks.MockProvider{}

	c := newTestClassifier(t, provider, models.ClassifierConfig{})

	_, err := c.Execute(context.Background(), "   ", testContext())
	require.ErrorIs(t, err, models.CodeNoValidMessages)
	provider.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestClassifier_Execute_Timeout(t *testing.T) {
	provider := &mocks.MockProvider{}
	provider.ExpectNewProvider()
	provider.On("Chat", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	c, err := New("classifier-1", models.ClassifierConfig{Model: testModel}, "sk",
		WithProviderFactory(provider.Factory()), WithTimeout(10_000_000))
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), "hello", testContext())
	require.ErrorIs(t, err, models.CodeClassifierExecutionError)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClassifier_FormatResponse(t *testing.T) {
	history := []models.ConversationMessage{
		{Role: models.ConversationUser, Content: "old question"},
		{Role: models.ConversationAssistant, Content: "old answer"},
		{Role: models.ConversationUser, Content: "q2"},
		{Role: models.ConversationAssistant, Content: "a2"},
		{Role: models.ConversationUser, Content: "q3"},
		{Role: models.ConversationAssistant, Content: "a3"},
	}
	execCtx := testContext(history...)

	provider := &mocks.MockProvider{}
	provider.ExpectNewProvider()
	provider.On("Chat", mock.Anything, mock.MatchedBy(func(req *llm.ChatRequest) bool {
		last := req.Messages[len(req.Messages)-1].Content

		return len(req.Messages) == 5 &&
			req.Messages[0].Content == "q2" &&
			strings.Contains(last, `"cancel my order #123"`) &&
			strings.Contains(last, `"cancelled": true`) &&
			req.Temperature == formattingTemperature
	})).Return(&llm.ChatResponse{Text: " Your order #123 has been cancelled. "}, nil)

	c := newTestClassifier(t, provider, models.ClassifierConfig{})

	data := models.NewNodeExecutionData(models.NewExecutionContext(models.ExecutionInput{CurrentMessage: "cancel my order #123"}))
	data.ModuleResult = &models.ModuleResult{
		Success:    true,
		ModuleType: models.ModuleCancellation,
		Result:     map[string]any{"cancelled": true, "orderId": "123"},
	}

	text, err := c.FormatResponse(context.Background(), data, execCtx)
	require.NoError(t, err)
	assert.Equal(t, "Your order #123 has been cancelled.", text)
	provider.AssertExpectations(t)
}

func TestClassifier_FormatResponse_MissingModuleResult(t *testing.T) {
	c := newTestClassifier(t, &mocks.MockProvider{}, models.ClassifierConfig{})

	_, err := c.FormatResponse(context.Background(), models.NewNodeExecutionData(testContext()), testContext())
	assert.ErrorIs(t, err, models.CodeModuleResultMissing)
}
