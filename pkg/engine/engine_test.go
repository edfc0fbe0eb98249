package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/blitz/pkg/credentials"
	"github.com/dukex/blitz/pkg/events"
	"github.com/dukex/blitz/pkg/llm"
	"github.com/dukex/blitz/pkg/mocks"
	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/nodes/classifier"
	"github.com/dukex/blitz/pkg/nodes/responder"
	"github.com/dukex/blitz/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	testModel     = "claude-3-5-haiku-20241022"
	testAPIKey    = "sk-live"
	cancelledText = "Your order #123 has been cancelled."
)

type fixture struct {
	store    *credentials.AESStore
	provider *mocks.MockProvider
	bus      *mocks.MockEventBus
	recorder *tracetest.SpanRecorder
	shop     *httptest.Server
}

func defaultShop(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/orders":
		_, _ = w.Write([]byte(`{"data": [{"id": "123", "status": "shipped"}, {"id": "456", "status": "processing"}]}`))
	case "/cancel":
		_, _ = w.Write([]byte(`{"data": {"status": "cancelled"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFixture(t *testing.T, shop http.HandlerFunc) *fixture {
	t.Helper()

	store, err := credentials.NewAESStore("engine-test-secret")
	require.NoError(t, err)

	if shop == nil {
		shop = defaultShop
	}

	server := httptest.NewServer(shop)
	t.Cleanup(server.Close)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return &fixture{
		store:    store,
		provider: &mocks.MockProvider{},
		bus:      bus,
		recorder: tracetest.NewSpanRecorder(),
		shop:     server,
	}
}

func (f *fixture) encrypt(t *testing.T, plaintext string) string {
	t.Helper()

	encrypted, err := f.store.Encrypt(plaintext)
	require.NoError(t, err)

	return encrypted
}

func (f *fixture) workflow(t *testing.T, extra ...*models.WorkflowNode) *models.Workflow {
	t.Helper()

	return &models.Workflow{
		ID:         "wf-1",
		Name:       "Support",
		BusinessID: "biz-1",
		Nodes: append([]*models.WorkflowNode{
			{ID: "classifier", Role: models.RoleClassifier, Config: map[string]any{
				"model":  testModel,
				"apiKey": f.encrypt(t, testAPIKey),
			}},
			{ID: "router", Role: models.RoleRouter, Config: map[string]any{
				"intentMappings": map[string]any{
					"CANCEL_ORDER":   "cancel",
					"TRACK_SHIPMENT": "tracking",
				},
			}},
			{ID: "cancel", Role: models.RoleModule, Config: map[string]any{
				"moduleType": "cancellation",
				"endpoints": map[string]any{
					"orders": map[string]any{"url": f.shop.URL + "/orders"},
					"cancel": map[string]any{"url": f.shop.URL + "/cancel", "method": "POST"},
				},
			}},
			{ID: "tracking", Role: models.RoleModule, Config: map[string]any{
				"moduleType": "tracking",
				"endpoints": map[string]any{
					"orders": map[string]any{"url": f.shop.URL + "/orders"},
				},
			}},
		}, extra...),
	}
}

func (f *fixture) engine(t *testing.T, workflow *models.Workflow) *Engine {
	t.Helper()

	p, err := pipeline.Load(workflow)
	require.NoError(t, err)

	return New(p, Dependencies{
		Credentials: f.store,
		Providers:   f.provider.Factory(),
		HTTPClient:  f.shop.Client(),
		Publisher:   f.bus,
		Tracer:      sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(f.recorder)).Tracer("test"),
	})
}

func (f *fixture) run(t *testing.T, workflow *models.Workflow, message string) *models.ExecutionResult {
	t.Helper()

	execCtx := models.NewExecutionContext(models.ExecutionInput{
		BusinessID:     "biz-1",
		UserID:         "user-1",
		WorkflowID:     workflow.ID,
		CurrentMessage: message,
	})

	return f.engine(t, workflow).Run(context.Background(), execCtx)
}

func (f *fixture) onIntent() *mock.Call {
	return f.provider.On("Chat", mock.Anything, mock.MatchedBy(func(req *llm.ChatRequest) bool {
		return req.SystemPrompt == classifier.DefaultSystemPrompt
	}))
}

func (f *fixture) onFormatting() *mock.Call {
	return f.provider.On("Chat", mock.Anything, mock.MatchedBy(func(req *llm.ChatRequest) bool {
		return req.SystemPrompt != classifier.DefaultSystemPrompt
	}))
}

func (f *fixture) spanNames() []string {
	var names []string
	for _, span := range f.recorder.Ended() {
		names = append(names, span.Name())
	}

	return names
}

func TestRun_GeneralQuery(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.On("NewProvider", testModel, testAPIKey).Return(nil)
	f.onIntent().Return(&llm.ChatResponse{Text: "Hello! How can I help you today?"}, nil).Once()

	result := f.run(t, f.workflow(t), "Hi there")

	require.True(t, result.Success, result.Errors)
	assert.Equal(t, models.MethodToCallerDirectly, result.Method)
	assert.Equal(t, models.ResponseText, result.ResponseType)
	assert.Equal(t, "Hello! How can I help you today?", result.Response)
	assert.Equal(t, []string{"classifier"}, result.ExecutedNodes)
	assert.Equal(t, models.IntentGeneralQuery, result.Intent)
	assert.Nil(t, result.NodeResults.Router)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "wf-1", result.Debug.WorkflowID)
	assert.Equal(t, "user-1", result.Debug.UserID)

	f.provider.AssertExpectations(t)
	assert.Equal(t, []events.EventType{events.ExecutionStartedEvent, events.ExecutionCompletedEvent}, f.bus.PublishedTypes())
	assert.Contains(t, f.spanNames(), "engine.run")
	assert.Contains(t, f.spanNames(), "engine.classify")
}

func TestRun_CancelOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.ExpectNewProvider()
	f.onIntent().Return(&llm.ChatResponse{Text: `{"intent": "cancellation", "data": {"orderId": "123"}}`}, nil).Once()
	f.onFormatting().Return(&llm.ChatResponse{Text: cancelledText}, nil).Once()

	result := f.run(t, f.workflow(t), "cancel my order #123")

	require.True(t, result.Success, result.Errors)
	assert.Equal(t, models.MethodNeedsLanguageFormatting, result.Method)
	assert.Equal(t, models.ResponseText, result.ResponseType)
	assert.Equal(t, cancelledText, result.Response)
	assert.Equal(t, []string{"classifier", "router", "cancel"}, result.ExecutedNodes)
	assert.Equal(t, models.IntentCancellation, result.Intent)
	assert.Equal(t, map[string]any{"orderId": "123"}, result.ExtractedData)

	require.NotNil(t, result.NodeResults.Router)
	assert.Equal(t, models.RouterCancelOrder, *result.NodeResults.Router.RouterIntent)
	require.NotNil(t, result.NodeResults.Module)
	assert.Equal(t, true, result.NodeResults.Module.Result["cancelled"])

	f.provider.AssertExpectations(t)
	assert.Contains(t, f.spanNames(), "engine.format")
}

func TestRun_CancelEndpointFails(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "boom"}`))
	})
	f.provider.ExpectNewProvider()
	f.onIntent().Return(&llm.ChatResponse{Text: `{"intent": "cancellation", "data": {"orderId": "123"}}`}, nil).Once()

	result := f.run(t, f.workflow(t), "cancel my order #123")

	assert.False(t, result.Success)
	assert.Equal(t, []string{"classifier", "router", "cancel"}, result.ExecutedNodes)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.CodeModuleExecutionFailed, result.Errors[0].Code)
	assert.Equal(t, "cancel", result.Errors[0].NodeID)
	assert.Equal(t, string(models.CodeAPICallFailed), result.Errors[0].Details["errorCode"])

	text, ok := result.ResponseText()
	require.True(t, ok)
	assert.Equal(t, "I'm sorry, the store could not process the cancellation right now. Please try again later.", text)
	assert.NotContains(t, text, "http")
	diagnostic, ok := result.Errors[0].Details["diagnostic"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, diagnostic["status"])
	assert.Contains(t, diagnostic["url"], "/cancel")
	assert.Equal(t, models.IntentCancellation, result.Intent)

	f.provider.AssertNotCalled(t, "Chat", mock.Anything, mock.MatchedBy(func(req *llm.ChatRequest) bool {
		return req.SystemPrompt != classifier.DefaultSystemPrompt
	}))
	assert.Equal(t, []events.EventType{events.ExecutionStartedEvent, events.ExecutionFailedEvent}, f.bus.PublishedTypes())
}

func TestRun_MalformedClassifierJSON(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.ExpectNewProvider()
	f.onIntent().Return(&llm.ChatResponse{Text: `{"intent": "cancellation", "data": {orderId: 123`}, nil).Once()

	result := f.run(t, f.workflow(t), "cancel my order #123")

	require.True(t, result.Success)
	assert.Equal(t, models.IntentGeneralQuery, result.Intent)
	assert.Equal(t, `{"intent": "cancellation", "data": {orderId: 123`, result.Response)
	assert.Equal(t, models.MethodToCallerDirectly, result.Method)
	assert.Len(t, result.ExecutedNodes, 1)
}

func TestRun_OrderSelection(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.ExpectNewProvider()
	f.onIntent().Return(&llm.ChatResponse{Text: `{"intent": "order_query"}`}, nil).Once()

	result := f.run(t, f.workflow(t), "where is my order?")

	require.True(t, result.Success, result.Errors)
	assert.Equal(t, models.MethodPresentModuleOutput, result.Method)
	assert.Equal(t, models.ResponseUIComponent, result.ResponseType)
	assert.Equal(t, []string{"classifier", "router", "tracking"}, result.ExecutedNodes)

	payload, ok := result.Response.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "selection", payload["type"])
	assert.Len(t, payload["options"], 2)

	f.provider.AssertNumberOfCalls(t, "Chat", 1)
}

func TestRun_NoTargetModule(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.ExpectNewProvider()
	f.onIntent().Return(&llm.ChatResponse{
		Text: `{"intent": "refund_query", "response": "Refunds take 5 days."}`,
	}, nil).Once()

	result := f.run(t, f.workflow(t), "refund please")

	require.True(t, result.Success)
	assert.Equal(t, "Refunds take 5 days.", result.Response)
	assert.Equal(t, models.MethodToCallerDirectly, result.Method)
	assert.Equal(t, []string{"classifier", "router"}, result.ExecutedNodes)
	assert.Nil(t, result.NodeResults.Router.TargetModule)
}

func TestRun_NoTargetModuleWithoutReply(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.ExpectNewProvider()
	f.onIntent().Return(&llm.ChatResponse{Text: `{"intent": "refund_query", "data": {"orderId": "123"}}`}, nil).Once()

	result := f.run(t, f.workflow(t), "refund please")

	require.True(t, result.Success)
	assert.Equal(t, classifier.FallbackResponse, result.Response)
	assert.NotContains(t, result.Response, `"intent"`)
	assert.Equal(t, []string{"classifier", "router"}, result.ExecutedNodes)
}

func TestRun_FormattingFailureFallsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.ExpectNewProvider()
	f.onIntent().Return(&llm.ChatResponse{Text: `{"intent": "cancellation", "data": {"orderId": "123"}}`}, nil).Once()
	f.onFormatting().Return(nil, &llm.APIError{Provider: "anthropic", StatusCode: 529, Body: "overloaded"}).Once()

	result := f.run(t, f.workflow(t), "cancel my order #123")

	require.True(t, result.Success)
	assert.Equal(t, models.ResponseText, result.ResponseType)
	assert.Equal(t, models.IntentCancellation, result.Intent)
	assert.Equal(t, []string{"classifier", "router", "cancel"}, result.ExecutedNodes)

	text, ok := result.ResponseText()
	require.True(t, ok)
	assert.JSONEq(t, `{"status": "cancelled", "cancelled": true, "orderId": "123"}`, text)
	assert.Contains(t, text, "\n  ")

	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.CodeClassifierExecutionError, result.Errors[0].Code)
}

func TestRun_StructuredResponder(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.ExpectNewProvider()
	f.onIntent().Return(&llm.ChatResponse{Text: `{"intent": "cancellation", "data": {"orderId": "123"}}`}, nil).Once()

	workflow := f.workflow(t, &models.WorkflowNode{
		ID:     "responder",
		Role:   models.RoleResponder,
		Config: map[string]any{"responseType": "structured"},
	})

	result := f.run(t, workflow, "cancel my order #123")

	require.True(t, result.Success, result.Errors)
	assert.Equal(t, models.ResponseStructured, result.ResponseType)
	assert.Equal(t, []string{"classifier", "router", "cancel", "responder"}, result.ExecutedNodes)

	structured, ok := result.Response.(responder.StructuredResponse)
	require.True(t, ok)
	assert.True(t, structured.Success)
	assert.Equal(t, models.IntentCancellation, structured.Intent)
	require.NotNil(t, result.NodeResults.Responder)

	f.provider.AssertNumberOfCalls(t, "Chat", 1)
}

func TestRun_SetupFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, f *fixture, w *models.Workflow)
		code   models.ErrorCode
	}{
		{
			name: "classifier without configuration",
			mutate: func(t *testing.T, f *fixture, w *models.Workflow) {
				w.Nodes[0].Config = map[string]any{}
			},
			code: models.CodeConfigMissing,
		},
		{
			name: "classifier without credential",
			mutate: func(t *testing.T, f *fixture, w *models.Workflow) {
				w.Nodes[0].Config = map[string]any{"model": testModel}
			},
			code: models.CodeConfigIncomplete,
		},
		{
			name: "credential that does not decrypt",
			mutate: func(t *testing.T, f *fixture, w *models.Workflow) {
				w.Nodes[0].Config["apiKey"] = "sk-plaintext"
			},
			code: models.CodeCredentialDecryptionFailed,
		},
		{
			name: "model outside the allow-list",
			mutate: func(t *testing.T, f *fixture, w *models.Workflow) {
				w.Nodes[0].Config["model"] = "claude-instant-1"
			},
			code: models.CodeUnsupportedModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			workflow := f.workflow(t)
			tt.mutate(t, f, workflow)

			result := f.run(t, workflow, "Hi there")

			assert.False(t, result.Success)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, tt.code, result.Errors[0].Code)
			assert.Empty(t, result.ExecutedNodes)
			assert.NotEmpty(t, result.Response)
			f.provider.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
		})
	}
}

func TestRun_WiringFailures(t *testing.T) {
	t.Run("missing router", func(t *testing.T) {
		f := newFixture(t, nil)
		f.provider.ExpectNewProvider()
		f.onIntent().Return(&llm.ChatResponse{Text: `{"intent": "cancellation"}`}, nil).Once()

		workflow := f.workflow(t)
		workflow.Nodes = append(workflow.Nodes[:1], workflow.Nodes[2:]...)

		result := f.run(t, workflow, "cancel")

		assert.False(t, result.Success)
		assert.Equal(t, models.CodeRouterNodeNotFound, result.Errors[0].Code)
		assert.Equal(t, []string{"classifier"}, result.ExecutedNodes)
	})

	t.Run("router targets a missing module", func(t *testing.T) {
		f := newFixture(t, nil)
		f.provider.ExpectNewProvider()
		f.onIntent().Return(&llm.ChatResponse{Text: `{"intent": "cancellation", "data": {"orderId": "1"}}`}, nil).Once()

		workflow := f.workflow(t)
		workflow.Nodes[1].Config["intentMappings"] = map[string]any{"CANCEL_ORDER": "router"}

		result := f.run(t, workflow, "cancel 1")

		assert.False(t, result.Success)
		assert.Equal(t, models.CodeModuleNodeNotFound, result.Errors[0].Code)
		assert.Equal(t, []string{"classifier", "router"}, result.ExecutedNodes)
	})
}

func TestRun_ClassifierError(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.ExpectNewProvider()
	f.onIntent().Return(nil, errors.New("connection reset")).Once()

	result := f.run(t, f.workflow(t), "Hi there")

	assert.False(t, result.Success)
	assert.Equal(t, models.CodeClassifierExecutionError, result.Errors[0].Code)
	assert.Empty(t, result.ExecutedNodes)
	assert.Equal(t, failureMessage, result.Response)
}

func TestRun_RecoversFromPanics(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.ExpectNewProvider()
	f.onIntent().Panic("provider exploded")

	result := f.run(t, f.workflow(t), "Hi there")

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.CodeExecutionFailed, result.Errors[0].Code)
	assert.Equal(t, []events.EventType{events.ExecutionStartedEvent, events.ExecutionFailedEvent}, f.bus.PublishedTypes())
}

func TestRun_SingleUse(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.ExpectNewProvider()
	f.onIntent().Return(&llm.ChatResponse{Text: "Hello!"}, nil).Once()

	e := f.engine(t, f.workflow(t))
	execCtx := models.NewExecutionContext(models.ExecutionInput{UserID: "user-1", CurrentMessage: "Hi"})

	first := e.Run(context.Background(), execCtx)
	require.True(t, first.Success)

	second := e.Run(context.Background(), execCtx)
	assert.False(t, second.Success)
	assert.Equal(t, models.CodeExecutionFailed, second.Errors[0].Code)
}

func TestRun_NilExecutionContext(t *testing.T) {
	f := newFixture(t, nil)
	e := f.engine(t, f.workflow(t))

	var result *models.ExecutionResult

	require.NotPanics(t, func() {
		result = e.Run(context.Background(), nil)
	})

	assert.False(t, result.Success)
	assert.Equal(t, failureMessage, result.Response)
	assert.Empty(t, result.ExecutedNodes)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.CodeConfigMissing, result.Errors[0].Code)
	f.provider.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestRun_PublishFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t, nil)
	f.bus.ExpectedCalls = nil
	f.bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f.provider.ExpectNewProvider()
	f.onIntent().Return(&llm.ChatResponse{Text: "Hello!"}, nil).Once()

	result := f.run(t, f.workflow(t), "Hi")

	assert.True(t, result.Success)
}
