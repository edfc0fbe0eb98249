package mocks

import (
	"context"

	"github.com/dukex/blitz/pkg/llm"
	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of llm.Provider interface.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return valueAndError[*llm.ChatResponse](m.Called(ctx, req))
}

func (m *MockProvider) Name() string {
	args := m.Called()

	return args.String(0)
}

// Factory returns an llm.Factory that always yields m, recording the credential it was given.
func (m *MockProvider) Factory() llm.Factory {
	return func(model, apiKey string) (llm.Provider, error) {
		args := m.MethodCalled("NewProvider", model, apiKey)
		if err := args.Error(0); err != nil {
			return nil, err
		}

		return m, nil
	}
}

// ExpectNewProvider allows any number of factory calls with any model and credential.
func (m *MockProvider) ExpectNewProvider() *mock.Call {
	return m.On("NewProvider", mock.Anything, mock.Anything).Return(nil).Maybe()
}
