// Package mocks holds testify mocks of the blitz collaborator interfaces.
package mocks

import (
	"context"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

var _ persistence.Persistence = (*MockPersistence)(nil)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

// valueAndError reads a (T, error) return configured with Return. A nil first value yields
// the zero T.
func valueAndError[T any](args mock.Arguments) (T, error) {
	value, _ := args.Get(0).(T)

	return value, args.Error(1)
}

func (m *MockPersistence) Workflows(ctx context.Context, businessID string) ([]*models.Workflow, error) {
	return valueAndError[[]*models.Workflow](m.Called(ctx, businessID))
}

func (m *MockPersistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return valueAndError[*models.Workflow](m.Called(ctx, id))
}

func (m *MockPersistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return m.Called(ctx, workflow).Error(0)
}

func (m *MockPersistence) DeleteWorkflow(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
