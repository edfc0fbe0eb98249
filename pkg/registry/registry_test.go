package registry

import (
	"testing"

	"github.com/dukex/blitz/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultNodes(t *testing.T) {
	r := NewDefaultRegistry()

	descriptors := r.Descriptors()
	require.Len(t, descriptors, 4)

	roles := make([]models.NodeRole, 0, len(descriptors))
	for _, d := range descriptors {
		roles = append(roles, d.Role())
		assert.NotEmpty(t, d.Name())
		assert.NotEmpty(t, d.Description())
		assert.Equal(t, "object", d.Schema()["type"])
	}

	assert.Equal(t, []models.NodeRole{
		models.RoleClassifier,
		models.RoleRouter,
		models.RoleModule,
		models.RoleResponder,
	}, roles)
}

func TestValidateNode(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		name    string
		node    *models.WorkflowNode
		wantErr string
	}{
		{
			name: "valid classifier",
			node: &models.WorkflowNode{ID: "c", Role: models.RoleClassifier, Config: map[string]any{
				"model": "gpt-4o", "apiKey": "a:b:c",
			}},
		},
		{
			name: "classifier model must be a string",
			node: &models.WorkflowNode{ID: "c", Role: models.RoleClassifier, Config: map[string]any{
				"model": 4,
			}},
			wantErr: "validation errors",
		},
		{
			name: "router mapping values must be strings",
			node: &models.WorkflowNode{ID: "r", Role: models.RoleRouter, Config: map[string]any{
				"intentMappings": map[string]any{"CANCEL_ORDER": 1},
			}},
			wantErr: "validation errors",
		},
		{
			name: "module requires a type",
			node: &models.WorkflowNode{ID: "m", Role: models.RoleModule, Config: map[string]any{
				"endpoints": map[string]any{},
			}},
			wantErr: "moduleType",
		},
		{
			name: "module endpoint requires url",
			node: &models.WorkflowNode{ID: "m", Role: models.RoleModule, Config: map[string]any{
				"moduleType": "tracking",
				"endpoints":  map[string]any{"orders": map[string]any{"method": "GET"}},
			}},
			wantErr: "url",
		},
		{
			name: "responder shape must be known",
			node: &models.WorkflowNode{ID: "f", Role: models.RoleResponder, Config: map[string]any{
				"responseType": "video",
			}},
			wantErr: "validation errors",
		},
		{
			name: "nil config is an empty object",
			node: &models.WorkflowNode{ID: "r", Role: models.RoleRouter},
		},
		{
			name:    "unknown role",
			node:    &models.WorkflowNode{ID: "x", Role: "scheduler"},
			wantErr: "not registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateNode(tt.node)
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	message, ok := NewDefaultRegistry().HealthCheck()
	assert.True(t, ok, message)

	r := NewRegistry(nil)
	r.Register(NewDefaultRegistry().descriptors[models.RoleClassifier])

	message, ok = r.HealthCheck()
	assert.False(t, ok)
	assert.Contains(t, message, "router")
	assert.Contains(t, message, "responder")
}
