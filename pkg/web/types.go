// Package web provides HTTP request and response types for the pipeline and chat API.
package web

import (
	"time"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/protocol"
	"github.com/dukex/blitz/pkg/services"
)

// SaveWorkflowRequest is the body of PUT /workflows/:id and POST /workflows/validate.
type SaveWorkflowRequest struct {
	Name        string                 `json:"name"               validate:"required,min=3"`
	Description string                 `json:"description"`
	BusinessID  string                 `json:"business_id"        validate:"required"`
	Nodes       []*models.WorkflowNode `json:"nodes"              validate:"required,min=1,dive"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
}

// Workflow converts the request into a workflow without an ID.
func (r SaveWorkflowRequest) Workflow() *models.Workflow {
	return &models.Workflow{
		Name:        r.Name,
		Description: r.Description,
		BusinessID:  r.BusinessID,
		Nodes:       r.Nodes,
		Metadata:    r.Metadata,
	}
}

// WorkflowListResponse is the body of GET /workflows.
type WorkflowListResponse struct {
	Workflows  []*models.Workflow `json:"workflows"`
	TotalCount int                `json:"total_count"`
}

// MessageRequest is the body of POST /workflows/:id/messages.
type MessageRequest struct {
	UserID              string                       `json:"userId"                        validate:"required"`
	SessionID           string                       `json:"sessionId,omitempty"           validate:"omitempty,max=255"`
	Message             string                       `json:"message"                       validate:"required"`
	ConversationHistory []models.ConversationMessage `json:"conversationHistory,omitempty" validate:"omitempty,dive"`
}

// ServiceRequest addresses the message to workflowID.
func (r MessageRequest) ServiceRequest(workflowID string) services.MessageRequest {
	return services.MessageRequest{
		WorkflowID: workflowID,
		UserID:     r.UserID,
		SessionID:  r.SessionID,
		Message:    r.Message,
		History:    r.ConversationHistory,
	}
}

// EncryptRequest is the body of POST /credentials/encrypt.
type EncryptRequest struct {
	Value string `json:"value" validate:"required"`
}

// EncryptResponse carries a credential ready to be stored in a node configuration.
type EncryptResponse struct {
	Encrypted string `json:"encrypted"`
}

// NodeDescriptorResponse describes one pipeline role and its configuration schema.
type NodeDescriptorResponse struct {
	Role        models.NodeRole `json:"role"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      map[string]any  `json:"schema"`
}

// TransformDescriptor builds the API view of a node descriptor.
func TransformDescriptor(descriptor protocol.NodeDescriptor) NodeDescriptorResponse {
	return NodeDescriptorResponse{
		Role:        descriptor.Role(),
		Name:        descriptor.Name(),
		Description: descriptor.Description(),
		Schema:      descriptor.Schema(),
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Checkers  map[string]string `json:"checkers"`
	Timestamp time.Time         `json:"timestamp"`
}
