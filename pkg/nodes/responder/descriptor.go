package responder

import (
	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/protocol"
)

// Descriptor describes responder nodes.
type Descriptor struct{}

// NewDescriptor creates a new descriptor instance.
func NewDescriptor() protocol.NodeDescriptor {
	return &Descriptor{}
}

// Role returns the responder role.
func (d *Descriptor) Role() models.NodeRole {
	return models.RoleResponder
}

// Name returns the descriptor name.
func (d *Descriptor) Name() string {
	return "Response Formatter"
}

// Description returns the descriptor description.
func (d *Descriptor) Description() string {
	return "Shapes a module result as text, a structured envelope or a UI component"
}

// Schema returns the JSON schema for responder node configuration.
func (d *Descriptor) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"responseType": map[string]any{
				"type": "string",
				"enum": []string{
					string(models.ResponseText),
					string(models.ResponseStructured),
					string(models.ResponseUIComponent),
				},
				"default": string(models.ResponseText),
			},
			"component": map[string]any{
				"type":        "string",
				"description": "UI component name; inferred from the module result when empty",
				"examples": []string{
					ComponentOrderList,
					ComponentCancellationConfirmation,
					ComponentRefundConfirmation,
					ComponentTextMessage,
				},
			},
			"hints": map[string]any{
				"type":        "object",
				"description": "Free-form rendering hints passed to the UI",
			},
		},
	}
}
