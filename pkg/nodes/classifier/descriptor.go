package classifier

import (
	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/protocol"
)

// Descriptor describes classifier nodes.
type Descriptor struct{}

// NewDescriptor creates a new descriptor instance.
func NewDescriptor() protocol.NodeDescriptor {
	return &Descriptor{}
}

// Role returns the classifier role.
func (d *Descriptor) Role() models.NodeRole {
	return models.RoleClassifier
}

// Name returns the descriptor name.
func (d *Descriptor) Name() string {
	return "Intent Classifier"
}

// Description returns the descriptor description.
func (d *Descriptor) Description() string {
	return "Detects the customer's intent with a language model and phrases module results"
}

// Schema returns the JSON schema for classifier node configuration.
func (d *Descriptor) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"model": map[string]any{
				"type":        "string",
				"description": "Language model used for both classification and formatting",
				"examples":    SupportedModels,
			},
			"apiKey": map[string]any{
				"type":        "string",
				"description": "Encrypted provider credential (iv:authTag:ciphertext)",
			},
			"systemPrompt": map[string]any{
				"type":        "string",
				"description": "Replaces the default intent-detection prompt",
			},
		},
	}
}
