package module

import (
	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/protocol"
)

// Descriptor describes module nodes.
type Descriptor struct{}

// NewDescriptor creates a new descriptor instance.
func NewDescriptor() protocol.NodeDescriptor {
	return &Descriptor{}
}

// Role returns the module role.
func (d *Descriptor) Role() models.NodeRole {
	return models.RoleModule
}

// Name returns the descriptor name.
func (d *Descriptor) Name() string {
	return "Module"
}

// Description returns the descriptor description.
func (d *Descriptor) Description() string {
	return "Performs a business operation (tracking, cancellation, refund or FAQ) against the store API"
}

// Schema returns the JSON schema for module node configuration.
func (d *Descriptor) Schema() map[string]any {
	endpoint := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Endpoint URL",
			},
			"method": map[string]any{
				"type": "string",
				"enum": []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"apiKey": map[string]any{
				"type":        "string",
				"description": "Bearer credential, encrypted or plaintext",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Request timeout in seconds",
				"minimum":     1,
				"maximum":     300,
				"default":     models.DefaultAPITimeoutSeconds,
			},
		},
		"required": []string{"url"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"moduleType": map[string]any{
				"type":        "string",
				"description": "Business operation performed by the module",
				"examples": []string{
					string(models.ModuleTracking),
					string(models.ModuleCancellation),
					string(models.ModuleRefund),
					string(models.ModuleFAQ),
				},
			},
			"endpoints": map[string]any{
				"type": "object",
				"properties": map[string]any{
					models.EndpointOrders: endpoint,
					models.EndpointCancel: endpoint,
					models.EndpointRefund: endpoint,
				},
			},
		},
		"required": []string{"moduleType"},
		"examples": []map[string]any{
			{
				"moduleType": "cancellation",
				"endpoints": map[string]any{
					"orders": map[string]any{"url": "https://shop.example.com/api/orders", "method": "GET"},
					"cancel": map[string]any{"url": "https://shop.example.com/api/orders/cancel", "method": "POST"},
				},
			},
		},
	}
}
