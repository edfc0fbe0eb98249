package router

import (
	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/protocol"
)

// Descriptor describes router nodes.
type Descriptor struct{}

// NewDescriptor creates a new descriptor instance.
func NewDescriptor() protocol.NodeDescriptor {
	return &Descriptor{}
}

// Role returns the router role.
func (d *Descriptor) Role() models.NodeRole {
	return models.RoleRouter
}

// Name returns the descriptor name.
func (d *Descriptor) Name() string {
	return "Intent Router"
}

// Description returns the descriptor description.
func (d *Descriptor) Description() string {
	return "Maps the classified intent to the module node that handles it"
}

// Schema returns the JSON schema for router node configuration.
func (d *Descriptor) Schema() map[string]any {
	routerIntents := make([]string, 0, len(models.RouterIntents))
	for _, intent := range models.RouterIntents {
		routerIntents = append(routerIntents, string(intent))
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intentMappings": map[string]any{
				"type":                 "object",
				"description":          "Router intent to module node id",
				"additionalProperties": map[string]any{"type": "string"},
				"examples": []map[string]any{
					{"CANCEL_ORDER": "cancel-module", "TRACK_SHIPMENT": "tracking-module"},
				},
			},
			"defaultModule": map[string]any{
				"type":        "string",
				"description": "Module node id used when the router intent has no mapping",
			},
			"intentOverrides": map[string]any{
				"type":        "object",
				"description": "Replaces entries of the canonical intent table for this workflow",
				"additionalProperties": map[string]any{
					"type": "string",
					"enum": append(routerIntents, ""),
				},
				"examples": []map[string]any{
					{"refund_query": "REFUND_REQUEST"},
				},
			},
		},
	}
}
