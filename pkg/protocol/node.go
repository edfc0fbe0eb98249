// Package protocol defines the contracts shared by pipeline node packages.
package protocol

import "github.com/dukex/blitz/pkg/models"

// NodeDescriptor provides metadata about a node role and the schema of its configuration.
type NodeDescriptor interface {
	// Role returns the pipeline role this descriptor covers
	Role() models.NodeRole

	// Name returns the human-readable name for this role
	Name() string

	// Description returns a description of what nodes of this role do
	Description() string

	// Schema returns the JSON schema for configuring nodes of this role
	Schema() map[string]any
}
