// Package models defines the core domain models of the workflow automation pipeline.
package models

import "time"

// Workflow is the persisted pipeline configuration of one business chatbot.
type Workflow struct {
	ID          string          `json:"id"          yaml:"id"`
	Name        string          `json:"name"        yaml:"name"        validate:"required,min=3"`
	Description string          `json:"description" yaml:"description"`
	BusinessID  string          `json:"business_id" yaml:"business_id" validate:"required"`
	Nodes       []*WorkflowNode `json:"nodes"       yaml:"nodes"       validate:"dive"`
	Metadata    map[string]any  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"  yaml:"-"`
	UpdatedAt   time.Time       `json:"updated_at"  yaml:"-"`
}

// NodesByRole returns the nodes of the workflow carrying the given role, in declaration order.
func (w *Workflow) NodesByRole(role NodeRole) []*WorkflowNode {
	nodes := make([]*WorkflowNode, 0, 1)

	for _, node := range w.Nodes {
		if node != nil && node.Role == role {
			nodes = append(nodes, node)
		}
	}

	return nodes
}
