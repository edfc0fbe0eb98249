// Package testutil provides test data builders for pipeline workflows.
package testutil

import (
	"github.com/dukex/blitz/pkg/models"
	"github.com/google/uuid"
)

// TestModel is a model on the classifier allow-list.
const TestModel = "claude-3-5-haiku-20241022"

// NodeOption overrides fields of a built node.
type NodeOption func(*models.WorkflowNode)

// WithID sets the node id.
func WithID(id string) NodeOption {
	return func(n *models.WorkflowNode) {
		n.ID = id
	}
}

// WithConfig sets one configuration key.
func WithConfig(key string, value any) NodeOption {
	return func(n *models.WorkflowNode) {
		if n.Config == nil {
			n.Config = map[string]any{}
		}

		n.Config[key] = value
	}
}

func build(role models.NodeRole, id string, config map[string]any, opts []NodeOption) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:     id,
		Role:   role,
		Name:   string(role),
		Config: config,
	}

	for _, opt := range opts {
		opt(node)
	}

	return node
}

// ClassifierNode builds a classifier using TestModel and the given stored credential.
func ClassifierNode(apiKey string, opts ...NodeOption) *models.WorkflowNode {
	return build(models.RoleClassifier, "classifier", map[string]any{
		"model":  TestModel,
		"apiKey": apiKey,
	}, opts)
}

// RouterNode builds a router with mappings from router intent to module node id.
func RouterNode(mappings map[string]any, opts ...NodeOption) *models.WorkflowNode {
	return build(models.RoleRouter, "router", map[string]any{
		"intentMappings": mappings,
	}, opts)
}

// ModuleNode builds a module of moduleType whose endpoints point at baseURL + "/" + name.
func ModuleNode(id string, moduleType models.ModuleType, baseURL string, endpoints ...string) *models.WorkflowNode {
	configured := make(map[string]any, len(endpoints))
	for _, name := range endpoints {
		configured[name] = map[string]any{"url": baseURL + "/" + name}
	}

	config := map[string]any{"moduleType": string(moduleType)}
	if len(configured) > 0 {
		config["endpoints"] = configured
	}

	return build(models.RoleModule, id, config, nil)
}

// ResponderNode builds a responder producing responseType.
func ResponderNode(responseType models.ResponseType, opts ...NodeOption) *models.WorkflowNode {
	return build(models.RoleResponder, "responder", map[string]any{
		"responseType": string(responseType),
	}, opts)
}

// CreateTestWorkflow builds a workflow for business biz-1 with a random id.
func CreateTestWorkflow(nodes ...*models.WorkflowNode) *models.Workflow {
	return &models.Workflow{
		ID:         uuid.New().String(),
		Name:       "Support bot",
		BusinessID: "biz-1",
		Nodes:      nodes,
	}
}

// SupportWorkflow builds a classifier, a router mapping CANCEL_ORDER and TRACK_SHIPMENT, and
// the two modules, all pointing at baseURL.
func SupportWorkflow(apiKey, baseURL string) *models.Workflow {
	return CreateTestWorkflow(
		ClassifierNode(apiKey),
		RouterNode(map[string]any{
			string(models.RouterCancelOrder):   "cancel",
			string(models.RouterTrackShipment): "tracking",
		}),
		ModuleNode("cancel", models.ModuleCancellation, baseURL, models.EndpointOrders, models.EndpointCancel),
		ModuleNode("tracking", models.ModuleTracking, baseURL, models.EndpointOrders),
	)
}
