package models

import (
	"encoding/json"
	"fmt"
)

// NodeRole identifies the pipeline stage a node plays.
type NodeRole string

const (
	RoleClassifier NodeRole = "classifier"
	RoleRouter     NodeRole = "router"
	RoleModule     NodeRole = "module"
	RoleResponder  NodeRole = "responder"
)

// IsValid reports whether the role is one of the four pipeline roles.
func (r NodeRole) IsValid() bool {
	switch r {
	case RoleClassifier, RoleRouter, RoleModule, RoleResponder:
		return true
	default:
		return false
	}
}

// WorkflowNode represents one configured step in a workflow.
type WorkflowNode struct {
	ID     string         `json:"id"     yaml:"id"     validate:"required"`
	Role   NodeRole       `json:"role"   yaml:"role"   validate:"required,oneof=classifier router module responder"`
	Name   string         `json:"name"   yaml:"name"`
	Config map[string]any `json:"config" yaml:"config"`
}

// DecodeConfig decodes the free-form node configuration into a typed role config.
// A nil configuration leaves target untouched.
func (n *WorkflowNode) DecodeConfig(target any) error {
	if n.Config == nil {
		return nil
	}

	raw, err := json.Marshal(n.Config)
	if err != nil {
		return fmt.Errorf("failed to encode config of node %s: %w", n.ID, err)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode config of node %s: %w", n.ID, err)
	}

	return nil
}

// ClassifierConfig configures the intent classifier node.
type ClassifierConfig struct {
	Model        string `json:"model"`
	APIKey       string `json:"apiKey"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// RouterConfig configures the intent router node.
type RouterConfig struct {
	IntentMappings  map[RouterIntent]string `json:"intentMappings"`
	DefaultModule   string                  `json:"defaultModule,omitempty"`
	IntentOverrides map[Intent]RouterIntent `json:"intentOverrides,omitempty"`
}

// ModuleType enumerates the business operations a module node may perform.
type ModuleType string

const (
	ModuleTracking     ModuleType = "tracking"
	ModuleCancellation ModuleType = "cancellation"
	ModuleRefund       ModuleType = "refund"
	ModuleFAQ          ModuleType = "faq"
)

// Named endpoints a module may invoke.
const (
	EndpointOrders = "orders"
	EndpointCancel = "cancel"
	EndpointRefund = "refund"
)

// DefaultAPITimeoutSeconds bounds business API calls when no timeout is configured.
const DefaultAPITimeoutSeconds = 30

// EndpointConfig describes one external business API endpoint.
type EndpointConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	APIKey  string            `json:"apiKey,omitempty"`
	Timeout int               `json:"timeout,omitempty"` // seconds
}

// ModuleConfig configures a module node.
type ModuleConfig struct {
	ModuleType ModuleType                `json:"moduleType"`
	Endpoints  map[string]EndpointConfig `json:"endpoints,omitempty"`
}

// ResponseType is the presentation shape of a final response.
type ResponseType string

const (
	ResponseText        ResponseType = "text"
	ResponseStructured  ResponseType = "structured"
	ResponseUIComponent ResponseType = "ui-component"
)

// ResponderConfig configures the response formatter node.
type ResponderConfig struct {
	ResponseType ResponseType   `json:"responseType"`
	Component    string         `json:"component,omitempty"`
	Hints        map[string]any `json:"hints,omitempty"`
}
