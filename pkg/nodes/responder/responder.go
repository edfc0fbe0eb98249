// Package responder implements the response formatter node, which shapes a module result for
// presentation.
package responder

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/blitz/pkg/models"
)

// Component names inferred for ui-component responses.
const (
	ComponentOrderList                = "OrderList"
	ComponentCancellationConfirmation = "CancellationConfirmation"
	ComponentRefundConfirmation       = "RefundConfirmation"
	ComponentTextMessage              = "TextMessage"
)

// UIComponent is the payload of a ui-component response.
type UIComponent struct {
	Component string         `json:"component"`
	Props     map[string]any `json:"props"`
	Hints     map[string]any `json:"hints,omitempty"`
}

// StructuredResponse is the payload of a structured response.
type StructuredResponse struct {
	Success       bool           `json:"success"`
	Data          map[string]any `json:"data"`
	Intent        models.Intent  `json:"intent,omitempty"`
	ExtractedData map[string]any `json:"extractedData,omitempty"`
}

// Formatter is the response formatter node.
type Formatter struct {
	nodeID string
	config models.ResponderConfig
}

// New creates a formatter. An empty response type means text.
func New(nodeID string, config models.ResponderConfig) *Formatter {
	if config.ResponseType == "" {
		config.ResponseType = models.ResponseText
	}

	return &Formatter{nodeID: nodeID, config: config}
}

// NodeID returns the id of the responder node.
func (f *Formatter) NodeID() string {
	return f.nodeID
}

// ResponseType returns the configured presentation shape.
func (f *Formatter) ResponseType() models.ResponseType {
	return f.config.ResponseType
}

// Format shapes the module result of data.
func (f *Formatter) Format(data *models.NodeExecutionData) (*models.FormattedResponse, error) {
	if data == nil || data.ModuleResult == nil || !data.ModuleResult.Success {
		return nil, models.NewExecutionError(models.CodeModuleResultMissing,
			"there is no successful module result to format",
			models.WithNode(f.nodeID, models.RoleResponder))
	}

	result := data.ModuleResult.Result

	response := &models.FormattedResponse{
		NodeID:       f.nodeID,
		ResponseType: f.config.ResponseType,
	}

	switch f.config.ResponseType {
	case models.ResponseText:
		response.Payload = textOf(result)
	case models.ResponseStructured:
		structured := StructuredResponse{
			Success: true,
			Data:    result,
		}

		if data.ClassifierResult != nil {
			structured.Intent = data.ClassifierResult.Intent
			structured.ExtractedData = data.ClassifierResult.ExtractedData
		}

		response.Payload = structured
	case models.ResponseUIComponent:
		component := f.config.Component
		if component == "" {
			component = InferComponent(result)
		}

		response.Payload = UIComponent{
			Component: component,
			Props:     result,
			Hints:     f.config.Hints,
		}
	default:
		return nil, models.NewExecutionError(models.CodeInvalidNodeConfig,
			fmt.Sprintf("response type %q is not supported", f.config.ResponseType),
			models.WithNode(f.nodeID, models.RoleResponder))
	}

	return response, nil
}

// InferComponent picks a component from the shape of payload. The first matching rule wins:
// an `orders` array, a boolean `cancelled`, a boolean `refunded`, then a plain text message.
func InferComponent(payload map[string]any) string {
	switch {
	case isArray(payload["orders"]):
		return ComponentOrderList
	case isBool(payload["cancelled"]):
		return ComponentCancellationConfirmation
	case isBool(payload["refunded"]):
		return ComponentRefundConfirmation
	default:
		return ComponentTextMessage
	}
}

func textOf(payload map[string]any) string {
	if message, ok := payload["message"].(string); ok && message != "" {
		return message
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}

	return string(raw)
}

func isArray(v any) bool {
	switch v.(type) {
	case []any, []map[string]any:
		return true
	default:
		return false
	}
}

func isBool(v any) bool {
	_, ok := v.(bool)

	return ok
}
