// Package module implements the module executor node: it performs the business operation
// selected by the router and decides whether its output is ready to show or needs phrasing.
package module

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukex/blitz/pkg/models"
	"github.com/tidwall/gjson"
)

// Executor runs one module node. Execute never returns an error: failures are reported as
// a ModuleResult with Success set to false.
type Executor struct {
	nodeID string
	config models.ModuleConfig
	client *APIClient
	logger *slog.Logger
}

// New creates an executor for a module node.
func New(nodeID string, config models.ModuleConfig, client *APIClient, logger *slog.Logger) *Executor {
	if client == nil {
		client = NewAPIClient(nil, nil, logger)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		nodeID: nodeID,
		config: config,
		client: client,
		logger: logger.With("node_id", nodeID, "module_type", config.ModuleType),
	}
}

// NodeID returns the id of the module node.
func (e *Executor) NodeID() string {
	return e.nodeID
}

// Execute performs the configured operation for data.
func (e *Executor) Execute(ctx context.Context, data *models.NodeExecutionData, execCtx *models.ExecutionContext) *models.ModuleResult {
	var (
		result *models.ModuleResult
		err    error
	)

	switch e.config.ModuleType {
	case models.ModuleTracking:
		result, err = e.tracking(ctx, data, execCtx)
	case models.ModuleCancellation:
		result, err = e.orderAction(ctx, data, execCtx, models.EndpointCancel, actionCancel)
	case models.ModuleRefund:
		result, err = e.orderAction(ctx, data, execCtx, models.EndpointRefund, actionRefund)
	case models.ModuleFAQ:
		result = e.faq(data)
	default:
		err = models.NewExecutionError(models.CodeModuleTypeUnsupported,
			fmt.Sprintf("module type %q is not supported", e.config.ModuleType))
	}

	if err != nil {
		return e.failure(ctx, err)
	}

	result.NodeID = e.nodeID
	result.ModuleType = e.config.ModuleType
	result.Success = true

	e.logger.InfoContext(ctx, "Module executed", "method", result.Method)

	return result
}

func (e *Executor) tracking(ctx context.Context, data *models.NodeExecutionData, execCtx *models.ExecutionContext) (*models.ModuleResult, error) {
	orders, err := e.fetchOrders(ctx, data, execCtx)
	if err != nil {
		return nil, err
	}

	orderID := extractedOrderID(data)

	if orderID == "" && len(orders) > 0 {
		return presentSelection(actionTrack, orders), nil
	}

	payload := map[string]any{
		"orders": resultValues(orders),
		"count":  len(orders),
	}

	if orderID != "" {
		payload["orderId"] = orderID

		if order, ok := findOrder(orders, orderID); ok {
			payload["order"] = order.Value()
		}
	}

	return &models.ModuleResult{
		Result: payload,
		Method: models.MethodNeedsLanguageFormatting,
	}, nil
}

// orderAction is the shared two-phase policy of cancellation and refund: without an order id
// the customer picks one of their orders, with one the action endpoint is called.
func (e *Executor) orderAction(ctx context.Context, data *models.NodeExecutionData, execCtx *models.ExecutionContext, endpointName string, act action) (*models.ModuleResult, error) {
	orderID := extractedOrderID(data)

	if orderID == "" {
		orders, err := e.fetchOrders(ctx, data, execCtx)
		if err != nil {
			return nil, err
		}

		if len(orders) > 0 {
			return presentSelection(act, orders), nil
		}

		return &models.ModuleResult{
			Result: map[string]any{
				"orders":  []any{},
				"count":   0,
				"message": "No orders were found for this customer.",
			},
			Method: models.MethodNeedsLanguageFormatting,
		}, nil
	}

	endpoint, err := e.endpoint(endpointName)
	if err != nil {
		return nil, err
	}

	payload := e.basePayload(data, execCtx)
	payload["orderId"] = orderID

	outcome, err := e.client.Call(ctx, endpoint, http.MethodPost, payload)
	if err != nil {
		return nil, err
	}

	result := map[string]any{}
	if outcome.IsObject() {
		if values, ok := outcome.Value().(map[string]any); ok {
			result = values
		}
	} else if outcome.Exists() {
		result["details"] = outcome.Value()
	}

	if _, ok := result[act.outcomeKey]; !ok {
		result[act.outcomeKey] = true
	}

	result["orderId"] = orderID

	return &models.ModuleResult{
		Result: result,
		Method: models.MethodNeedsLanguageFormatting,
	}, nil
}

func (e *Executor) faq(data *models.NodeExecutionData) *models.ModuleResult {
	result := map[string]any{
		"question": data.OriginalMessage,
	}

	if data.RouterResult != nil {
		if reply, ok := data.RouterResult.Data["classifierResponse"].(string); ok {
			result["message"] = reply
		}
	}

	return &models.ModuleResult{
		Result: result,
		Method: models.MethodNeedsLanguageFormatting,
	}
}

func (e *Executor) fetchOrders(ctx context.Context, data *models.NodeExecutionData, execCtx *models.ExecutionContext) ([]gjson.Result, error) {
	endpoint, err := e.endpoint(models.EndpointOrders)
	if err != nil {
		return nil, err
	}

	response, err := e.client.Call(ctx, endpoint, http.MethodGet, e.basePayload(data, execCtx))
	if err != nil {
		return nil, err
	}

	return ordersOf(response), nil
}

func (e *Executor) endpoint(name string) (models.EndpointConfig, error) {
	endpoint, ok := e.config.Endpoints[name]
	if !ok || strings.TrimSpace(endpoint.URL) == "" {
		return models.EndpointConfig{}, models.NewExecutionError(models.CodeAPIConfigMissing,
			fmt.Sprintf("%s module requires the %q endpoint", e.config.ModuleType, name),
			models.WithDetails(map[string]any{"endpoint": name}))
	}

	return endpoint, nil
}

// basePayload is the user id plus every field the classifier extracted. Numbers become
// json.Number so templates and query strings print every digit.
func (e *Executor) basePayload(data *models.NodeExecutionData, execCtx *models.ExecutionContext) map[string]any {
	payload := make(map[string]any)

	if data.ClassifierResult != nil {
		for key, value := range data.ClassifierResult.ExtractedData {
			if number, ok := value.(float64); ok {
				value = json.Number(scalarString(number))
			}

			payload[key] = value
		}
	}

	if execCtx != nil {
		payload["userId"] = execCtx.UserID()
	}

	return payload
}

func (e *Executor) failure(ctx context.Context, err error) *models.ModuleResult {
	execErr := models.AsExecutionError(err, models.CodeAPICallError, models.WithNode(e.nodeID, models.RoleModule))
	if execErr.NodeID == "" {
		execErr.NodeID = e.nodeID
		execErr.NodeType = models.RoleModule
	}

	e.logger.WarnContext(ctx, "Module failed", "code", execErr.Code, "error", execErr.Message)

	return &models.ModuleResult{
		NodeID:     e.nodeID,
		Success:    false,
		Result:     execErr.Details,
		Error:      execErr.Message,
		ErrorCode:  execErr.Code,
		ModuleType: e.config.ModuleType,
	}
}

func extractedOrderID(data *models.NodeExecutionData) string {
	if data.ClassifierResult == nil {
		return ""
	}

	for _, key := range []string{"orderId", "order_id", "orderNumber"} {
		value, ok := data.ClassifierResult.ExtractedData[key]
		if !ok || value == nil {
			continue
		}

		id := strings.TrimPrefix(strings.TrimSpace(scalarString(value)), "#")
		if id != "" {
			return id
		}
	}

	return ""
}
