// Package router implements the intent router node: a pure mapping from a classified intent
// to the module node that should handle it.
package router

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/dukex/blitz/pkg/models"
)

// DefaultIntentMap is the canonical classifier-to-router vocabulary table. An intent mapped to
// nil has no router intent and therefore no target module. Refunds go to the FAQ module
// until a refund flow is routed explicitly.
var DefaultIntentMap = map[models.Intent]*models.RouterIntent{
	models.IntentCancellation: ptr(models.RouterCancelOrder),
	models.IntentOrderQuery:   ptr(models.RouterTrackShipment),
	models.IntentRefundQuery:  ptr(models.RouterFAQSupport),
	models.IntentGeneralQuery: nil,
}

// Router maps classifier results onto module node ids.
type Router struct {
	nodeID string
	config models.RouterConfig
	logger *slog.Logger
}

// New creates a router for the given node configuration.
func New(nodeID string, config models.RouterConfig, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		nodeID: nodeID,
		config: config,
		logger: logger.With("node_id", nodeID),
	}
}

// NodeID returns the id of the router node.
func (r *Router) NodeID() string {
	return r.nodeID
}

// RouterIntentFor returns the router intent for a classifier intent, honouring the node's
// overrides before the canonical table.
func (r *Router) RouterIntentFor(intent models.Intent) *models.RouterIntent {
	if override, ok := r.config.IntentOverrides[intent]; ok {
		if override == "" {
			return nil
		}

		return ptr(override)
	}

	mapped, ok := DefaultIntentMap[intent]
	if !ok || mapped == nil {
		return nil
	}

	return ptr(*mapped)
}

// Execute routes the classifier result of data. It performs no I/O.
func (r *Router) Execute(data *models.NodeExecutionData) *models.RouterResult {
	result := &models.RouterResult{
		NodeID: r.nodeID,
		Data:   r.routingData(data),
	}

	if data.ClassifierResult == nil {
		r.logger.Warn("Router reached without a classifier result")

		return result
	}

	intent := data.ClassifierResult.Intent
	result.RouterIntent = r.RouterIntentFor(intent)

	if result.RouterIntent == nil {
		r.logger.Debug("Intent has no router intent", "intent", intent)

		return result
	}

	target := r.config.IntentMappings[*result.RouterIntent]
	if target == "" {
		target = r.config.DefaultModule
	}

	if target != "" {
		result.TargetModule = &target
	}

	r.logger.Info("Intent routed",
		"intent", intent,
		"router_intent", *result.RouterIntent,
		"target_module", target)

	return result
}

func (r *Router) routingData(data *models.NodeExecutionData) map[string]any {
	bag := make(map[string]any)

	if cr := data.ClassifierResult; cr != nil {
		maps.Copy(bag, cr.ExtractedData)
		bag["intent"] = string(cr.Intent)
		bag["classifierResponse"] = cr.Response
	}

	bag["originalMessage"] = data.OriginalMessage

	if data.Context != nil {
		bag["userId"] = data.Context.UserID()
		bag["businessId"] = data.Context.BusinessID()
	}

	return bag
}

// ValidateConfig reports configuration issues for configuration UIs. It never blocks execution.
func ValidateConfig(config models.RouterConfig) []string {
	var issues []string

	if len(config.IntentMappings) == 0 {
		issues = append(issues, "intentMappings is missing or empty")
	}

	for _, key := range slices.Sorted(maps.Keys(config.IntentMappings)) {
		if !key.IsValid() {
			issues = append(issues, fmt.Sprintf("intentMappings key %q is not a known router intent", key))
		}
	}

	for _, key := range slices.Sorted(maps.Keys(config.IntentOverrides)) {
		if !key.IsValid() {
			issues = append(issues, fmt.Sprintf("intentOverrides key %q is not a known intent", key))
		}

		if value := config.IntentOverrides[key]; value != "" && !value.IsValid() {
			issues = append(issues, fmt.Sprintf("intentOverrides value %q is not a known router intent", value))
		}
	}

	return issues
}

func ptr[T any](v T) *T {
	return &v
}
