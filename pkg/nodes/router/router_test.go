package router

import (
	"testing"

	"github.com/dukex/blitz/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executionData(intent models.Intent, extracted map[string]any) *models.NodeExecutionData {
	execCtx := models.NewExecutionContext(models.ExecutionInput{
		BusinessID:     "biz-1",
		UserID:         "user-1",
		CurrentMessage: "cancel my order #123",
	})

	data := models.NewNodeExecutionData(execCtx)
	data.ClassifierResult = &models.ClassifierResult{
		Intent:        intent,
		Response:      "Sure, let me check.",
		ExtractedData: extracted,
	}

	return data
}

func TestRouter_Execute(t *testing.T) {
	config := models.RouterConfig{
		IntentMappings: map[models.RouterIntent]string{
			models.RouterCancelOrder:   "cancel-module",
			models.RouterTrackShipment: "tracking-module",
		},
	}

	tests := []struct {
		name         string
		config       models.RouterConfig
		intent       models.Intent
		routerIntent *models.RouterIntent
		target       *string
	}{
		{
			name:         "cancellation maps to cancel module",
			config:       config,
			intent:       models.IntentCancellation,
			routerIntent: ptr(models.RouterCancelOrder),
			target:       ptr("cancel-module"),
		},
		{
			name:         "order query maps to tracking module",
			config:       config,
			intent:       models.IntentOrderQuery,
			routerIntent: ptr(models.RouterTrackShipment),
			target:       ptr("tracking-module"),
		},
		{
			name:         "unmapped router intent without default has no target",
			config:       config,
			intent:       models.IntentRefundQuery,
			routerIntent: ptr(models.RouterFAQSupport),
		},
		{
			name: "unmapped router intent falls back to default module",
			config: models.RouterConfig{
				IntentMappings: config.IntentMappings,
				DefaultModule:  "faq-module",
			},
			intent:       models.IntentRefundQuery,
			routerIntent: ptr(models.RouterFAQSupport),
			target:       ptr("faq-module"),
		},
		{
			name:   "general query has no router intent",
			config: models.RouterConfig{DefaultModule: "faq-module"},
			intent: models.IntentGeneralQuery,
		},
		{
			name: "override replaces the canonical entry",
			config: models.RouterConfig{
				IntentMappings: map[models.RouterIntent]string{
					models.RouterRefundRequest: "refund-module",
				},
				IntentOverrides: map[models.Intent]models.RouterIntent{
					models.IntentRefundQuery: models.RouterRefundRequest,
				},
			},
			intent:       models.IntentRefundQuery,
			routerIntent: ptr(models.RouterRefundRequest),
			target:       ptr("refund-module"),
		},
		{
			name: "empty override disables routing",
			config: models.RouterConfig{
				IntentMappings:  config.IntentMappings,
				IntentOverrides: map[models.Intent]models.RouterIntent{models.IntentCancellation: ""},
			},
			intent: models.IntentCancellation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New("router-1", tt.config, nil)

			result := r.Execute(executionData(tt.intent, nil))

			assert.Equal(t, "router-1", result.NodeID)
			assert.Equal(t, tt.routerIntent, result.RouterIntent)
			assert.Equal(t, tt.target, result.TargetModule)
		})
	}
}

func TestRouter_Execute_RoutingData(t *testing.T) {
	r := New("router-1", models.RouterConfig{}, nil)

	result := r.Execute(executionData(models.IntentCancellation, map[string]any{"orderId": "123", "reason": "late"}))

	assert.Equal(t, map[string]any{
		"orderId":            "123",
		"reason":             "late",
		"intent":             "cancellation",
		"classifierResponse": "Sure, let me check.",
		"originalMessage":    "cancel my order #123",
		"userId":             "user-1",
		"businessId":         "biz-1",
	}, result.Data)
}

func TestRouter_Execute_DoesNotMutateDefaultTable(t *testing.T) {
	r := New("router-1", models.RouterConfig{}, nil)

	got := r.RouterIntentFor(models.IntentCancellation)
	require.NotNil(t, got)
	*got = models.RouterFAQSupport

	assert.Equal(t, models.RouterCancelOrder, *DefaultIntentMap[models.IntentCancellation])
}

func TestRouter_Execute_WithoutClassifierResult(t *testing.T) {
	r := New("router-1", models.RouterConfig{DefaultModule: "faq-module"}, nil)

	data := models.NewNodeExecutionData(models.NewExecutionContext(models.ExecutionInput{}))
	result := r.Execute(data)

	assert.Nil(t, result.TargetModule)
	assert.Nil(t, result.RouterIntent)
}

func TestValidateConfig(t *testing.T) {
	assert.Equal(t, []string{"intentMappings is missing or empty"}, ValidateConfig(models.RouterConfig{}))

	issues := ValidateConfig(models.RouterConfig{
		IntentMappings: map[models.RouterIntent]string{
			models.RouterCancelOrder: "cancel-module",
			"SHIP_FASTER":            "tracking-module",
		},
		IntentOverrides: map[models.Intent]models.RouterIntent{
			"complaint":              models.RouterFAQSupport,
			models.IntentRefundQuery: "REFUND_NOW",
		},
	})

	assert.Equal(t, []string{
		`intentMappings key "SHIP_FASTER" is not a known router intent`,
		`intentOverrides key "complaint" is not a known intent`,
		`intentOverrides value "REFUND_NOW" is not a known router intent`,
	}, issues)

	assert.Empty(t, ValidateConfig(models.RouterConfig{
		IntentMappings: map[models.RouterIntent]string{models.RouterTrackShipment: "tracking-module"},
	}))
}
