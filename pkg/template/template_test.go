package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	data := map[string]any{
		"orderId":    "ORD 42/7",
		"businessId": "biz-1",
		"empty":      "",
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"plain string", "https://shop.test/orders", "https://shop.test/orders"},
		{"field access", "https://shop.test/{{ .businessId }}/orders", "https://shop.test/biz-1/orders"},
		{"path escaping", "https://shop.test/orders/{{ .orderId | path }}/cancel", "https://shop.test/orders/ORD%2042%2F7/cancel"},
		{"query escaping", "https://shop.test/orders?id={{ .orderId | query }}", "https://shop.test/orders?id=ORD+42%2F7"},
		{"default value", `{{ .empty | default "none" }}`, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("https://shop.test/orders/{{ .orderId }}", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute template")

	_, err = Render("{{ .orderId ", map[string]any{"orderId": "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")
}

func TestRender_Now(t *testing.T) {
	result, err := Render("{{ now }}", nil)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T`, result)
}

func TestNeedsTemplating(t *testing.T) {
	assert.True(t, NeedsTemplating("https://shop.test/{{ .orderId }}"))
	assert.False(t, NeedsTemplating("https://shop.test/orders"))
}
