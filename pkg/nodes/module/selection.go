package module

import (
	"strconv"

	"github.com/dukex/blitz/pkg/models"
	"github.com/tidwall/gjson"
)

type action struct {
	name       string
	prompt     string
	outcomeKey string
}

var (
	actionTrack  = action{name: "track", prompt: "Which order would you like to track?"}
	actionCancel = action{name: "cancel", prompt: "Which order would you like to cancel?", outcomeKey: "cancelled"}
	actionRefund = action{name: "refund", prompt: "Which order would you like a refund for?", outcomeKey: "refunded"}
)

// SelectionOption is one choice of a selection UI descriptor.
type SelectionOption struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Value  string `json:"value"`
	Status string `json:"status,omitempty"`
}

// presentSelection builds the order selector shown when the customer did not name an order.
// It carries exactly one option per order.
func presentSelection(act action, orders []gjson.Result) *models.ModuleResult {
	options := make([]SelectionOption, 0, len(orders))

	for i, order := range orders {
		id := orderID(order)
		if id == "" {
			id = strconv.Itoa(i + 1)
		}

		options = append(options, SelectionOption{
			ID:     id,
			Label:  orderLabel(id, order),
			Value:  id,
			Status: order.Get("status").String(),
		})
	}

	return &models.ModuleResult{
		Result: map[string]any{
			"type":      "selection",
			"component": "OrderSelector",
			"action":    act.name,
			"prompt":    act.prompt,
			"options":   options,
		},
		Method: models.MethodPresentModuleOutput,
	}
}

// ordersOf reads the order list from an API data member: either the array itself or its
// `orders` field.
func ordersOf(data gjson.Result) []gjson.Result {
	if data.IsArray() {
		return data.Array()
	}

	if orders := data.Get("orders"); orders.IsArray() {
		return orders.Array()
	}

	return nil
}

func orderID(order gjson.Result) string {
	for _, path := range []string{"id", "orderId", "order_id", "number"} {
		if value := order.Get(path); value.Exists() && value.String() != "" {
			return value.String()
		}
	}

	return ""
}

func orderLabel(id string, order gjson.Result) string {
	label := "Order #" + id

	if total := order.Get("total"); total.Exists() {
		label += " - " + total.String()
	}

	if status := order.Get("status").String(); status != "" {
		label += " (" + status + ")"
	}

	return label
}

func findOrder(orders []gjson.Result, id string) (gjson.Result, bool) {
	for _, order := range orders {
		if orderID(order) == id {
			return order, true
		}
	}

	return gjson.Result{}, false
}

func resultValues(results []gjson.Result) []any {
	values := make([]any, 0, len(results))
	for _, r := range results {
		values = append(values, r.Value())
	}

	return values
}
