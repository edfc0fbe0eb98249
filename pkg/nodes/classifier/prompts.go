package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukex/blitz/pkg/models"
)

// DefaultSystemPrompt drives intent-detection mode unless a node overrides it.
const DefaultSystemPrompt = `You are the customer support assistant of an online store.
Classify the customer's latest message into exactly one intent:
- general_query: greetings, small talk, or questions that need no order action
- cancellation: the customer wants to cancel an order
- order_query: the customer asks about an order, its status or its shipment
- refund_query: the customer asks for a refund or about a refund

For general_query, answer the customer directly in plain, friendly text.

For every other intent, reply with ONLY a JSON object of the form
{"intent": "<intent>", "response": "<one short sentence for the customer>", "data": {"orderId": "<order id if mentioned>", "reason": "<reason if given>"}}
The response is shown to the customer when the store cannot act on the intent, so write it
as a friendly reply, never as JSON. Omit data fields you cannot find. Do not invent order ids.`

// FallbackResponse replaces the reply of a structured intent that carried no response, so
// the raw JSON never reaches the customer.
const FallbackResponse = "I'm sorry, I can't help with that here yet. Please contact our support team."

const formattingSystemPrompt = `You are the customer support assistant of an online store.
Turn the result of a backend operation into a short, friendly reply for the customer.
Never show raw JSON, internal field names or identifiers the customer did not provide.`

func buildFormattingInstruction(data *models.NodeExecutionData) string {
	payload, err := json.MarshalIndent(data.ModuleResult.Result, "", "  ")
	if err != nil {
		payload = []byte("{}")
	}

	var b strings.Builder

	fmt.Fprintf(&b, "The customer asked: %q\n\n", data.OriginalMessage)

	if data.ClassifierResult != nil {
		fmt.Fprintf(&b, "Detected intent: %s\n", data.ClassifierResult.Intent)
	}

	fmt.Fprintf(&b, "The %s operation returned:\n%s\n\n", data.ModuleResult.ModuleType, payload)
	b.WriteString("Write a conversational reply that answers the customer's question using this result. ")
	b.WriteString("Keep the tone warm and concise (two or three sentences). ")
	b.WriteString("If the operation did not find what the customer asked for, say so and suggest a next step.")

	return b.String()
}
