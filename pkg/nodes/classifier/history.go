package classifier

import (
	"strings"

	"github.com/dukex/blitz/pkg/llm"
	"github.com/dukex/blitz/pkg/models"
)

// SanitizeHistory prepares messages for a provider that needs strict user/assistant
// alternation starting with user. Empty messages are dropped, consecutive messages of the
// same role are merged and leading assistant turns are discarded. It is idempotent.
func SanitizeHistory(messages []llm.Message) ([]llm.Message, error) {
	sanitized := make([]llm.Message, 0, len(messages))

	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}

		if len(sanitized) == 0 && msg.Role != llm.RoleUser {
			continue
		}

		if last := len(sanitized) - 1; last >= 0 && sanitized[last].Role == msg.Role {
			sanitized[last].Content += "\n\n" + content

			continue
		}

		sanitized = append(sanitized, llm.Message{Role: msg.Role, Content: content})
	}

	if len(sanitized) == 0 {
		return nil, models.NewExecutionError(models.CodeNoValidMessages,
			"no valid messages left after sanitizing the conversation",
			models.WithDetails(map[string]any{"originalCount": len(messages)}),
		)
	}

	return sanitized, nil
}

func toLLMMessages(history []models.ConversationMessage) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)

	for _, m := range history {
		role := llm.RoleUser
		if m.Role == models.ConversationAssistant {
			role = llm.RoleAssistant
		}

		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}

	return messages
}

// lastExchanges keeps the trailing n user/assistant exchanges of history.
func lastExchanges(history []models.ConversationMessage, n int) []models.ConversationMessage {
	keep := n * 2
	if len(history) <= keep {
		return history
	}

	return history[len(history)-keep:]
}
