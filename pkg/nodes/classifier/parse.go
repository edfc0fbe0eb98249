package classifier

import (
	"encoding/json"
	"strings"

	"github.com/dukex/blitz/pkg/models"
)

// IntentPayload is the structured reply expected from the model in intent-detection mode.
type IntentPayload struct {
	Intent   models.Intent  `json:"intent"`
	Data     map[string]any `json:"data,omitempty"`
	Response string         `json:"response,omitempty"`
}

// TryParseIntentPayload extracts the first JSON object found in text. It reports false when
// there is no object, it does not parse, or it names an unknown intent; callers then treat the
// whole text as a direct answer.
func TryParseIntentPayload(text string) (IntentPayload, bool) {
	raw, ok := firstJSONObject(text)
	if !ok {
		return IntentPayload{}, false
	}

	var payload IntentPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return IntentPayload{}, false
	}

	if !payload.Intent.IsValid() {
		return IntentPayload{}, false
	}

	return payload, true
}

// firstJSONObject returns the first balanced {...} span, honouring string literals.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
