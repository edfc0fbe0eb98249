package models

import "time"

// NodeResults collects the per-step results produced so far.
type NodeResults struct {
	Classifier *ClassifierResult  `json:"classifier,omitempty"`
	Router     *RouterResult      `json:"router,omitempty"`
	Module     *ModuleResult      `json:"module,omitempty"`
	Responder  *FormattedResponse `json:"responder,omitempty"`
}

// DebugInfo identifies the run an ExecutionResult belongs to.
type DebugInfo struct {
	ExecutionID string    `json:"executionId"`
	WorkflowID  string    `json:"workflowId"`
	BusinessID  string    `json:"businessId"`
	UserID      string    `json:"userId"`
	Timestamp   time.Time `json:"timestamp"`
}

// ExecutionResult is the envelope returned for every run, successful or not.
type ExecutionResult struct {
	Success       bool              `json:"success"`
	Response      any               `json:"response"`
	ResponseType  ResponseType      `json:"responseType"`
	Method        DeliveryMethod    `json:"method"`
	Intent        Intent            `json:"intent,omitempty"`
	ExtractedData map[string]any    `json:"extractedData,omitempty"`
	NodeResults   NodeResults       `json:"nodeResults"`
	ExecutionTime int64             `json:"executionTime"`
	ExecutedNodes []string          `json:"executedNodes"`
	Errors        []*ExecutionError `json:"errors,omitempty"`
	Debug         DebugInfo         `json:"debug"`
}

// ResponseText returns the response when it is plain text.
func (r *ExecutionResult) ResponseText() (string, bool) {
	text, ok := r.Response.(string)

	return text, ok
}
