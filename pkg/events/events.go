// Package events defines the notifications published about executions and workflows.
package events

import (
	"time"

	"github.com/dukex/blitz/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic is the single topic all blitz events are published to.
const Topic = "blitz.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"

	// Workflow configuration events.
	WorkflowSavedEvent   EventType = "workflow.saved"
	WorkflowDeletedEvent EventType = "workflow.deleted"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	BusinessID string         `json:"business_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// ExecutionStarted is published when the engine accepts a message.
type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

// ExecutionCompleted is published when a run ends successfully.
type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string                `json:"execution_id"`
	Intent        models.Intent         `json:"intent,omitempty"`
	Method        models.DeliveryMethod `json:"method"`
	ResponseType  models.ResponseType   `json:"response_type"`
	ExecutedNodes []string              `json:"executed_nodes"`
	DurationMs    int64                 `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

// ErrorSummary is the part of an execution error carried by ExecutionFailed.
type ErrorSummary struct {
	Code    models.ErrorCode `json:"code"`
	Message string           `json:"message"`
	NodeID  string           `json:"node_id,omitempty"`
}

// ExecutionFailed is published when a run ends on the failure path.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID   string         `json:"execution_id"`
	Intent        models.Intent  `json:"intent,omitempty"`
	ExecutedNodes []string       `json:"executed_nodes"`
	Errors        []ErrorSummary `json:"errors"`
	DurationMs    int64          `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// WorkflowSaved is published when a workflow is created or replaced.
type WorkflowSaved struct {
	BaseEvent

	Name      string `json:"name"`
	NodeCount int    `json:"node_count"`
}

func (e WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

// WorkflowDeleted is published when a workflow is removed.
type WorkflowDeleted struct {
	BaseEvent
}

func (e WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

// Summarize converts execution errors for ExecutionFailed.
func Summarize(errs []*models.ExecutionError) []ErrorSummary {
	summaries := make([]ErrorSummary, 0, len(errs))

	for _, err := range errs {
		if err == nil {
			continue
		}

		summaries = append(summaries, ErrorSummary{Code: err.Code, Message: err.Message, NodeID: err.NodeID})
	}

	return summaries
}
