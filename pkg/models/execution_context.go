package models

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ConversationRole is the author of a conversation message.
type ConversationRole string

const (
	ConversationUser      ConversationRole = "user"
	ConversationAssistant ConversationRole = "assistant"
)

// ConversationMessage is one turn of a chat session.
type ConversationMessage struct {
	Role    ConversationRole `json:"role"    validate:"required,oneof=user assistant"`
	Content string           `json:"content"`
}

// ExecutionContext describes one inbound message. It is created once and never mutated.
type ExecutionContext struct {
	executionID    string
	businessID     string
	userID         string
	workflowID     string
	sessionID      string
	history        []ConversationMessage
	currentMessage string
	startedAt      time.Time
}

// ExecutionInput carries the caller-provided fields of an ExecutionContext.
type ExecutionInput struct {
	BusinessID          string
	UserID              string
	WorkflowID          string
	SessionID           string
	ConversationHistory []ConversationMessage
	CurrentMessage      string
}

// NewExecutionContext creates an execution context with a generated execution ID.
func NewExecutionContext(input ExecutionInput) *ExecutionContext {
	return &ExecutionContext{
		executionID:    uuid.New().String(),
		businessID:     input.BusinessID,
		userID:         input.UserID,
		workflowID:     input.WorkflowID,
		sessionID:      input.SessionID,
		history:        slices.Clone(input.ConversationHistory),
		currentMessage: input.CurrentMessage,
		startedAt:      time.Now().UTC(),
	}
}

func (c *ExecutionContext) ExecutionID() string    { return c.executionID }
func (c *ExecutionContext) BusinessID() string     { return c.businessID }
func (c *ExecutionContext) UserID() string         { return c.userID }
func (c *ExecutionContext) WorkflowID() string     { return c.workflowID }
func (c *ExecutionContext) SessionID() string      { return c.sessionID }
func (c *ExecutionContext) CurrentMessage() string { return c.currentMessage }
func (c *ExecutionContext) StartedAt() time.Time   { return c.startedAt }

// ConversationHistory returns a copy of the prior conversation, oldest first.
func (c *ExecutionContext) ConversationHistory() []ConversationMessage {
	return slices.Clone(c.history)
}

// NodeExecutionData is threaded through the pipeline. Slots are filled in pipeline order.
type NodeExecutionData struct {
	OriginalMessage  string
	ClassifierResult *ClassifierResult
	RouterResult     *RouterResult
	ModuleResult     *ModuleResult
	AccumulatedData  map[string]any
	Context          *ExecutionContext
}

// NewNodeExecutionData creates empty execution data for the given context.
func NewNodeExecutionData(execCtx *ExecutionContext) *NodeExecutionData {
	return &NodeExecutionData{
		OriginalMessage: execCtx.CurrentMessage(),
		AccumulatedData: make(map[string]any),
		Context:         execCtx,
	}
}

// Merge adds values to the accumulated data. Existing keys are overwritten, none are removed.
func (d *NodeExecutionData) Merge(values map[string]any) {
	if d.AccumulatedData == nil {
		d.AccumulatedData = make(map[string]any, len(values))
	}

	maps.Copy(d.AccumulatedData, values)
}
