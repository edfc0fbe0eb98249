package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/dukex/blitz/pkg/engine"
	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/pipeline"
	"github.com/dukex/blitz/pkg/sessions"
	"github.com/google/uuid"
)

// MessageRequest is one inbound chat message for a workflow.
type MessageRequest struct {
	WorkflowID string
	UserID     string
	SessionID  string
	Message    string
	// History overrides the stored session history when non-nil.
	History []models.ConversationMessage
}

// MessageReply is the engine result plus the session the exchange was recorded in.
type MessageReply struct {
	SessionID string                  `json:"sessionId"`
	Result    *models.ExecutionResult `json:"result"`
}

// Chat answers messages by running the stored pipeline of a workflow.
type Chat struct {
	workflows *Workflow
	sessions  sessions.Store
	deps      engine.Dependencies
	logger    *slog.Logger
}

// NewChat creates a chat service. A nil session store keeps no history between messages.
func NewChat(workflows *Workflow, store sessions.Store, deps engine.Dependencies, logger *slog.Logger) *Chat {
	return &Chat{
		workflows: workflows,
		sessions:  store,
		deps:      deps,
		logger:    logger.With("module", "chat_service"),
	}
}

// Send runs the pipeline for req. Pipeline failures come back inside the result; the
// returned error covers a missing or unloadable workflow and session storage faults.
func (s *Chat) Send(ctx context.Context, req MessageRequest) (*MessageReply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrMessageRequired
	}

	workflow, err := s.workflows.FetchByID(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.Load(workflow, pipeline.WithRegistry(s.workflows.registry))
	if err != nil {
		return nil, invalidWorkflow("Send", models.AsExecutionError(err, models.CodeInvalidNodeConfig))
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history := req.History
	if history == nil && s.sessions != nil {
		history, err = s.sessions.History(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}

	execCtx := models.NewExecutionContext(models.ExecutionInput{
		BusinessID:          workflow.BusinessID,
		UserID:              req.UserID,
		WorkflowID:          workflow.ID,
		SessionID:           sessionID,
		ConversationHistory: history,
		CurrentMessage:      req.Message,
	})

	result := engine.New(p, s.deps).Run(ctx, execCtx)

	if result.Success && s.sessions != nil {
		if err := s.sessions.Append(ctx, sessionID, sessions.Exchange(req.Message, replyText(result))...); err != nil {
			s.logger.WarnContext(ctx, "Failed to record exchange", "session_id", sessionID, "error", err)
		}
	}

	return &MessageReply{SessionID: sessionID, Result: result}, nil
}

// replyText is what the assistant said, as it should appear in later history.
func replyText(result *models.ExecutionResult) string {
	if text, ok := result.ResponseText(); ok {
		return text
	}

	raw, err := json.Marshal(result.Response)
	if err != nil {
		return ""
	}

	return string(raw)
}
