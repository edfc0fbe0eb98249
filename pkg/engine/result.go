package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/dukex/blitz/pkg/eventbus"
	"github.com/dukex/blitz/pkg/events"
	"github.com/dukex/blitz/pkg/models"
)

const failureMessage = "I'm sorry, something went wrong while handling your message. Please try again in a moment."

func (e *Engine) succeed(execCtx *models.ExecutionContext, data *models.NodeExecutionData, response any, responseType models.ResponseType, method models.DeliveryMethod) *models.ExecutionResult {
	result := e.envelope(execCtx, data)
	result.Success = true
	result.Response = response
	result.ResponseType = responseType
	result.Method = method

	e.logger.Info("Execution completed",
		"method", method,
		"response_type", responseType,
		"executed_nodes", result.ExecutedNodes,
		"duration_ms", result.ExecutionTime)

	return result
}

func (e *Engine) fail(ctx context.Context, execCtx *models.ExecutionContext, data *models.NodeExecutionData, err error) *models.ExecutionResult {
	execErr := models.AsExecutionError(err, models.CodeExecutionFailed)
	e.errors = append(e.errors, execErr)

	result := e.envelope(execCtx, data)
	result.Success = false
	result.Response = failureMessage
	result.ResponseType = models.ResponseText
	result.Method = models.MethodToCallerDirectly

	if isModuleFailure(execErr) && data != nil && data.ModuleResult != nil {
		result.Response = moduleFailureMessage(data.ModuleResult)
	}

	e.logger.ErrorContext(ctx, "Execution failed",
		"code", execErr.Code,
		"node_id", execErr.NodeID,
		"error", execErr.Message,
		"executed_nodes", result.ExecutedNodes)

	return result
}

// moduleFailureMessage tells the customer what failed without the endpoint details, which
// stay in the result errors.
func moduleFailureMessage(mr *models.ModuleResult) string {
	operation := "your request"

	switch mr.ModuleType {
	case models.ModuleTracking:
		operation = "the order lookup"
	case models.ModuleCancellation:
		operation = "the cancellation"
	case models.ModuleRefund:
		operation = "the refund request"
	}

	switch mr.ErrorCode {
	case models.CodeAPICallTimeout:
		return fmt.Sprintf("I'm sorry, the store took too long to answer %s. Please try again in a moment.", operation)
	case models.CodeAPICallFailed, models.CodeAPICallError:
		return fmt.Sprintf("I'm sorry, the store could not process %s right now. Please try again later.", operation)
	case models.CodeAPIConfigMissing, models.CodeModuleTypeUnsupported:
		return fmt.Sprintf("I'm sorry, I can't handle %s for this store yet.", operation)
	default:
		return failureMessage
	}
}

func (e *Engine) envelope(execCtx *models.ExecutionContext, data *models.NodeExecutionData) *models.ExecutionResult {
	result := &models.ExecutionResult{
		NodeResults:   e.results,
		ExecutionTime: time.Since(e.started).Milliseconds(),
		ExecutedNodes: slices.Clone(e.executed),
		Errors:        slices.Clone(e.errors),
		Debug:         debugInfo(execCtx, e.workflowID(execCtx)),
	}

	if result.ExecutedNodes == nil {
		result.ExecutedNodes = []string{}
	}

	if data != nil && data.ClassifierResult != nil {
		result.Intent = data.ClassifierResult.Intent
		result.ExtractedData = data.ClassifierResult.ExtractedData
	}

	return result
}

func (e *Engine) workflowID(execCtx *models.ExecutionContext) string {
	if id := execCtx.WorkflowID(); id != "" {
		return id
	}

	if e.pipeline != nil && e.pipeline.Workflow() != nil {
		return e.pipeline.Workflow().ID
	}

	return ""
}

// rejected is the result of a run that never started.
func rejected(execCtx *models.ExecutionContext, err *models.ExecutionError) *models.ExecutionResult {
	return &models.ExecutionResult{
		Success:       false,
		Response:      failureMessage,
		ResponseType:  models.ResponseText,
		Method:        models.MethodToCallerDirectly,
		ExecutedNodes: []string{},
		Errors:        []*models.ExecutionError{err},
		Debug:         debugInfo(execCtx, ""),
	}
}

func debugInfo(execCtx *models.ExecutionContext, workflowID string) models.DebugInfo {
	if execCtx == nil {
		return models.DebugInfo{WorkflowID: workflowID, Timestamp: time.Now().UTC()}
	}

	if workflowID == "" {
		workflowID = execCtx.WorkflowID()
	}

	return models.DebugInfo{
		ExecutionID: execCtx.ExecutionID(),
		WorkflowID:  workflowID,
		BusinessID:  execCtx.BusinessID(),
		UserID:      execCtx.UserID(),
		Timestamp:   time.Now().UTC(),
	}
}

func prettyJSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(raw)
}

func startedEvent(execCtx *models.ExecutionContext, workflowID string) events.ExecutionStarted {
	base := events.NewBaseEvent(events.ExecutionStartedEvent, workflowID)
	base.BusinessID = execCtx.BusinessID()

	return events.ExecutionStarted{
		BaseEvent:   base,
		ExecutionID: execCtx.ExecutionID(),
		UserID:      execCtx.UserID(),
		SessionID:   execCtx.SessionID(),
	}
}

func (e *Engine) publishOutcome(ctx context.Context, execCtx *models.ExecutionContext, result *models.ExecutionResult) {
	if result.Success {
		base := events.NewBaseEvent(events.ExecutionCompletedEvent, result.Debug.WorkflowID)
		base.BusinessID = execCtx.BusinessID()

		e.publish(ctx, execCtx, events.ExecutionCompleted{
			BaseEvent:     base,
			ExecutionID:   execCtx.ExecutionID(),
			Intent:        result.Intent,
			Method:        result.Method,
			ResponseType:  result.ResponseType,
			ExecutedNodes: result.ExecutedNodes,
			DurationMs:    result.ExecutionTime,
		})

		return
	}

	base := events.NewBaseEvent(events.ExecutionFailedEvent, result.Debug.WorkflowID)
	base.BusinessID = execCtx.BusinessID()

	e.publish(ctx, execCtx, events.ExecutionFailed{
		BaseEvent:     base,
		ExecutionID:   execCtx.ExecutionID(),
		Intent:        result.Intent,
		ExecutedNodes: result.ExecutedNodes,
		Errors:        events.Summarize(result.Errors),
		DurationMs:    result.ExecutionTime,
	})
}

// publish never fails the run: lost notifications are logged only.
func (e *Engine) publish(ctx context.Context, execCtx *models.ExecutionContext, event eventbus.Event) {
	if err := e.deps.Publisher.Publish(ctx, execCtx.ExecutionID(), event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
