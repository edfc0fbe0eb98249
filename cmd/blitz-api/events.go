package main

import (
	"context"
	"log/slog"

	"github.com/dukex/blitz/pkg/eventbus"
	"github.com/dukex/blitz/pkg/events"
)

// registerEventLog logs every execution and workflow event seen on the bus.
func registerEventLog(bus eventbus.EventSubscriber, logger *slog.Logger) error {
	handlers := map[events.EventType]eventbus.EventHandler{
		events.ExecutionCompletedEvent: func(ctx context.Context, event any) error {
			e, ok := event.(*events.ExecutionCompleted)
			if !ok {
				return nil
			}

			logger.InfoContext(ctx, "Execution completed",
				"workflow_id", e.WorkflowID,
				"execution_id", e.ExecutionID,
				"intent", e.Intent,
				"method", e.Method,
				"duration_ms", e.DurationMs)

			return nil
		},
		events.ExecutionFailedEvent: func(ctx context.Context, event any) error {
			e, ok := event.(*events.ExecutionFailed)
			if !ok {
				return nil
			}

			codes := make([]string, 0, len(e.Errors))
			for _, summary := range e.Errors {
				codes = append(codes, string(summary.Code))
			}

			logger.WarnContext(ctx, "Execution failed",
				"workflow_id", e.WorkflowID,
				"execution_id", e.ExecutionID,
				"error_codes", codes,
				"duration_ms", e.DurationMs)

			return nil
		},
		events.WorkflowSavedEvent: func(ctx context.Context, event any) error {
			if e, ok := event.(*events.WorkflowSaved); ok {
				logger.InfoContext(ctx, "Workflow saved", "workflow_id", e.WorkflowID, "nodes", e.NodeCount)
			}

			return nil
		},
		events.WorkflowDeletedEvent: func(ctx context.Context, event any) error {
			if e, ok := event.(*events.WorkflowDeleted); ok {
				logger.InfoContext(ctx, "Workflow deleted", "workflow_id", e.WorkflowID)
			}

			return nil
		},
	}

	for eventType, handler := range handlers {
		if err := bus.Handle(eventType, handler); err != nil {
			return err
		}
	}

	return nil
}
