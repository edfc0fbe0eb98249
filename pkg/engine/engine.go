// Package engine runs one inbound message through a loaded pipeline: classify, route, run the
// module and phrase its result. Every run ends in the same ExecutionResult envelope.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dukex/blitz/pkg/credentials"
	"github.com/dukex/blitz/pkg/eventbus"
	"github.com/dukex/blitz/pkg/llm"
	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/otelhelper"
	"github.com/dukex/blitz/pkg/pipeline"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dependencies are the collaborators of an Engine. Only Credentials is required.
type Dependencies struct {
	Credentials     credentials.Store
	Providers       llm.Factory
	HTTPClient      *http.Client
	Publisher       eventbus.EventPublisher
	Tracer          trace.Tracer
	Logger          *slog.Logger
	LLMTimeout      time.Duration
	SupportedModels []string
}

// Engine executes a pipeline for exactly one message. Create a new Engine per run.
type Engine struct {
	pipeline *pipeline.Pipeline
	deps     Dependencies
	logger   *slog.Logger
	used     atomic.Bool

	started  time.Time
	executed []string
	errors   []*models.ExecutionError
	results  models.NodeResults
}

// New creates a single-use engine for p.
func New(p *pipeline.Pipeline, deps Dependencies) *Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	if deps.Providers == nil {
		deps.Providers = llm.NewFactory()
	}

	if deps.Publisher == nil {
		deps.Publisher = eventbus.NopPublisher{}
	}

	if deps.Tracer == nil {
		deps.Tracer = otelhelper.NoopTracer()
	}

	return &Engine{
		pipeline: p,
		deps:     deps,
		logger:   deps.Logger,
	}
}

// Run executes the pipeline for execCtx. It always returns a result and never panics.
func (e *Engine) Run(ctx context.Context, execCtx *models.ExecutionContext) (result *models.ExecutionResult) {
	e.started = time.Now()

	if execCtx == nil {
		return rejected(nil, models.NewExecutionError(models.CodeConfigMissing, "execution context is required"))
	}

	if !e.used.CompareAndSwap(false, true) {
		return rejected(execCtx, models.NewExecutionError(models.CodeExecutionFailed, "engine instances are single-use"))
	}

	e.logger = e.logger.With("execution_id", execCtx.ExecutionID(), "workflow_id", e.workflowID(execCtx))

	ctx, span := otelhelper.StartSpan(ctx, e.deps.Tracer, "engine.run",
		otelhelper.ExecutionAttributes(execCtx, e.workflowID(execCtx))...)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "Execution panicked", "panic", r)

			result = e.fail(ctx, execCtx, nil, models.NewExecutionError(models.CodeExecutionFailed,
				fmt.Sprintf("unexpected failure: %v", r)))
		}

		span.SetAttributes(
			attribute.Bool(otelhelper.SuccessKey, result.Success),
			attribute.String(otelhelper.MethodKey, string(result.Method)),
		)

		e.publishOutcome(ctx, execCtx, result)
	}()

	e.publish(ctx, execCtx, startedEvent(execCtx, e.workflowID(execCtx)))

	return e.run(ctx, execCtx)
}
