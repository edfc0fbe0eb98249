package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/nodes/classifier"
	"github.com/dukex/blitz/pkg/nodes/module"
	"github.com/dukex/blitz/pkg/nodes/responder"
	"github.com/dukex/blitz/pkg/nodes/router"
	"github.com/dukex/blitz/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// run walks Start, ClassifyIntent, Route, RunModule and FormatWithClassifier in order. Each
// state either hands over to the next one or ends the run.
func (e *Engine) run(ctx context.Context, execCtx *models.ExecutionContext) *models.ExecutionResult {
	data := models.NewNodeExecutionData(execCtx)

	clf, err := e.start(execCtx)
	if err != nil {
		return e.fail(ctx, execCtx, data, err)
	}

	cr, err := e.classify(ctx, clf, data, execCtx)
	if err != nil {
		return e.fail(ctx, execCtx, data, err)
	}

	if cr.Method == models.MethodToCallerDirectly {
		return e.succeed(execCtx, data, cr.Response, models.ResponseText, models.MethodToCallerDirectly)
	}

	rr, err := e.route(ctx, data)
	if err != nil {
		return e.fail(ctx, execCtx, data, err)
	}

	if rr.TargetModule == nil {
		e.logger.InfoContext(ctx, "No target module, answering with the classifier reply")

		return e.succeed(execCtx, data, cr.Response, models.ResponseText, models.MethodToCallerDirectly)
	}

	mr, err := e.runModule(ctx, *rr.TargetModule, data, execCtx)
	if err != nil {
		return e.fail(ctx, execCtx, data, err)
	}

	if mr.Method == models.MethodPresentModuleOutput {
		return e.succeed(execCtx, data, mr.Result, models.ResponseUIComponent, models.MethodPresentModuleOutput)
	}

	return e.format(ctx, clf, data, execCtx)
}

// start builds the classifier. The classifier credential must decrypt: unlike module API keys
// it never falls back to the stored value.
func (e *Engine) start(execCtx *models.ExecutionContext) (*classifier.Classifier, error) {
	node := e.pipeline.Classifier()

	config, err := e.pipeline.ClassifierConfig()
	if err != nil {
		return nil, err
	}

	credential := ""

	if strings.TrimSpace(config.APIKey) != "" {
		if e.deps.Credentials == nil {
			return nil, models.NewExecutionError(models.CodeCredentialDecryptionFailed,
				"no credential store is configured",
				models.WithNode(node.ID, models.RoleClassifier))
		}

		credential, err = e.deps.Credentials.Decrypt(config.APIKey)
		if err != nil {
			return nil, models.NewExecutionError(models.CodeCredentialDecryptionFailed,
				"classifier credential could not be decrypted",
				models.WithNode(node.ID, models.RoleClassifier),
				models.WithCause(err))
		}
	}

	opts := []classifier.Option{
		classifier.WithProviderFactory(e.deps.Providers),
		classifier.WithLogger(e.logger),
		classifier.WithTimeout(e.deps.LLMTimeout),
	}

	if e.deps.SupportedModels != nil {
		opts = append(opts, classifier.WithSupportedModels(e.deps.SupportedModels))
	}

	clf, err := classifier.New(node.ID, config, credential, opts...)
	if err != nil {
		return nil, err
	}

	if err := clf.Validate(); err != nil {
		return nil, err
	}

	e.logger.Debug("Classifier ready", "node_id", node.ID, "business_id", execCtx.BusinessID())

	return clf, nil
}

func (e *Engine) classify(ctx context.Context, clf *classifier.Classifier, data *models.NodeExecutionData, execCtx *models.ExecutionContext) (*models.ClassifierResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.deps.Tracer, "engine.classify",
		otelhelper.NodeAttributes(clf.NodeID(), models.RoleClassifier)...)
	defer span.End()

	started := time.Now()

	cr, err := clf.Execute(ctx, data.OriginalMessage, execCtx)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	cr.ExecutionTime = time.Since(started).Milliseconds()

	data.ClassifierResult = cr
	e.results.Classifier = cr
	e.executed = append(e.executed, clf.NodeID())

	span.SetAttributes(attribute.String(otelhelper.IntentKey, string(cr.Intent)))

	return cr, nil
}

func (e *Engine) route(ctx context.Context, data *models.NodeExecutionData) (*models.RouterResult, error) {
	_, span := otelhelper.StartSpan(ctx, e.deps.Tracer, "engine.route")
	defer span.End()

	node, config, err := e.pipeline.Router()
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.NodeIDKey, node.ID))

	started := time.Now()

	rr := router.New(node.ID, config, e.logger).Execute(data)
	rr.ExecutionTime = time.Since(started).Milliseconds()

	data.RouterResult = rr
	data.Merge(rr.Data)
	e.results.Router = rr
	e.executed = append(e.executed, node.ID)

	if rr.TargetModule != nil {
		span.AddEvent("routed", trace.WithAttributes(attribute.String("blitz.target_module", *rr.TargetModule)))
	}

	return rr, nil
}

func (e *Engine) runModule(ctx context.Context, target string, data *models.NodeExecutionData, execCtx *models.ExecutionContext) (*models.ModuleResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.deps.Tracer, "engine.module",
		attribute.String(otelhelper.NodeIDKey, target))
	defer span.End()

	node, config, err := e.pipeline.Module(target)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.ModuleTypeKey, string(config.ModuleType)))

	client := module.NewAPIClient(e.deps.HTTPClient, e.deps.Credentials, e.logger)
	started := time.Now()

	mr := module.New(node.ID, config, client, e.logger).Execute(ctx, data, execCtx)
	mr.ExecutionTime = time.Since(started).Milliseconds()

	data.ModuleResult = mr
	e.results.Module = mr
	e.executed = append(e.executed, node.ID)

	if !mr.Success {
		err := models.NewExecutionError(models.CodeModuleExecutionFailed,
			fmt.Sprintf("module %s failed: %s", node.ID, mr.Error),
			models.WithNode(node.ID, models.RoleModule),
			models.WithDetails(map[string]any{
				"moduleType": string(mr.ModuleType),
				"errorCode":  string(mr.ErrorCode),
				"diagnostic": mr.Result,
			}))
		otelhelper.SetError(span, err)

		return nil, err
	}

	return mr, nil
}

// format phrases the module result. A responder node with a structured or ui-component shape
// takes over from the classifier; a formatting failure degrades to the raw module payload.
func (e *Engine) format(ctx context.Context, clf *classifier.Classifier, data *models.NodeExecutionData, execCtx *models.ExecutionContext) *models.ExecutionResult {
	ctx, span := otelhelper.StartSpan(ctx, e.deps.Tracer, "engine.format")
	defer span.End()

	node, config, ok, err := e.pipeline.Responder()
	if err != nil {
		otelhelper.SetError(span, err)

		return e.fail(ctx, execCtx, data, err)
	}

	if ok && config.ResponseType != "" && config.ResponseType != models.ResponseText {
		return e.formatWithResponder(ctx, node.ID, config, data, execCtx)
	}

	text, err := clf.FormatResponse(ctx, data, execCtx)
	if err != nil {
		otelhelper.SetError(span, err)
		e.logger.WarnContext(ctx, "Formatting failed, returning the raw module result", "error", err)

		e.errors = append(e.errors, models.AsExecutionError(err, models.CodeClassifierExecutionError,
			models.WithNode(clf.NodeID(), models.RoleClassifier)))

		return e.succeed(execCtx, data, prettyJSON(data.ModuleResult.Result), models.ResponseText, models.MethodNeedsLanguageFormatting)
	}

	return e.succeed(execCtx, data, text, models.ResponseText, models.MethodNeedsLanguageFormatting)
}

func (e *Engine) formatWithResponder(ctx context.Context, nodeID string, config models.ResponderConfig, data *models.NodeExecutionData, execCtx *models.ExecutionContext) *models.ExecutionResult {
	started := time.Now()

	formatted, err := responder.New(nodeID, config).Format(data)
	if err != nil {
		return e.fail(ctx, execCtx, data, err)
	}

	formatted.ExecutionTime = time.Since(started).Milliseconds()
	e.results.Responder = formatted
	e.executed = append(e.executed, nodeID)

	return e.succeed(execCtx, data, formatted.Payload, formatted.ResponseType, models.MethodNeedsLanguageFormatting)
}

func isModuleFailure(err error) bool {
	return errors.Is(err, models.CodeModuleExecutionFailed)
}
