// Package pipeline loads a workflow into an arena with one slot per node role, so the engine
// looks nodes up directly instead of scanning the workflow on every run.
package pipeline

import (
	"fmt"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/nodes/router"
	"github.com/dukex/blitz/pkg/registry"
)

// Pipeline is a validated, read-only view of a workflow.
type Pipeline struct {
	workflow   *models.Workflow
	classifier *models.WorkflowNode
	router     *models.WorkflowNode
	responder  *models.WorkflowNode
	modules    map[string]*models.WorkflowNode
	nodes      map[string]*models.WorkflowNode
}

type options struct {
	registry *registry.Registry
}

// Option customises Load and Validate.
type Option func(*options)

// WithRegistry replaces the registry whose schemas node configurations are checked against.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// Load builds the arena for workflow. It fails with the first wiring or configuration error.
func Load(workflow *models.Workflow, opts ...Option) (*Pipeline, error) {
	p, errs := build(workflow, opts...)
	if len(errs) > 0 {
		return nil, errs[0]
	}

	return p, nil
}

// Report is the outcome of Validate.
type Report struct {
	Valid    bool                     `json:"valid"`
	Errors   []*models.ExecutionError `json:"errors,omitempty"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// Validate reports every load error of workflow plus advisory router issues.
func Validate(workflow *models.Workflow, opts ...Option) *Report {
	p, errs := build(workflow, opts...)

	report := &Report{Errors: errs}

	if p != nil && p.router != nil {
		var config models.RouterConfig
		if err := p.router.DecodeConfig(&config); err == nil {
			report.Warnings = router.ValidateConfig(config)
		}
	} else if p != nil {
		report.Warnings = append(report.Warnings, "workflow has no router node; only general queries can be answered")
	}

	report.Valid = len(report.Errors) == 0

	return report
}

func build(workflow *models.Workflow, opts ...Option) (*Pipeline, []*models.ExecutionError) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.registry == nil {
		o.registry = registry.NewDefaultRegistry()
	}

	if workflow == nil {
		return nil, []*models.ExecutionError{
			models.NewExecutionError(models.CodeConfigMissing, "workflow is nil"),
		}
	}

	p := &Pipeline{
		workflow: workflow,
		modules:  make(map[string]*models.WorkflowNode),
		nodes:    make(map[string]*models.WorkflowNode, len(workflow.Nodes)),
	}

	var errs []*models.ExecutionError

	for _, node := range workflow.Nodes {
		if node == nil {
			continue
		}

		if err := p.place(node); err != nil {
			errs = append(errs, err)

			continue
		}

		if err := o.registry.ValidateNode(node); err != nil {
			errs = append(errs, models.NewExecutionError(models.CodeInvalidNodeConfig,
				fmt.Sprintf("node %s has an invalid configuration", node.ID),
				models.WithNode(node.ID, node.Role),
				models.WithDetails(map[string]any{"reason": err.Error()}),
				models.WithCause(err)))
		}
	}

	if p.classifier == nil {
		errs = append(errs, models.NewExecutionError(models.CodeClassifierNodeNotFound,
			fmt.Sprintf("workflow %s has no classifier node", workflow.ID),
			models.WithDetails(map[string]any{"workflowId": workflow.ID})))
	}

	return p, errs
}

func (p *Pipeline) place(node *models.WorkflowNode) *models.ExecutionError {
	if node.ID == "" {
		return models.NewExecutionError(models.CodeInvalidNodeConfig, "node id is empty",
			models.WithNode("", node.Role))
	}

	if _, exists := p.nodes[node.ID]; exists {
		return models.NewExecutionError(models.CodeDuplicateNode,
			fmt.Sprintf("node id %s is used more than once", node.ID),
			models.WithNode(node.ID, node.Role))
	}

	var slot **models.WorkflowNode

	switch node.Role {
	case models.RoleClassifier:
		slot = &p.classifier
	case models.RoleRouter:
		slot = &p.router
	case models.RoleResponder:
		slot = &p.responder
	case models.RoleModule:
		p.modules[node.ID] = node
		p.nodes[node.ID] = node

		return nil
	default:
		return models.NewExecutionError(models.CodeInvalidNodeConfig,
			fmt.Sprintf("node %s has unknown role %q", node.ID, node.Role),
			models.WithNode(node.ID, node.Role))
	}

	if *slot != nil {
		return models.NewExecutionError(models.CodeDuplicateNode,
			fmt.Sprintf("workflow declares more than one %s node", node.Role),
			models.WithNode(node.ID, node.Role),
			models.WithDetails(map[string]any{"existingNodeId": (*slot).ID}))
	}

	*slot = node
	p.nodes[node.ID] = node

	return nil
}

// Workflow returns the loaded workflow.
func (p *Pipeline) Workflow() *models.Workflow {
	return p.workflow
}

// Classifier returns the classifier node. Load guarantees it exists.
func (p *Pipeline) Classifier() *models.WorkflowNode {
	return p.classifier
}

// ClassifierConfig decodes the classifier configuration.
func (p *Pipeline) ClassifierConfig() (models.ClassifierConfig, error) {
	var config models.ClassifierConfig

	if err := p.classifier.DecodeConfig(&config); err != nil {
		return config, invalidConfig(p.classifier, err)
	}

	return config, nil
}

// Router returns the router node and its configuration. A router without configuration gets
// an empty mapping.
func (p *Pipeline) Router() (*models.WorkflowNode, models.RouterConfig, error) {
	var config models.RouterConfig

	if p.router == nil {
		return nil, config, models.NewExecutionError(models.CodeRouterNodeNotFound,
			fmt.Sprintf("workflow %s has no router node", p.workflow.ID))
	}

	if err := p.router.DecodeConfig(&config); err != nil {
		return nil, config, invalidConfig(p.router, err)
	}

	if config.IntentMappings == nil {
		config.IntentMappings = map[models.RouterIntent]string{}
	}

	return p.router, config, nil
}

// Module returns the module node with the given id and its configuration.
func (p *Pipeline) Module(id string) (*models.WorkflowNode, models.ModuleConfig, error) {
	var config models.ModuleConfig

	node, ok := p.modules[id]
	if !ok {
		details := map[string]any{"targetModule": id}
		if other, exists := p.nodes[id]; exists {
			details["actualRole"] = string(other.Role)
		}

		return nil, config, models.NewExecutionError(models.CodeModuleNodeNotFound,
			fmt.Sprintf("module node %s not found", id),
			models.WithDetails(details))
	}

	if err := node.DecodeConfig(&config); err != nil {
		return nil, config, invalidConfig(node, err)
	}

	return node, config, nil
}

// Responder returns the responder node and its configuration, if one is configured.
func (p *Pipeline) Responder() (*models.WorkflowNode, models.ResponderConfig, bool, error) {
	var config models.ResponderConfig

	if p.responder == nil {
		return nil, config, false, nil
	}

	if err := p.responder.DecodeConfig(&config); err != nil {
		return nil, config, true, invalidConfig(p.responder, err)
	}

	return p.responder, config, true, nil
}

// ModuleIDs lists the module node ids in declaration order.
func (p *Pipeline) ModuleIDs() []string {
	ids := make([]string, 0, len(p.modules))

	for _, node := range p.workflow.NodesByRole(models.RoleModule) {
		if p.modules[node.ID] == node {
			ids = append(ids, node.ID)
		}
	}

	return ids
}

func invalidConfig(node *models.WorkflowNode, err error) *models.ExecutionError {
	return models.NewExecutionError(models.CodeInvalidNodeConfig, err.Error(),
		models.WithNode(node.ID, node.Role),
		models.WithCause(err))
}
