// Package registry keeps the node descriptors known to the engine and validates node
// configurations against their schemas.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// roleOrder is the order descriptors are listed in.
var roleOrder = []models.NodeRole{
	models.RoleClassifier,
	models.RoleRouter,
	models.RoleModule,
	models.RoleResponder,
}

type Registry struct {
	logger      *slog.Logger
	descriptors map[models.NodeRole]protocol.NodeDescriptor
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		logger:      log,
		descriptors: make(map[models.NodeRole]protocol.NodeDescriptor),
	}
}

func (r *Registry) Register(descriptor protocol.NodeDescriptor) {
	r.logger.Debug("Registering node descriptor", "role", descriptor.Role(), "name", descriptor.Name())
	r.descriptors[descriptor.Role()] = descriptor
}

// Descriptor returns the descriptor registered for role.
func (r *Registry) Descriptor(role models.NodeRole) (protocol.NodeDescriptor, bool) {
	descriptor, ok := r.descriptors[role]

	return descriptor, ok
}

// Descriptors lists the registered descriptors in pipeline order.
func (r *Registry) Descriptors() []protocol.NodeDescriptor {
	list := make([]protocol.NodeDescriptor, 0, len(r.descriptors))

	for _, role := range roleOrder {
		if descriptor, ok := r.descriptors[role]; ok {
			list = append(list, descriptor)
		}
	}

	return list
}

// ValidateNode checks the node configuration against the schema of its role.
func (r *Registry) ValidateNode(node *models.WorkflowNode) error {
	descriptor, ok := r.descriptors[node.Role]
	if !ok {
		return fmt.Errorf("node role '%s' not registered", node.Role)
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(descriptor.Schema()),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate node %s: %w", node.ID, err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// HealthCheck reports whether a descriptor is registered for every pipeline role.
func (r *Registry) HealthCheck() (string, bool) {
	var missing []string

	for _, role := range roleOrder {
		if _, ok := r.descriptors[role]; !ok {
			missing = append(missing, string(role))
		}
	}

	if len(missing) > 0 {
		return "Registry is missing roles: " + strings.Join(missing, ", "), false
	}

	return "Registry is healthy", true
}
