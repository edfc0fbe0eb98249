package registry

import (
	"github.com/dukex/blitz/pkg/nodes/classifier"
	"github.com/dukex/blitz/pkg/nodes/module"
	"github.com/dukex/blitz/pkg/nodes/responder"
	"github.com/dukex/blitz/pkg/nodes/router"
)

// RegisterDefaultNodes registers the descriptors of the four pipeline roles.
func (r *Registry) RegisterDefaultNodes() {
	r.Register(classifier.NewDescriptor())
	r.Register(router.NewDescriptor())
	r.Register(module.NewDescriptor())
	r.Register(responder.NewDescriptor())
}

// NewDefaultRegistry returns a registry with the built-in descriptors.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(nil)
	r.RegisterDefaultNodes()

	return r
}
