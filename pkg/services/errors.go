package services

import (
	"errors"
	"strings"

	"github.com/dukex/blitz/pkg/models"
)

// ErrInvalidRequest and ErrInvalidWorkflow classify rejected calls. The other sentinels
// wrap ErrInvalidRequest.
var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidWorkflow = errors.New("invalid workflow")

	ErrWorkflowNil     = &ServiceError{Op: "Save", Kind: ErrInvalidRequest, Reason: "workflow cannot be nil"}
	ErrMessageRequired = &ServiceError{Op: "Send", Kind: ErrInvalidRequest, Reason: "message is required"}
)

// ServiceError is a request the service refused. Kind is ErrInvalidRequest or
// ErrInvalidWorkflow; Issues lists the pipeline errors behind an invalid workflow.
type ServiceError struct {
	Op     string
	Kind   error
	Reason string
	Issues []*models.ExecutionError
}

func (e *ServiceError) Error() string {
	return e.Op + ": " + e.Reason
}

func (e *ServiceError) Unwrap() error {
	return e.Kind
}

// Detail is the reason followed by every issue, for API responses.
func (e *ServiceError) Detail() string {
	if len(e.Issues) == 0 {
		return e.Reason
	}

	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Error())
	}

	return e.Reason + ": " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err rejects the caller's input rather than the stored
// configuration.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

func invalidRequest(op string, err error) *ServiceError {
	return &ServiceError{Op: op, Kind: ErrInvalidRequest, Reason: err.Error()}
}

func invalidWorkflow(op string, issues ...*models.ExecutionError) *ServiceError {
	return &ServiceError{
		Op:     op,
		Kind:   ErrInvalidWorkflow,
		Reason: "workflow configuration is invalid",
		Issues: issues,
	}
}
