package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode classifies an ExecutionError.
type ErrorCode string

// Error makes an ErrorCode usable as an errors.Is target.
func (c ErrorCode) Error() string {
	return string(c)
}

const (
	// Setup errors.
	CodeConfigMissing              ErrorCode = "ConfigMissing"
	CodeConfigIncomplete           ErrorCode = "ConfigIncomplete"
	CodeUnsupportedModel           ErrorCode = "UnsupportedModel"
	CodeCredentialDecryptionFailed ErrorCode = "CredentialDecryptionFailed"

	// Wiring errors.
	CodeClassifierNodeNotFound ErrorCode = "ClassifierNodeNotFound"
	CodeRouterNodeNotFound     ErrorCode = "RouterNodeNotFound"
	CodeModuleNodeNotFound     ErrorCode = "ModuleNodeNotFound"
	CodeDuplicateNode          ErrorCode = "DuplicateNode"
	CodeInvalidNodeConfig      ErrorCode = "InvalidNodeConfig"

	// Collaborator failures.
	CodeAPIConfigMissing ErrorCode = "ApiConfigMissing"
	CodeAPICallFailed    ErrorCode = "ApiCallFailed"
	CodeAPICallTimeout   ErrorCode = "ApiCallTimeout"
	CodeAPICallError     ErrorCode = "ApiCallError"

	// Execution errors.
	CodeModuleTypeUnsupported    ErrorCode = "ModuleTypeUnsupported"
	CodeModuleExecutionFailed    ErrorCode = "ModuleExecutionFailed"
	CodeModuleResultMissing      ErrorCode = "ModuleResultMissing"
	CodeClassifierExecutionError ErrorCode = "ClassifierExecutionError"
	CodeNoValidMessages          ErrorCode = "NoValidMessages"
	CodeExecutionFailed          ErrorCode = "ExecutionFailed"
)

// ExecutionError is the uniform error value produced by every pipeline step.
type ExecutionError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	NodeID    string         `json:"nodeId,omitempty"`
	NodeType  NodeRole       `json:"nodeType,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`

	cause error
}

// ErrorOption decorates an ExecutionError at construction time.
type ErrorOption func(*ExecutionError)

// WithNode attributes the error to a pipeline node.
func WithNode(nodeID string, role NodeRole) ErrorOption {
	return func(e *ExecutionError) {
		e.NodeID = nodeID
		e.NodeType = role
	}
}

// WithDetails attaches structured diagnostics.
func WithDetails(details map[string]any) ErrorOption {
	return func(e *ExecutionError) {
		if e.Details == nil {
			e.Details = make(map[string]any, len(details))
		}

		for k, v := range details {
			e.Details[k] = v
		}
	}
}

// WithCause records the underlying error.
func WithCause(err error) ErrorOption {
	return func(e *ExecutionError) {
		e.cause = err
	}
}

// NewExecutionError is the single factory for pipeline errors.
func NewExecutionError(code ErrorCode, message string, opts ...ErrorOption) *ExecutionError {
	e := &ExecutionError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *ExecutionError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node %s)", e.Code, e.Message, e.NodeID)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.cause
}

// Is matches on the error code, so errors.Is(err, CodeAPICallFailed) works.
func (e *ExecutionError) Is(target error) bool {
	var code ErrorCode
	if errors.As(target, &code) {
		return e.Code == code
	}

	return false
}

// AsExecutionError converts any error into an ExecutionError, keeping existing ones intact.
func AsExecutionError(err error, fallback ErrorCode, opts ...ErrorOption) *ExecutionError {
	if err == nil {
		return nil
	}

	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr
	}

	return NewExecutionError(fallback, err.Error(), append(opts, WithCause(err))...)
}
