package persistence

import (
	"errors"
	"fmt"
	"strings"
)

const maxWorkflowIDLength = 255

var (
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrInvalidWorkflowID = errors.New("invalid workflow id")
)

// WorkflowError attributes a storage failure to the operation and workflow it happened on.
type WorkflowError struct {
	Op         string
	WorkflowID string
	Err        error
}

// NewWorkflowError wraps err, which stays reachable through errors.Is and errors.As.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{Op: op, WorkflowID: workflowID, Err: err}
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s(%q): %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// ValidateWorkflowID rejects ids that are blank, too long or able to leave a storage
// namespace such as a directory.
func ValidateWorkflowID(id string) error {
	switch {
	case strings.TrimSpace(id) == "", len(id) > maxWorkflowIDLength:
		return ErrInvalidWorkflowID
	case strings.ContainsAny(id, `/\`), strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q contains a path element", ErrInvalidWorkflowID, id)
	default:
		return nil
	}
}
