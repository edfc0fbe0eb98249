package web

import (
	"errors"
	"net/http"

	"github.com/dukex/blitz/pkg/persistence"
	"github.com/dukex/blitz/pkg/services"
	"github.com/dukex/blitz/pkg/sessions"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// problem writes an RFC 7807 body for status.
func problem(c fiber.Ctx, status int, kind, detail string) error {
	body := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(body)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, http.StatusBadRequest, "validation_error", detail)
}

func internalError(c fiber.Ctx, err error) error {
	body := problems.NewStatusProblem(http.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(http.StatusInternalServerError).JSON(body)
}

// handleServiceError maps service and storage errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	var serviceErr *services.ServiceError
	if errors.As(err, &serviceErr) {
		if errors.Is(serviceErr, services.ErrInvalidWorkflow) {
			return problem(c, http.StatusUnprocessableEntity, "invalid_workflow", serviceErr.Detail())
		}

		return badRequest(c, serviceErr.Detail())
	}

	switch {
	case errors.Is(err, sessions.ErrInvalidSessionID), errors.Is(err, persistence.ErrInvalidWorkflowID):
		return badRequest(c, err.Error())
	case persistence.IsWorkflowNotFound(err):
		return problem(c, http.StatusNotFound, "workflow_not_found", "workflow not found")
	default:
		return internalError(c, err)
	}
}

// ErrorHandler renders errors that escape a handler, such as unknown routes, as problems.
func ErrorHandler(c fiber.Ctx, err error) error {
	status := http.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
	}

	if status >= http.StatusInternalServerError {
		return internalError(c, err)
	}

	return problem(c, status, "http_error", err.Error())
}
