// Package web provides HTTP handlers and REST API endpoints for pipeline management and chat.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/dukex/blitz/pkg/credentials"
	"github.com/dukex/blitz/pkg/registry"
	"github.com/dukex/blitz/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

var errInvalidJSON = errors.New("invalid JSON format")

type APIHandlers struct {
	workflows   *services.Workflow
	chat        *services.Chat
	credentials credentials.Store
	validator   *validator.Validate
	registry    *registry.Registry
}

func NewAPIHandlers(
	workflows *services.Workflow,
	chat *services.Chat,
	credentialStore credentials.Store,
	validate *validator.Validate,
	nodeRegistry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflows:   workflows,
		chat:        chat,
		credentials: credentialStore,
		validator:   validate,
		registry:    nodeRegistry,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	workflows := router.Group("/workflows")
	workflows.Get("/", h.ListWorkflows)
	workflows.Post("/validate", h.ValidateDraft)
	workflows.Get("/:id", h.FetchWorkflow)
	workflows.Put("/:id", h.SaveWorkflow)
	workflows.Delete("/:id", h.DeleteWorkflow)
	workflows.Post("/:id/validate", h.ValidateStored)
	workflows.Post("/:id/messages", h.SendMessage)

	router.Get("/nodes", h.NodeDescriptors)
	router.Post("/credentials/encrypt", h.EncryptCredential)
	router.Get("/health", h.Health)
}

// decode binds the JSON body into dst and runs the struct validation tags.
func (h *APIHandlers) decode(c fiber.Ctx, dst any) error {
	if err := c.Bind().JSON(dst); err != nil {
		return errInvalidJSON
	}

	return h.validator.Struct(dst)
}

// ListWorkflows answers GET /workflows, optionally filtered by ?business_id=.
func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	list, err := h.workflows.List(c.Context(), c.Query("business_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WorkflowListResponse{Workflows: list, TotalCount: len(list)})
}

func (h *APIHandlers) FetchWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// SaveWorkflow creates or replaces the workflow stored under :id.
func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	var req SaveWorkflowRequest
	if err := h.decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	saved, err := h.workflows.Save(c.Context(), c.Params("id"), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflows.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}

// ValidateDraft reports on a workflow sent in the body without storing it.
func (h *APIHandlers) ValidateDraft(c fiber.Ctx) error {
	var req SaveWorkflowRequest
	if err := h.decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(h.workflows.Validate(req.Workflow()))
}

func (h *APIHandlers) ValidateStored(c fiber.Ctx) error {
	workflow, err := h.workflows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.workflows.Validate(workflow))
}

// SendMessage runs the pipeline of :id for one chat message. A failed run still answers 200;
// the failure is inside the execution result.
func (h *APIHandlers) SendMessage(c fiber.Ctx) error {
	var req MessageRequest
	if err := h.decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	reply, err := h.chat.Send(c.Context(), req.ServiceRequest(c.Params("id")))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(reply)
}

func (h *APIHandlers) NodeDescriptors(c fiber.Ctx) error {
	descriptors := h.registry.Descriptors()

	out := make([]NodeDescriptorResponse, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, TransformDescriptor(d))
	}

	return c.JSON(out)
}

// EncryptCredential turns a provider or business API key into the value stored in a node
// configuration.
func (h *APIHandlers) EncryptCredential(c fiber.Ctx) error {
	var req EncryptRequest
	if err := h.decode(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	encrypted, err := h.credentials.Encrypt(req.Value)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(EncryptResponse{Encrypted: encrypted})
}

// Health reports the node registry and the workflow store. Any failing check answers 500.
func (h *APIHandlers) Health(c fiber.Ctx) error {
	registryCheck, registryOK := h.registry.HealthCheck()
	storeCheck, storeOK := h.workflows.HealthCheck(c.Context())

	resp := HealthResponse{
		Status:    "healthy",
		Message:   "Blitz API is healthy",
		Checkers:  map[string]string{"registry": registryCheck, "repository": storeCheck},
		Timestamp: time.Now().UTC(),
	}

	if !registryOK || !storeOK {
		resp.Status = "unhealthy"
		resp.Message = "Blitz API is unhealthy"

		return c.Status(http.StatusInternalServerError).JSON(resp)
	}

	return c.JSON(resp)
}
