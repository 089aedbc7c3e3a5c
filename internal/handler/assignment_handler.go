package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classmark/classmark-api/internal/dto"
	"github.com/classmark/classmark-api/internal/service"
	"github.com/classmark/classmark-api/internal/utils"
)

// AssignmentHandler manages assignment endpoints.
type AssignmentHandler struct {
	service   service.AssignmentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssignmentHandler builds an assignment handler instance.
func NewAssignmentHandler(service service.AssignmentService, validator *validator.Validate, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.remove)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	filter := dto.AssignmentFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}
	if page, err := parseQueryInt(c, "page"); err == nil {
		filter.Page = page
	}
	if pageSize, err := parseQueryInt(c, "page_size"); err == nil {
		filter.PageSize = pageSize
	}

	assignments, total, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithMeta(c, "assignments retrieved", assignments, fiber.Map{"total": total})
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteCascade(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment deleted", nil)
}

func (h *AssignmentHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
