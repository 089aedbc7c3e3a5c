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

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service   service.SubmissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, validator *validator.Validate, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Put("/:id", h.resubmit)
	router.Delete("/:id", h.remove)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionFilter{}
	if assignmentID, err := parseQueryUint(c, "assignment_id"); err == nil && assignmentID != nil {
		filter.AssignmentID = assignmentID
	}
	if studentID, err := parseQueryUint(c, "student_id"); err == nil && studentID != nil {
		filter.StudentID = studentID
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	submissions, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	assignmentID, err := parseFormUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseFormUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload.AssignmentID = *assignmentID
	payload.StudentID = *studentID

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	submission, err := h.service.Submit(c.Context(), payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	message := "submission created"
	if submission.GradingPending {
		message = "submission created; grading pending review"
	}

	return utils.SendSuccess(c, message, submission)
}

func (h *SubmissionHandler) resubmit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID, err := parseFormUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.SubmissionResubmitRequest{
		StudentID: *studentID,
		Confirm:   c.FormValue("confirm") == "true",
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	submission, err := h.service.Resubmit(c.Context(), id, payload, file)
	if err != nil {
		return h.handleError(c, err)
	}

	message := "submission replaced"
	if submission.GradingPending {
		message = "submission replaced; grading pending review"
	}

	return utils.SendSuccess(c, message, submission)
}

func (h *SubmissionHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID, err := parseQueryUint(c, "student_id")
	if err != nil || studentID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "student_id is required")
	}

	if err := h.service.Remove(c.Context(), id, *studentID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission removed", nil)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrAlreadySubmitted):
		return utils.SendError(c, fiber.StatusConflict, "submission already exists; resubmit instead")
	case errors.Is(err, service.ErrConfirmRequired):
		return utils.SendError(c, fiber.StatusConflict, "resubmission discards the existing grade; set confirm=true to proceed")
	case errors.Is(err, service.ErrRemoveGraded):
		return utils.SendError(c, fiber.StatusConflict, "graded submissions cannot be removed")
	case errors.Is(err, service.ErrAssignmentNotPublished):
		return utils.SendError(c, fiber.StatusBadRequest, "assignment is not published")
	case errors.Is(err, service.ErrAssignmentPastDue):
		return utils.SendError(c, fiber.StatusBadRequest, "assignment is past due")
	case errors.Is(err, service.ErrArtifactTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "file exceeds maximum allowed size")
	case errors.Is(err, service.ErrArtifactTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, "file type not allowed")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
