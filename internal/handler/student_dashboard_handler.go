package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/classmark/classmark-api/internal/service"
	"github.com/classmark/classmark-api/internal/utils"
)

// StudentDashboardHandler serves the aggregated student progress view.
type StudentDashboardHandler struct {
	service service.StudentDashboardService
	logger  zerolog.Logger
}

// NewStudentDashboardHandler builds a dashboard handler instance.
func NewStudentDashboardHandler(service service.StudentDashboardService, logger zerolog.Logger) *StudentDashboardHandler {
	return &StudentDashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "student_dashboard_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *StudentDashboardHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
}

func (h *StudentDashboardHandler) dashboard(c *fiber.Ctx) error {
	studentID, err := parseQueryUint(c, "student_id")
	if err != nil || studentID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "student_id is required")
	}

	dashboard, err := h.service.GetDashboard(c.Context(), *studentID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build dashboard")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}
