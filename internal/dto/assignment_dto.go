package dto

import (
	"time"

	"github.com/classmark/classmark-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating an assignment.
type AssignmentCreateRequest struct {
	Title        string    `json:"title" validate:"required,min=3,max=255"`
	Instructions string    `json:"instructions" validate:"required,min=3"`
	MaxPoints    int       `json:"max_points" validate:"omitempty,gt=0,lte=1000"`
	DueDate      time.Time `json:"due_date" validate:"required"`
	Status       string    `json:"status" validate:"omitempty,oneof=draft published"`
	TeacherID    uint      `json:"teacher_id" validate:"required,gt=0"`
}

// AssignmentUpdateRequest describes a partial assignment update; publishing is
// done by setting the status field.
type AssignmentUpdateRequest struct {
	Title        *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Instructions *string    `json:"instructions" validate:"omitempty,min=3"`
	MaxPoints    *int       `json:"max_points" validate:"omitempty,gt=0,lte=1000"`
	DueDate      *time.Time `json:"due_date"`
	Status       *string    `json:"status" validate:"omitempty,oneof=draft published"`
}

// AssignmentFilter describes listing options.
type AssignmentFilter struct {
	Status   string `query:"status" validate:"omitempty,oneof=draft published"`
	Search   string `query:"search"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// AssignmentResponse is returned to API clients when viewing assignments.
type AssignmentResponse struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	Instructions     string    `json:"instructions"`
	MaxPoints        int       `json:"max_points"`
	DueDate          time.Time `json:"due_date"`
	Status           string    `json:"status"`
	TotalSubmissions int       `json:"total_submissions"`
	TeacherID        uint      `json:"teacher_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:               model.ID,
		Title:            model.Title,
		Instructions:     model.Instructions,
		MaxPoints:        model.EffectiveMaxPoints(),
		DueDate:          model.DueDate,
		Status:           model.Status,
		TotalSubmissions: model.TotalSubmissions,
		TeacherID:        model.TeacherID,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts assignment models into DTOs.
func NewAssignmentResponseSlice(models []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(models))
	for _, assignment := range models {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
