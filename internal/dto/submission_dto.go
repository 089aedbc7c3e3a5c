package dto

import (
	"time"

	"github.com/classmark/classmark-api/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for a first upload.
type SubmissionCreateRequest struct {
	AssignmentID uint `form:"assignment_id" validate:"required,gt=0"`
	StudentID    uint `form:"student_id" validate:"required,gt=0"`
}

// SubmissionResubmitRequest describes a replacement upload. Confirm must be
// set when the existing submission already carries a grade, since
// resubmission discards it.
type SubmissionResubmitRequest struct {
	StudentID uint `form:"student_id" validate:"required,gt=0"`
	Confirm   bool `form:"confirm"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint   `query:"assignment_id"`
	StudentID    *uint   `query:"student_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=submitted graded"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID             uint           `json:"id"`
	AssignmentID   uint           `json:"assignment_id"`
	StudentID      uint           `json:"student_id"`
	ArtifactURL    string         `json:"artifact_url"`
	ArtifactName   string         `json:"artifact_name"`
	ArtifactType   string         `json:"artifact_type"`
	ArtifactSize   int64          `json:"artifact_size"`
	Status         string         `json:"status"`
	Grade          *float64       `json:"grade"`
	Feedback       string         `json:"feedback"`
	Suggestions    []string       `json:"suggestions"`
	GradingPending bool           `json:"grading_pending"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	GradedAt       *time.Time     `json:"graded_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Assignment     AssignmentLite `json:"assignment"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	MaxPoints int       `json:"max_points"`
	DueDate   time.Time `json:"due_date"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		ArtifactURL:  model.ArtifactURL,
		ArtifactName: model.ArtifactName,
		ArtifactType: model.ArtifactType,
		ArtifactSize: model.ArtifactSize,
		Status:       model.Status,
		Grade:        model.Grade,
		Feedback:     model.Feedback,
		Suggestions:  model.SuggestionList(),
		SubmittedAt:  model.SubmittedAt,
		GradedAt:     model.GradedAt,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:        model.Assignment.ID,
			Title:     model.Assignment.Title,
			MaxPoints: model.Assignment.EffectiveMaxPoints(),
			DueDate:   model.Assignment.DueDate,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
