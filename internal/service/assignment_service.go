package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classmark/classmark-api/internal/dto"
	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/repository"
)

// ErrAssignmentNotFound indicates the assignment does not exist.
var ErrAssignmentNotFound = errors.New("assignment not found")

// AssignmentService exposes educator workflows around assignments, including
// the cascading delete that removes dependent submissions and their artifacts.
type AssignmentService interface {
	List(ctx context.Context, filter dto.AssignmentFilter) ([]dto.AssignmentResponse, int64, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	DeleteCascade(ctx context.Context, id uint) error
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	storage     ArtifactStorage
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(assignmentRepo repository.AssignmentRepository, subRepo repository.SubmissionRepository, validate *validator.Validate, storage ArtifactStorage, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		assignments: assignmentRepo,
		submissions: subRepo,
		validator:   validate,
		storage:     storage,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) List(ctx context.Context, filter dto.AssignmentFilter) ([]dto.AssignmentResponse, int64, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, 0, err
	}

	assignments, total, err := s.assignments.List(ctx, repository.AssignmentFilter{
		Status:   filter.Status,
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	return dto.NewAssignmentResponseSlice(assignments), total, nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	status := payload.Status
	if status == "" {
		status = models.AssignmentStatusDraft
	}

	maxPoints := payload.MaxPoints
	if maxPoints <= 0 {
		maxPoints = 100
	}

	assignment := models.Assignment{
		Title:        payload.Title,
		Instructions: payload.Instructions,
		MaxPoints:    maxPoints,
		DueDate:      payload.DueDate,
		Status:       status,
		TeacherID:    payload.TeacherID,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Instructions != nil {
		assignment.Instructions = *payload.Instructions
	}
	if payload.MaxPoints != nil {
		assignment.MaxPoints = *payload.MaxPoints
	}
	if payload.DueDate != nil {
		assignment.DueDate = *payload.DueDate
	}
	if payload.Status != nil {
		assignment.Status = *payload.Status
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment updated")

	return dto.NewAssignmentResponse(assignment), nil
}

// DeleteCascade removes the assignment together with every dependent
// submission and its stored artifact. Artifact deletes are best-effort: an
// object that is already gone, or a storage failure, is logged and the
// cascade continues.
func (s *assignmentService) DeleteCascade(ctx context.Context, id uint) error {
	if _, err := s.assignments.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &id})
	if err != nil {
		return err
	}

	for _, submission := range submissions {
		if err := s.storage.Delete(ctx, submission.ArtifactRef); err != nil {
			s.logger.Warn().Err(err).
				Uint("submission_id", submission.ID).
				Str("artifact_ref", submission.ArtifactRef).
				Msg("failed to delete artifact during cascade")
		}

		if err := s.submissions.Delete(ctx, submission.ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.logger.Info().Uint("assignment_id", id).Int("submissions_removed", len(submissions)).Msg("assignment deleted with cascade")

	return nil
}
