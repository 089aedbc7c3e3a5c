package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/classmark/classmark-api/internal/dto"
	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/observability"
	"github.com/classmark/classmark-api/internal/repository"
	"github.com/classmark/classmark-api/pkg/ai"
)

var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrAssignmentNotPublished indicates the assignment is not open for submissions.
	ErrAssignmentNotPublished = errors.New("assignment is not published")
	// ErrAssignmentPastDue indicates the submission window has closed.
	ErrAssignmentPastDue = errors.New("assignment is past due")
	// ErrAlreadySubmitted indicates the student already has a submission for the assignment.
	ErrAlreadySubmitted = errors.New("assignment already has a submission for this student")
	// ErrConfirmRequired indicates resubmitting would discard an existing grade.
	ErrConfirmRequired = errors.New("resubmission discards the existing grade and requires confirmation")
	// ErrRemoveGraded indicates a graded submission cannot be removed by the student.
	ErrRemoveGraded = errors.New("graded submissions cannot be removed")
)

// ArtifactStorage abstracts durable object storage for submission artifacts.
// Delete must be idempotent: removing an artifact that is already gone is not
// an error.
type ArtifactStorage interface {
	Upload(ctx context.Context, path string, reader io.Reader) (url string, ref string, err error)
	Delete(ctx context.Context, ref string) error
}

// SubmissionService orchestrates the submission lifecycle: artifact storage,
// content normalization, AI evaluation and record persistence.
type SubmissionService interface {
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Submit(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	Resubmit(ctx context.Context, id uint, payload dto.SubmissionResubmitRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	Remove(ctx context.Context, id uint, studentID uint) error
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	storage     ArtifactStorage
	evaluator   ai.Evaluator
	logger      zerolog.Logger
	tracer      trace.Tracer
	maxBytes    int64
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, assignmentRepo repository.AssignmentRepository, validate *validator.Validate, storage ArtifactStorage, evaluator ai.Evaluator, maxUploadMB int, logger zerolog.Logger) SubmissionService {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &submissionService{
		submissions: subRepo,
		assignments: assignmentRepo,
		validator:   validate,
		storage:     storage,
		evaluator:   evaluator,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/classmark/classmark-api/internal/service/submission"),
		maxBytes:    int64(maxUploadMB) * 1024 * 1024,
		now:         time.Now,
	}
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{
		AssignmentID: filter.AssignmentID,
		StudentID:    filter.StudentID,
		Status:       filter.Status,
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Submit(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit", trace.WithAttributes(
		attribute.Int64("submission.assignment_id", int64(payload.AssignmentID)),
		attribute.Int64("submission.student_id", int64(payload.StudentID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if file == nil {
		return dto.SubmissionResponse{}, fmt.Errorf("submission file is required")
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !assignment.IsPublished() {
		return dto.SubmissionResponse{}, ErrAssignmentNotPublished
	}

	if assignment.IsPastDue(s.now()) {
		return dto.SubmissionResponse{}, ErrAssignmentPastDue
	}

	// One submission per (assignment, student); replacement goes through Resubmit.
	if _, err := s.submissions.GetByAssignmentAndStudent(ctx, payload.AssignmentID, payload.StudentID); err == nil {
		return dto.SubmissionResponse{}, ErrAlreadySubmitted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, err
	}

	artifact, err := s.readArtifact(file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "artifact validation failed")
		return dto.SubmissionResponse{}, err
	}

	now := s.now()
	stored, err := s.storeArtifact(ctx, payload.AssignmentID, payload.StudentID, artifact, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "artifact storage failed")
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		AssignmentID: payload.AssignmentID,
		StudentID:    payload.StudentID,
		ArtifactURL:  stored.url,
		ArtifactRef:  stored.ref,
		ArtifactName: artifact.name,
		ArtifactType: artifact.mediaType,
		ArtifactSize: artifact.size,
		Status:       models.SubmissionStatusSubmitted,
		SubmittedAt:  now,
	}

	gradingPending := s.evaluateInto(ctx, &submission, assignment, artifact)

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	// Counter is incremented once per newly created submission, never on
	// resubmission. A failed increment only drifts the denormalized count.
	if err := s.assignments.AdjustSubmissionCount(ctx, assignment.ID, 1); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to increment submission counter")
	}

	observability.SubmissionsCreated().WithLabelValues(submission.Status).Inc()

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", created.ID).
		Bool("grading_pending", gradingPending).
		Msg("submission created")

	response := dto.NewSubmissionResponse(created)
	response.GradingPending = gradingPending

	return response, nil
}

func (s *submissionService) Resubmit(ctx context.Context, id uint, payload dto.SubmissionResubmitRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.resubmit", trace.WithAttributes(
		attribute.Int64("submission.id", int64(id)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if file == nil {
		return dto.SubmissionResponse{}, fmt.Errorf("submission file is required")
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if submission.StudentID != payload.StudentID {
		return dto.SubmissionResponse{}, ErrSubmissionNotFound
	}

	if submission.IsGraded() && !payload.Confirm {
		return dto.SubmissionResponse{}, ErrConfirmRequired
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	artifact, err := s.readArtifact(file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "artifact validation failed")
		return dto.SubmissionResponse{}, err
	}

	// The previous artifact goes first so at most one object remains in
	// storage per submission. A missing object is tolerated.
	if err := s.storage.Delete(ctx, submission.ArtifactRef); err != nil {
		s.logger.Warn().Err(err).Str("artifact_ref", submission.ArtifactRef).Msg("failed to delete previous artifact")
	}

	now := s.now()
	stored, err := s.storeArtifact(ctx, submission.AssignmentID, submission.StudentID, artifact, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "artifact storage failed")
		return dto.SubmissionResponse{}, err
	}

	submission.ArtifactURL = stored.url
	submission.ArtifactRef = stored.ref
	submission.ArtifactName = artifact.name
	submission.ArtifactType = artifact.mediaType
	submission.ArtifactSize = artifact.size
	submission.Status = models.SubmissionStatusSubmitted
	submission.SubmittedAt = now
	submission.Grade = nil
	submission.Feedback = ""
	submission.Suggestions = models.EncodeSuggestions(nil)
	submission.GradedAt = nil

	gradingPending := s.evaluateInto(ctx, &submission, assignment, artifact)

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	updated, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", updated.ID).
		Bool("grading_pending", gradingPending).
		Msg("submission replaced")

	response := dto.NewSubmissionResponse(updated)
	response.GradingPending = gradingPending

	return response, nil
}

func (s *submissionService) Remove(ctx context.Context, id uint, studentID uint) error {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	if submission.StudentID != studentID {
		return ErrSubmissionNotFound
	}

	if submission.IsGraded() {
		return ErrRemoveGraded
	}

	// Artifact delete is attempted first; a missing object must not block
	// record deletion.
	if err := s.storage.Delete(ctx, submission.ArtifactRef); err != nil {
		s.logger.Warn().Err(err).Str("artifact_ref", submission.ArtifactRef).Msg("failed to delete artifact during removal")
	}

	if err := s.submissions.Delete(ctx, submission.ID); err != nil {
		return err
	}

	if err := s.assignments.AdjustSubmissionCount(ctx, submission.AssignmentID, -1); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", submission.AssignmentID).Msg("failed to decrement submission counter")
	}

	s.logger.Info().Uint("submission_id", submission.ID).Msg("submission removed")

	return nil
}

type storedArtifact struct {
	url string
	ref string
}

func (s *submissionService) storeArtifact(ctx context.Context, assignmentID, studentID uint, artifact artifactPayload, now time.Time) (storedArtifact, error) {
	path := fmt.Sprintf("submissions/%d/%d/%d-%s", assignmentID, studentID, now.UnixNano(), sanitizeFileName(artifact.name))

	url, ref, err := s.storage.Upload(ctx, path, bytes.NewReader(artifact.content))
	if err != nil {
		return storedArtifact{}, fmt.Errorf("failed to store artifact: %w", err)
	}

	return storedArtifact{url: url, ref: ref}, nil
}

// evaluateInto runs normalization and AI evaluation for the artifact and
// applies the outcome to the submission record. It reports whether grading is
// still pending: evaluator failures are degraded to a pending state rather
// than aborting the submission.
func (s *submissionService) evaluateInto(ctx context.Context, submission *models.Submission, assignment models.Assignment, artifact artifactPayload) bool {
	normalized := NormalizeArtifact(Artifact{
		Name:      artifact.name,
		MediaType: artifact.mediaType,
		SizeBytes: artifact.size,
		Reader:    bytes.NewReader(artifact.content),
	})

	result, err := s.evaluator.Evaluate(ctx, ai.EvaluationInput{
		AssignmentTitle: assignment.Title,
		Instructions:    assignment.Instructions,
		MaxPoints:       assignment.EffectiveMaxPoints(),
		Text:            normalized.Text,
		Image:           normalized.Image,
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Uint("assignment_id", assignment.ID).
			Msg("evaluation unavailable; submission stored for manual review")
		observability.EvaluationsPending().Inc()
		return true
	}

	gradedAt := s.now()
	submission.Status = models.SubmissionStatusGraded
	submission.GradedAt = &gradedAt
	submission.Feedback = result.Feedback
	submission.Suggestions = models.EncodeSuggestions(result.Suggestions)

	if result.Grade != nil {
		grade := float64(*result.Grade)
		if max := float64(assignment.EffectiveMaxPoints()); grade > max {
			grade = max
		}
		submission.Grade = &grade
	} else {
		s.logger.Warn().
			Uint("assignment_id", assignment.ID).
			Msg("evaluation returned no grade; feedback persisted without score")
	}

	return false
}
