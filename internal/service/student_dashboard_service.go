package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/classmark/classmark-api/internal/dto"
	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/repository"
)

// StudentDashboardService produces the aggregated per-student submission view.
type StudentDashboardService interface {
	GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
}

type studentDashboardService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator.
func NewStudentDashboardService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	return &studentDashboardService{
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "student_dashboard_service").Logger(),
		now:         time.Now,
	}
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	cacheKey := fmt.Sprintf("dashboard:student:%d", studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	assignments, _, err := s.assignments.List(ctx, repository.AssignmentFilter{Status: models.AssignmentStatusPublished})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	filter := repository.SubmissionFilter{StudentID: &studentID}
	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := s.buildResponse(assignments, submissions)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *studentDashboardService) buildResponse(assignments []models.Assignment, submissions []models.Submission) dto.StudentDashboardResponse {
	now := s.now()
	submissionByAssignment := map[uint]models.Submission{}
	for _, submission := range submissions {
		submissionByAssignment[submission.AssignmentID] = submission
	}

	summary := dto.ProgressSummary{}
	progress := make([]dto.AssignmentProgress, 0, len(assignments))
	var gradeTotal float64
	var gradedCount int

	for _, assignment := range assignments {
		summary.TotalAssignments++

		entry := dto.AssignmentProgress{
			AssignmentID: assignment.ID,
			Title:        assignment.Title,
			MaxPoints:    assignment.EffectiveMaxPoints(),
			DueDate:      assignment.DueDate,
			Overdue:      assignment.IsPastDue(now),
			Status:       "pending",
		}

		if submission, submitted := submissionByAssignment[assignment.ID]; submitted {
			summary.Submitted++
			entry.SubmissionID = &submission.ID
			entry.ArtifactURL = submission.ArtifactURL
			entry.Status = submission.Status
			entry.Feedback = submission.Feedback
			entry.Suggestions = submission.SuggestionList()
			entry.Grade = submission.Grade

			if submission.Status == models.SubmissionStatusGraded {
				summary.Graded++
				if submission.Grade != nil {
					gradeTotal += *submission.Grade
					gradedCount++
				}
			}
		} else {
			summary.Pending++
		}

		progress = append(progress, entry)
	}

	if gradedCount > 0 {
		average := gradeTotal / float64(gradedCount)
		summary.AverageGrade = &average
	}

	return dto.StudentDashboardResponse{
		Summary:     summary,
		Assignments: progress,
	}
}
