package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/repository"
)

func setupDashboardTest(t *testing.T) (StudentDashboardService, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Assignment{}, &models.Submission{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := NewStudentDashboardService(
		repository.NewAssignmentRepository(db),
		repository.NewSubmissionRepository(db),
		client,
		5*time.Minute,
		testLogger(),
	)

	return svc, db, mr
}

func seedDashboardData(t *testing.T, db *gorm.DB, studentID uint) {
	t.Helper()

	graded := models.Assignment{
		Title:        "Graded Essay",
		Instructions: "Write an essay.",
		MaxPoints:    100,
		DueDate:      time.Now().Add(24 * time.Hour),
		Status:       models.AssignmentStatusPublished,
		TeacherID:    1,
	}
	pending := models.Assignment{
		Title:        "Untouched Quiz",
		Instructions: "Answer the quiz.",
		MaxPoints:    50,
		DueDate:      time.Now().Add(-time.Hour),
		Status:       models.AssignmentStatusPublished,
		TeacherID:    1,
	}
	draft := models.Assignment{
		Title:        "Hidden Draft",
		Instructions: "Not released yet.",
		MaxPoints:    100,
		DueDate:      time.Now().Add(24 * time.Hour),
		Status:       models.AssignmentStatusDraft,
		TeacherID:    1,
	}
	require.NoError(t, db.Create(&graded).Error)
	require.NoError(t, db.Create(&pending).Error)
	require.NoError(t, db.Create(&draft).Error)

	grade := 80.0
	gradedAt := time.Now()
	require.NoError(t, db.Create(&models.Submission{
		AssignmentID: graded.ID,
		StudentID:    studentID,
		ArtifactURL:  "https://cdn.test/submissions/essay",
		ArtifactRef:  "submissions/essay",
		Status:       models.SubmissionStatusGraded,
		Grade:        &grade,
		Feedback:     "Well structured.",
		Suggestions:  models.EncodeSuggestions([]string{"Tighten the intro"}),
		SubmittedAt:  time.Now(),
		GradedAt:     &gradedAt,
	}).Error)
}

func TestDashboardAggregatesProgress(t *testing.T) {
	svc, db, _ := setupDashboardTest(t)
	seedDashboardData(t, db, 7)

	dashboard, err := svc.GetDashboard(context.Background(), 7)
	require.NoError(t, err)

	// Draft assignments are invisible to students.
	require.Equal(t, 2, dashboard.Summary.TotalAssignments)
	require.Equal(t, 1, dashboard.Summary.Submitted)
	require.Equal(t, 1, dashboard.Summary.Graded)
	require.Equal(t, 1, dashboard.Summary.Pending)
	require.NotNil(t, dashboard.Summary.AverageGrade)
	require.Equal(t, 80.0, *dashboard.Summary.AverageGrade)

	require.Len(t, dashboard.Assignments, 2)
	for _, entry := range dashboard.Assignments {
		switch entry.Title {
		case "Graded Essay":
			require.Equal(t, models.SubmissionStatusGraded, entry.Status)
			require.NotNil(t, entry.Grade)
			require.Equal(t, []string{"Tighten the intro"}, entry.Suggestions)
			require.False(t, entry.Overdue)
		case "Untouched Quiz":
			require.Equal(t, "pending", entry.Status)
			require.Nil(t, entry.SubmissionID)
			require.True(t, entry.Overdue)
		default:
			t.Fatalf("unexpected assignment in dashboard: %s", entry.Title)
		}
	}
}

func TestDashboardServedFromCache(t *testing.T) {
	svc, db, mr := setupDashboardTest(t)
	seedDashboardData(t, db, 7)

	first, err := svc.GetDashboard(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, mr.Exists("dashboard:student:7"))

	// Mutating the database must not change the cached view until it expires.
	require.NoError(t, db.Where("student_id = ?", 7).Delete(&models.Submission{}).Error)

	cached, err := svc.GetDashboard(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, first.Summary, cached.Summary)

	mr.FastForward(6 * time.Minute)

	fresh, err := svc.GetDashboard(context.Background(), 7)
	require.NoError(t, err)
	require.Zero(t, fresh.Summary.Submitted)
}

func TestDashboardSurvivesCacheOutage(t *testing.T) {
	svc, db, mr := setupDashboardTest(t)
	seedDashboardData(t, db, 7)

	mr.Close()

	dashboard, err := svc.GetDashboard(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 1, dashboard.Summary.Submitted)
}
