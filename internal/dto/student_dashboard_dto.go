package dto

import "time"

// StudentDashboardResponse aggregates a student's progress across published assignments.
type StudentDashboardResponse struct {
	Summary     ProgressSummary      `json:"summary"`
	Assignments []AssignmentProgress `json:"assignments"`
}

// ProgressSummary carries the headline counters for the dashboard.
type ProgressSummary struct {
	TotalAssignments int      `json:"total_assignments"`
	Submitted        int      `json:"submitted"`
	Graded           int      `json:"graded"`
	Pending          int      `json:"pending"`
	AverageGrade     *float64 `json:"average_grade"`
}

// AssignmentProgress describes one assignment from the student's perspective.
type AssignmentProgress struct {
	AssignmentID uint      `json:"assignment_id"`
	Title        string    `json:"title"`
	MaxPoints    int       `json:"max_points"`
	DueDate      time.Time `json:"due_date"`
	Overdue      bool      `json:"overdue"`
	Status       string    `json:"status"`
	SubmissionID *uint     `json:"submission_id"`
	ArtifactURL  string    `json:"artifact_url,omitempty"`
	Grade        *float64  `json:"grade"`
	Feedback     string    `json:"feedback,omitempty"`
	Suggestions  []string  `json:"suggestions,omitempty"`
}
