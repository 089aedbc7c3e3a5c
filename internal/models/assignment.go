package models

import "time"

// Assignment represents a unit of work published by an educator.
type Assignment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	Instructions     string    `gorm:"type:text" json:"instructions"`
	MaxPoints        int       `gorm:"not null;default:100" json:"max_points"`
	DueDate          time.Time `gorm:"not null" json:"due_date"`
	Status           string    `gorm:"size:32;not null;default:draft" json:"status"`
	TotalSubmissions int       `gorm:"not null;default:0" json:"total_submissions"`
	TeacherID        uint      `gorm:"not null" json:"teacher_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Submissions      []Submission
}

const (
	// AssignmentStatusDraft marks an assignment that is not yet visible to students.
	AssignmentStatusDraft = "draft"
	// AssignmentStatusPublished marks an assignment open for submissions.
	AssignmentStatusPublished = "published"
)

// IsPublished reports whether students may submit work for the assignment.
func (a Assignment) IsPublished() bool {
	return a.Status == AssignmentStatusPublished
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// EffectiveMaxPoints returns the grading ceiling, defaulting to 100.
func (a Assignment) EffectiveMaxPoints() int {
	if a.MaxPoints <= 0 {
		return 100
	}
	return a.MaxPoints
}
