package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Submission represents the artifact a student uploaded for an assignment
// together with the outcome of its automated evaluation.
type Submission struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	AssignmentID uint           `gorm:"not null;uniqueIndex:idx_submissions_assignment_student" json:"assignment_id"`
	StudentID    uint           `gorm:"not null;uniqueIndex:idx_submissions_assignment_student" json:"student_id"`
	ArtifactURL  string         `gorm:"size:512;not null" json:"artifact_url"`
	ArtifactRef  string         `gorm:"size:512;not null" json:"artifact_ref"`
	ArtifactName string         `gorm:"size:255" json:"artifact_name"`
	ArtifactType string         `gorm:"size:128" json:"artifact_type"`
	ArtifactSize int64          `json:"artifact_size"`
	Status       string         `gorm:"size:32;not null" json:"status"`
	Grade        *float64       `json:"grade"`
	Feedback     string         `gorm:"type:text" json:"feedback"`
	Suggestions  datatypes.JSON `json:"suggestions"`
	SubmittedAt  time.Time      `gorm:"not null" json:"submitted_at"`
	GradedAt     *time.Time     `json:"graded_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Assignment   Assignment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
}

const (
	// SubmissionStatusSubmitted indicates the artifact is stored but grading is pending.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates the automated evaluation has completed.
	SubmissionStatusGraded = "graded"
)

// IsGraded reports whether the submission carries a final grade.
func (s Submission) IsGraded() bool {
	return s.Grade != nil
}

// SuggestionList decodes the stored suggestions column. A missing or corrupt
// column yields an empty slice rather than an error.
func (s Submission) SuggestionList() []string {
	if len(s.Suggestions) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(s.Suggestions, &out); err != nil {
		return []string{}
	}
	return out
}

// EncodeSuggestions serializes a suggestion slice into the JSON column type.
func EncodeSuggestions(suggestions []string) datatypes.JSON {
	if suggestions == nil {
		suggestions = []string{}
	}
	payload, err := json.Marshal(suggestions)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(payload)
}
