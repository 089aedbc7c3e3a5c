package ai

import "context"

// InlineImage is a base64-encoded artifact attached to an evaluation request
// so the model can reason over the pixels rather than a textual placeholder.
type InlineImage struct {
	Base64   string
	MimeType string
	Name     string
}

// EvaluationInput carries the assignment context and the normalized artifact
// content to grade.
type EvaluationInput struct {
	AssignmentTitle string
	Instructions    string
	MaxPoints       int
	Text            string
	Image           *InlineImage
}

// EvaluationResult is the structured outcome parsed from the model response.
// Grade is nil when the response did not contain a usable grade header.
type EvaluationResult struct {
	Grade       *int     `json:"grade"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
	Raw         string   `json:"raw,omitempty"`
}

// Evaluator describes an AI model capable of grading student submissions.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (EvaluationResult, error)
}
