package dto

import (
	"time"

	"github.com/aulaweb/aula-go-api/internal/models"
)

// MarkFinalRequest designates which attempt counts for grading.
type MarkFinalRequest struct {
	ActivityID uint `json:"activity_id" validate:"required,gt=0"`
	UserID     uint `json:"user_id" validate:"required,gt=0"`
}

// FeedbackUpdateRequest carries grader feedback for an attempt.
type FeedbackUpdateRequest struct {
	Feedback string `json:"feedback" validate:"required,min=1"`
}

// SubmissionFileResponse serializes a stored attachment reference.
type SubmissionFileResponse struct {
	ID        uint      `json:"id"`
	FileName  string    `json:"file_name"`
	Path      string    `json:"path"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmissionResponse is returned to API clients when viewing attempts.
type SubmissionResponse struct {
	ID            uint                     `json:"id"`
	ActivityID    uint                     `json:"activity_id"`
	UserID        uint                     `json:"user_id"`
	AttemptNumber int                      `json:"attempt_number"`
	Score         *float64                 `json:"score"`
	Feedback      *string                  `json:"feedback"`
	GradedAt      *time.Time               `json:"graded_at"`
	SubmittedAt   time.Time                `json:"submitted_at"`
	IsFinal       bool                     `json:"is_final"`
	Files         []SubmissionFileResponse `json:"files"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	files := make([]SubmissionFileResponse, 0, len(model.Files))
	for _, file := range model.Files {
		files = append(files, SubmissionFileResponse{
			ID:        file.ID,
			FileName:  file.FileName,
			Path:      file.Path,
			MimeType:  file.MimeType,
			SizeBytes: file.SizeBytes,
			CreatedAt: file.CreatedAt,
		})
	}

	return SubmissionResponse{
		ID:            model.ID,
		ActivityID:    model.ActivityID,
		UserID:        model.UserID,
		AttemptNumber: model.AttemptNumber,
		Score:         model.Score,
		Feedback:      model.Feedback,
		GradedAt:      model.GradedAt,
		SubmittedAt:   model.SubmittedAt,
		IsFinal:       model.IsFinal,
		Files:         files,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
