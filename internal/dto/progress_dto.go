package dto

import (
	"time"

	"github.com/aulaweb/aula-go-api/internal/models"
)

// ModuleAveragesResponse reports one module's rollup for a user.
type ModuleAveragesResponse struct {
	ModuleID         uint    `json:"module_id"`
	Average          float64 `json:"average"`
	TotalActivities  int     `json:"total_activities"`
	GradedActivities int     `json:"graded_activities"`
}

// CourseAveragesResponse reports a user's averages for one course. The course
// average weighs each module by its graded activity count; a course with no
// graded activities reports 0 throughout.
type CourseAveragesResponse struct {
	CourseID      uint                     `json:"course_id"`
	CourseAverage float64                  `json:"course_average"`
	Modules       []ModuleAveragesResponse `json:"modules"`
}

// ProgressUpdateRequest creates or updates a progress row for a scope.
type ProgressUpdateRequest struct {
	Status string   `json:"status" validate:"required,oneof=not-started in-progress completed"`
	Score  *float64 `json:"score" validate:"omitempty,gte=0,lte=100"`
}

// ProgressResponse serializes one progress row.
type ProgressResponse struct {
	ID           uint       `json:"id"`
	UserID       uint       `json:"user_id"`
	CourseID     uint       `json:"course_id"`
	ModuleID     *uint      `json:"module_id"`
	ActivityID   *uint      `json:"activity_id"`
	Status       string     `json:"status"`
	Score        *float64   `json:"score"`
	LastAccessed time.Time  `json:"last_accessed"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// SummaryResponse serializes one derived summary row.
type SummaryResponse struct {
	UserID           uint      `json:"user_id"`
	CourseID         uint      `json:"course_id"`
	ModuleID         *uint     `json:"module_id"`
	AverageScore     float64   `json:"average_score"`
	TotalActivities  int       `json:"total_activities"`
	GradedActivities int       `json:"graded_activities"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FullProgressResponse pairs the derived summary with the detail rows.
type FullProgressResponse struct {
	Summary []SummaryResponse  `json:"summary"`
	Details []ProgressResponse `json:"details"`
}

// CourseSummaryResponse splits summary rows into the course rollup and the
// per-module rows.
type CourseSummaryResponse struct {
	Course  *SummaryResponse  `json:"course"`
	Modules []SummaryResponse `json:"modules"`
}

// EnrollmentResponse lists a user's course-level progress row.
type EnrollmentResponse struct {
	UserID       uint      `json:"user_id"`
	CourseID     uint      `json:"course_id"`
	Status       string    `json:"status"`
	LastAccessed time.Time `json:"last_accessed"`
}

// NewProgressResponse converts a progress model into a DTO.
func NewProgressResponse(model models.UserProgress) ProgressResponse {
	return ProgressResponse{
		ID:           model.ID,
		UserID:       model.UserID,
		CourseID:     model.CourseID,
		ModuleID:     model.ModuleID,
		ActivityID:   model.ActivityID,
		Status:       model.Status,
		Score:        model.Score,
		LastAccessed: model.LastAccessed,
		CompletedAt:  model.CompletedAt,
	}
}

// NewProgressResponseSlice converts progress models into DTOs.
func NewProgressResponseSlice(models []models.UserProgress) []ProgressResponse {
	responses := make([]ProgressResponse, 0, len(models))
	for _, row := range models {
		responses = append(responses, NewProgressResponse(row))
	}

	return responses
}

// NewSummaryResponse converts a summary model into a DTO.
func NewSummaryResponse(model models.ProgressSummary) SummaryResponse {
	return SummaryResponse{
		UserID:           model.UserID,
		CourseID:         model.CourseID,
		ModuleID:         model.ModuleID,
		AverageScore:     model.AverageScore,
		TotalActivities:  model.TotalActivities,
		GradedActivities: model.GradedActivities,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewSummaryResponseSlice converts summary models into DTOs.
func NewSummaryResponseSlice(models []models.ProgressSummary) []SummaryResponse {
	responses := make([]SummaryResponse, 0, len(models))
	for _, row := range models {
		responses = append(responses, NewSummaryResponse(row))
	}

	return responses
}

// NewEnrollmentResponseSlice converts course-level rows into enrollments.
func NewEnrollmentResponseSlice(models []models.UserProgress) []EnrollmentResponse {
	responses := make([]EnrollmentResponse, 0, len(models))
	for _, row := range models {
		responses = append(responses, EnrollmentResponse{
			UserID:       row.UserID,
			CourseID:     row.CourseID,
			Status:       row.Status,
			LastAccessed: row.LastAccessed,
		})
	}

	return responses
}
