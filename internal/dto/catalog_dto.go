package dto

import (
	"time"

	"github.com/aulaweb/aula-go-api/internal/models"
)

// CourseCreateRequest describes a new course.
type CourseCreateRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description"`
}

// ModuleCreateRequest describes a new module inside a course.
type ModuleCreateRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description"`
}

// ActivityCreateRequest describes a new activity inside a module.
type ActivityCreateRequest struct {
	Title          string     `json:"title" validate:"required,min=1,max=255"`
	Content        string     `json:"content"`
	Deadline       *time.Time `json:"deadline"`
	MaxSubmissions int        `json:"max_submissions" validate:"omitempty,gte=1,lte=20"`
}

// ActivityUpdateRequest patches an activity. Nil fields are left untouched;
// ClearDeadline removes a deadline explicitly.
type ActivityUpdateRequest struct {
	Title          *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Content        *string    `json:"content"`
	Deadline       *time.Time `json:"deadline"`
	ClearDeadline  bool       `json:"clear_deadline"`
	MaxSubmissions *int       `json:"max_submissions" validate:"omitempty,gte=1,lte=20"`
}

// CourseResponse serializes a course.
type CourseResponse struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"created_at"`
	Modules     []ModuleResponse `json:"modules,omitempty"`
}

// ModuleResponse serializes a module.
type ModuleResponse struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActivityResponse serializes an activity.
type ActivityResponse struct {
	ID             uint       `json:"id"`
	ModuleID       uint       `json:"module_id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Deadline       *time.Time `json:"deadline"`
	MaxSubmissions int        `json:"max_submissions"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewCourseResponse converts a course model into a DTO.
func NewCourseResponse(model models.Course) CourseResponse {
	response := CourseResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
	}
	for _, module := range model.Modules {
		response.Modules = append(response.Modules, NewModuleResponse(module))
	}

	return response
}

// NewCourseResponseSlice converts course models into DTOs.
func NewCourseResponseSlice(models []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(models))
	for _, course := range models {
		responses = append(responses, NewCourseResponse(course))
	}

	return responses
}

// NewModuleResponse converts a module model into a DTO.
func NewModuleResponse(model models.Module) ModuleResponse {
	return ModuleResponse{
		ID:          model.ID,
		CourseID:    model.CourseID,
		Title:       model.Title,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
	}
}

// NewModuleResponseSlice converts module models into DTOs.
func NewModuleResponseSlice(models []models.Module) []ModuleResponse {
	responses := make([]ModuleResponse, 0, len(models))
	for _, module := range models {
		responses = append(responses, NewModuleResponse(module))
	}

	return responses
}

// NewActivityResponse converts an activity model into a DTO.
func NewActivityResponse(model models.Activity) ActivityResponse {
	return ActivityResponse{
		ID:             model.ID,
		ModuleID:       model.ModuleID,
		Title:          model.Title,
		Content:        model.Content,
		Deadline:       model.Deadline,
		MaxSubmissions: model.MaxSubmissions,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

// NewActivityResponseSlice converts activity models into DTOs.
func NewActivityResponseSlice(models []models.Activity) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(models))
	for _, activity := range models {
		responses = append(responses, NewActivityResponse(activity))
	}

	return responses
}
