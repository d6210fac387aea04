package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/aulaweb/aula-go-api/internal/dto"
	"github.com/aulaweb/aula-go-api/internal/models"
	"github.com/aulaweb/aula-go-api/internal/repository"
)

// ErrCourseNotFound indicates the requested course does not exist.
var ErrCourseNotFound = errors.New("course not found")

// ErrActivityNotFound indicates the activity, or its module/course chain,
// could not be resolved.
var ErrActivityNotFound = errors.New("activity not found")

// CatalogService manages the course -> module -> activity hierarchy that the
// submission and grade ledgers hang off.
type CatalogService interface {
	ListCourses(ctx context.Context) ([]dto.CourseResponse, error)
	GetCourse(ctx context.Context, id uint) (dto.CourseResponse, error)
	CreateCourse(ctx context.Context, payload dto.CourseCreateRequest) (dto.CourseResponse, error)
	CreateModule(ctx context.Context, courseID uint, payload dto.ModuleCreateRequest) (dto.ModuleResponse, error)
	ListModules(ctx context.Context, courseID uint) ([]dto.ModuleResponse, error)
	ListActivities(ctx context.Context, moduleID uint) ([]dto.ActivityResponse, error)
	GetActivity(ctx context.Context, id uint) (dto.ActivityResponse, error)
	CreateActivity(ctx context.Context, moduleID uint, payload dto.ActivityCreateRequest) (dto.ActivityResponse, error)
	UpdateActivity(ctx context.Context, id uint, payload dto.ActivityUpdateRequest) (dto.ActivityResponse, error)
	DeleteActivity(ctx context.Context, id uint) error
}

type catalogService struct {
	courses    repository.CourseRepository
	activities repository.ActivityRepository
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewCatalogService constructs a CatalogService instance.
func NewCatalogService(courseRepo repository.CourseRepository, activityRepo repository.ActivityRepository, validate *validator.Validate, logger zerolog.Logger) CatalogService {
	return &catalogService{
		courses:    courseRepo,
		activities: activityRepo,
		validator:  validate,
		logger:     logger.With().Str("component", "catalog_service").Logger(),
	}
}

func (s *catalogService) ListCourses(ctx context.Context) ([]dto.CourseResponse, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewCourseResponseSlice(courses), nil
}

func (s *catalogService) GetCourse(ctx context.Context, id uint) (dto.CourseResponse, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	return dto.NewCourseResponse(course), nil
}

func (s *catalogService) CreateCourse(ctx context.Context, payload dto.CourseCreateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course := models.Course{
		Title:       payload.Title,
		Description: payload.Description,
	}
	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.logger.Info().Uint("course_id", course.ID).Msg("course created")

	return dto.NewCourseResponse(course), nil
}

func (s *catalogService) CreateModule(ctx context.Context, courseID uint, payload dto.ModuleCreateRequest) (dto.ModuleResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ModuleResponse{}, err
	}

	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ModuleResponse{}, ErrCourseNotFound
		}
		return dto.ModuleResponse{}, err
	}

	module := models.Module{
		CourseID:    courseID,
		Title:       payload.Title,
		Description: payload.Description,
	}
	if err := s.courses.CreateModule(ctx, &module); err != nil {
		return dto.ModuleResponse{}, err
	}

	return dto.NewModuleResponse(module), nil
}

func (s *catalogService) ListModules(ctx context.Context, courseID uint) ([]dto.ModuleResponse, error) {
	modules, err := s.courses.ListModules(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewModuleResponseSlice(modules), nil
}

func (s *catalogService) ListActivities(ctx context.Context, moduleID uint) ([]dto.ActivityResponse, error) {
	activities, err := s.activities.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	return dto.NewActivityResponseSlice(activities), nil
}

func (s *catalogService) GetActivity(ctx context.Context, id uint) (dto.ActivityResponse, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrActivityNotFound
		}
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(activity), nil
}

func (s *catalogService) CreateActivity(ctx context.Context, moduleID uint, payload dto.ActivityCreateRequest) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, err
	}

	maxSubmissions := payload.MaxSubmissions
	if maxSubmissions <= 0 {
		maxSubmissions = 1
	}

	activity := models.Activity{
		ModuleID:       moduleID,
		Title:          payload.Title,
		Content:        payload.Content,
		Deadline:       normalizeDeadline(payload.Deadline),
		MaxSubmissions: maxSubmissions,
	}
	if err := s.activities.Create(ctx, &activity); err != nil {
		return dto.ActivityResponse{}, err
	}

	s.logger.Info().Uint("activity_id", activity.ID).Uint("module_id", moduleID).Msg("activity created")

	return dto.NewActivityResponse(activity), nil
}

// UpdateActivity applies a typed patch. Raising or lowering max_submissions
// never retroactively invalidates attempts that were already recorded.
func (s *catalogService) UpdateActivity(ctx context.Context, id uint, payload dto.ActivityUpdateRequest) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, err
	}

	activity, err := s.activities.Update(ctx, id, repository.ActivityPatch{
		Title:          payload.Title,
		Content:        payload.Content,
		Deadline:       payload.Deadline,
		ClearDeadline:  payload.ClearDeadline,
		MaxSubmissions: payload.MaxSubmissions,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivityResponse{}, ErrActivityNotFound
		}
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(activity), nil
}

func (s *catalogService) DeleteActivity(ctx context.Context, id uint) error {
	if err := s.activities.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrActivityNotFound
		}
		return err
	}

	return nil
}

func normalizeDeadline(deadline *time.Time) *time.Time {
	if deadline == nil || deadline.IsZero() {
		return nil
	}
	return deadline
}
