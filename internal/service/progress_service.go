package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aulaweb/aula-go-api/internal/dto"
	"github.com/aulaweb/aula-go-api/internal/models"
	"github.com/aulaweb/aula-go-api/internal/observability"
	"github.com/aulaweb/aula-go-api/internal/repository"
)

// ProgressService derives per-module and per-course aggregates from the grade
// ledger and owns every write to the summary table.
type ProgressService interface {
	CalculateAverages(ctx context.Context, userID, courseID uint) (dto.CourseAveragesResponse, error)
	RefreshSummary(ctx context.Context, userID, courseID uint, moduleID *uint) error
	GetCourseSummary(ctx context.Context, userID, courseID uint) (dto.CourseSummaryResponse, error)
	GetFullProgress(ctx context.Context, userID, courseID uint) (dto.FullProgressResponse, error)
	UpdateProgress(ctx context.Context, userID, courseID uint, moduleID, activityID *uint, payload dto.ProgressUpdateRequest) (dto.ProgressResponse, error)
	ListEnrollments(ctx context.Context) ([]dto.EnrollmentResponse, error)
}

type progressService struct {
	progress  repository.ProgressRepository
	validator *validator.Validate
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewProgressService builds the progress aggregator. The redis client is
// optional; without it summary reads always hit the database.
func NewProgressService(progressRepo repository.ProgressRepository, validate *validator.Validate, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ProgressService {
	return &progressService{
		progress:  progressRepo,
		validator: validate,
		cache:     cache,
		cacheTTL:  ttl,
		logger:    logger.With().Str("component", "progress_service").Logger(),
		now:       time.Now,
	}
}

// CalculateAverages means only graded activities per module and weighs the
// course average by each module's graded count. A course with nothing graded
// reports zeros rather than failing.
func (s *progressService) CalculateAverages(ctx context.Context, userID, courseID uint) (dto.CourseAveragesResponse, error) {
	aggregates, err := s.progress.ModuleAggregates(ctx, userID, courseID)
	if err != nil {
		return dto.CourseAveragesResponse{}, err
	}

	response := dto.CourseAveragesResponse{
		CourseID: courseID,
		Modules:  make([]dto.ModuleAveragesResponse, 0, len(aggregates)),
	}

	var weightedSum float64
	var gradedTotal int
	for _, aggregate := range aggregates {
		average := round1(aggregate.Average)
		response.Modules = append(response.Modules, dto.ModuleAveragesResponse{
			ModuleID:         aggregate.ModuleID,
			Average:          average,
			TotalActivities:  aggregate.TotalActivities,
			GradedActivities: aggregate.GradedActivities,
		})
		weightedSum += average * float64(aggregate.GradedActivities)
		gradedTotal += aggregate.GradedActivities
	}

	if gradedTotal > 0 {
		response.CourseAverage = round1(weightedSum / float64(gradedTotal))
	}

	return response, nil
}

// RefreshSummary recomputes and persists the summary rows for the scope. It
// is the only writer of the summary table; handlers and other services go
// through it after every grade or progress write.
func (s *progressService) RefreshSummary(ctx context.Context, userID, courseID uint, moduleID *uint) error {
	start := s.now()
	defer func() {
		observability.SummaryRefreshDuration().Observe(time.Since(start).Seconds())
	}()

	aggregates, err := s.progress.ModuleAggregates(ctx, userID, courseID)
	if err != nil {
		return err
	}

	now := s.now()
	rows := make([]models.ProgressSummary, 0, len(aggregates)+1)

	var weightedSum float64
	var gradedTotal, activityTotal int
	for _, aggregate := range aggregates {
		average := round1(aggregate.Average)
		weightedSum += average * float64(aggregate.GradedActivities)
		gradedTotal += aggregate.GradedActivities
		activityTotal += aggregate.TotalActivities

		if moduleID != nil && aggregate.ModuleID != *moduleID {
			continue
		}
		moduleRef := aggregate.ModuleID
		rows = append(rows, models.ProgressSummary{
			UserID:           userID,
			CourseID:         courseID,
			ModuleID:         &moduleRef,
			AverageScore:     average,
			TotalActivities:  aggregate.TotalActivities,
			GradedActivities: aggregate.GradedActivities,
			UpdatedAt:        now,
		})
	}

	courseRow := models.ProgressSummary{
		UserID:           userID,
		CourseID:         courseID,
		TotalActivities:  activityTotal,
		GradedActivities: gradedTotal,
		UpdatedAt:        now,
	}
	if gradedTotal > 0 {
		courseRow.AverageScore = round1(weightedSum / float64(gradedTotal))
	}
	rows = append(rows, courseRow)

	if err := s.progress.ReplaceSummaries(ctx, userID, courseID, moduleID, rows); err != nil {
		return err
	}

	s.invalidateSummaryCache(ctx, userID, courseID)
	return nil
}

func (s *progressService) GetCourseSummary(ctx context.Context, userID, courseID uint) (dto.CourseSummaryResponse, error) {
	cacheKey := summaryCacheKey(userID, courseID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.CourseSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("user_id", userID).Uint("course_id", courseID).Msg("summary cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read summary cache")
		}
	}

	summaries, err := s.progress.ListSummaries(ctx, userID, courseID)
	if err != nil {
		return dto.CourseSummaryResponse{}, err
	}

	response := dto.CourseSummaryResponse{
		Modules: make([]dto.SummaryResponse, 0, len(summaries)),
	}
	for _, summary := range summaries {
		row := dto.NewSummaryResponse(summary)
		if summary.ModuleID == nil {
			course := row
			response.Course = &course
			continue
		}
		response.Modules = append(response.Modules, row)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store summary cache")
			}
		}
	}

	return response, nil
}

func (s *progressService) GetFullProgress(ctx context.Context, userID, courseID uint) (dto.FullProgressResponse, error) {
	summaries, err := s.progress.ListSummaries(ctx, userID, courseID)
	if err != nil {
		return dto.FullProgressResponse{}, err
	}

	details, err := s.progress.ListByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return dto.FullProgressResponse{}, err
	}

	return dto.FullProgressResponse{
		Summary: dto.NewSummaryResponseSlice(summaries),
		Details: dto.NewProgressResponseSlice(details),
	}, nil
}

func (s *progressService) UpdateProgress(ctx context.Context, userID, courseID uint, moduleID, activityID *uint, payload dto.ProgressUpdateRequest) (dto.ProgressResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProgressResponse{}, err
	}

	stored, err := s.progress.Upsert(ctx, models.UserProgress{
		UserID:     userID,
		CourseID:   courseID,
		ModuleID:   moduleID,
		ActivityID: activityID,
		Status:     payload.Status,
		Score:      payload.Score,
	}, s.now())
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	if err := s.RefreshSummary(ctx, userID, courseID, moduleID); err != nil {
		return dto.ProgressResponse{}, err
	}

	return dto.NewProgressResponse(stored), nil
}

func (s *progressService) ListEnrollments(ctx context.Context) ([]dto.EnrollmentResponse, error) {
	rows, err := s.progress.ListEnrollments(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewEnrollmentResponseSlice(rows), nil
}

func (s *progressService) invalidateSummaryCache(ctx context.Context, userID, courseID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryCacheKey(userID, courseID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate summary cache")
	}
}

func summaryCacheKey(userID, courseID uint) string {
	return fmt.Sprintf("progress:summary:%d:%d", userID, courseID)
}

// round1 applies standard half-away-from-zero rounding to one decimal.
func round1(value float64) float64 {
	return math.Round(value*10) / 10
}
