package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/aulaweb/aula-go-api/internal/dto"
	"github.com/aulaweb/aula-go-api/internal/observability"
	"github.com/aulaweb/aula-go-api/internal/repository"
)

// GradeActor identifies who performed a grading action.
type GradeActor struct {
	ID   uint
	Role string
}

// GradingService encapsulates the grade ledger: writing scores and keeping
// the progress rows and summaries consistent with them.
type GradingService interface {
	GradeActivity(ctx context.Context, userID, activityID uint, payload dto.GradeRequest, actor GradeActor) (dto.GradeResponse, error)
	GetScore(ctx context.Context, userID, activityID uint) (dto.ScoreResponse, error)
}

type gradingService struct {
	grades      repository.GradeRepository
	progress    ProgressService
	validator   *validator.Validate
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	now         func() time.Time
}

type gradeEvent struct {
	UserID     uint      `json:"user_id"`
	ActivityID uint      `json:"activity_id"`
	CourseID   uint      `json:"course_id"`
	ModuleID   uint      `json:"module_id"`
	Score      float64   `json:"score"`
	GradedBy   uint      `json:"graded_by"`
	GradedAt   time.Time `json:"graded_at"`
}

// NewGradingService constructs the grading service. The NATS connection is
// optional; without it grade events are simply not published.
func NewGradingService(gradeRepo repository.GradeRepository, progress ProgressService, validate *validator.Validate, natsConn *nats.Conn, natsSubject string, logger zerolog.Logger) GradingService {
	return &gradingService{
		grades:      gradeRepo,
		progress:    progress,
		validator:   validate,
		nats:        natsConn,
		natsSubject: natsSubject,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

// GradeActivity upserts the grade and its progress counterpart atomically,
// then refreshes the derived summaries. Either both ledger writes land or
// neither does.
func (s *gradingService) GradeActivity(ctx context.Context, userID, activityID uint, payload dto.GradeRequest, actor GradeActor) (dto.GradeResponse, error) {
	tracer := otel.Tracer("github.com/aulaweb/aula-go-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.write")
	span.SetAttributes(
		attribute.Int64("grading.user_id", int64(userID)),
		attribute.Int64("grading.activity_id", int64(activityID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradeResponse{}, err
	}

	gradedBy := actor.ID
	result, err := s.grades.GradeActivity(ctx, userID, activityID, payload.Score, &gradedBy, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "activity_not_found")
			return dto.GradeResponse{}, ErrActivityNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_write_failed")
		return dto.GradeResponse{}, err
	}

	if err := s.progress.RefreshSummary(ctx, userID, result.Chain.CourseID, &result.Chain.ModuleID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "summary_refresh_failed")
		return dto.GradeResponse{}, err
	}

	averages, err := s.progress.CalculateAverages(ctx, userID, result.Chain.CourseID)
	if err != nil {
		span.RecordError(err)
		return dto.GradeResponse{}, err
	}

	s.publish(ctx, gradeEvent{
		UserID:     userID,
		ActivityID: activityID,
		CourseID:   result.Chain.CourseID,
		ModuleID:   result.Chain.ModuleID,
		Score:      payload.Score,
		GradedBy:   actor.ID,
		GradedAt:   result.Grade.GradedAt,
	})

	observability.GradeWrites().WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Float64("grading.score", payload.Score))

	s.logger.Info().
		Uint("user_id", userID).
		Uint("activity_id", activityID).
		Float64("score", payload.Score).
		Uint("graded_by", actor.ID).
		Msg("activity graded")

	return dto.GradeResponse{
		UserID:     userID,
		ActivityID: activityID,
		Score:      result.Grade.Score,
		GradedAt:   result.Grade.GradedAt,
		Averages:   averages,
	}, nil
}

func (s *gradingService) GetScore(ctx context.Context, userID, activityID uint) (dto.ScoreResponse, error) {
	grade, err := s.grades.GetByUserAndActivity(ctx, userID, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Ungraded is a normal answer, not an error.
			return dto.NewScoreResponse(userID, activityID, nil), nil
		}
		return dto.ScoreResponse{}, err
	}

	return dto.NewScoreResponse(userID, activityID, &grade), nil
}

func (s *gradingService) publish(ctx context.Context, event gradeEvent) {
	if s.nats == nil || s.natsSubject == "" {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode grade event")
		return
	}

	if err := s.nats.Publish(s.natsSubject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish grade event")
	}
}
