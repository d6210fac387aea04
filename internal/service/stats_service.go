package service

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/aulaweb/aula-go-api/internal/dto"
	"github.com/aulaweb/aula-go-api/internal/repository"
)

// StatsService exposes the read-only reporting queries. Nothing here writes;
// all figures derive from the grade and submission ledgers.
type StatsService interface {
	AverageScoreByCourse(ctx context.Context) ([]dto.CourseScoreResponse, error)
	ActivityCompliance(ctx context.Context, courseID uint) ([]dto.ActivityComplianceResponse, error)
	GlobalAverage(ctx context.Context, userID uint) (dto.GlobalAverageResponse, error)
}

type statsService struct {
	stats  repository.StatsRepository
	logger zerolog.Logger
}

// NewStatsService constructs a StatsService instance.
func NewStatsService(statsRepo repository.StatsRepository, logger zerolog.Logger) StatsService {
	return &statsService{
		stats:  statsRepo,
		logger: logger.With().Str("component", "stats_service").Logger(),
	}
}

func (s *statsService) AverageScoreByCourse(ctx context.Context) ([]dto.CourseScoreResponse, error) {
	rows, err := s.stats.AverageScoreByCourse(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.CourseScoreResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, dto.CourseScoreResponse{
			CourseID: row.CourseID,
			Title:    row.Title,
			Average:  round2(row.Average),
		})
	}

	return responses, nil
}

func (s *statsService) ActivityCompliance(ctx context.Context, courseID uint) ([]dto.ActivityComplianceResponse, error) {
	rows, err := s.stats.ActivityCompliance(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ActivityComplianceResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, dto.ActivityComplianceResponse{
			ActivityID:  row.ActivityID,
			Title:       row.Title,
			Submissions: row.Submissions,
		})
	}

	return responses, nil
}

func (s *statsService) GlobalAverage(ctx context.Context, userID uint) (dto.GlobalAverageResponse, error) {
	average, graded, err := s.stats.GlobalAverage(ctx, userID)
	if err != nil {
		return dto.GlobalAverageResponse{}, err
	}

	return dto.GlobalAverageResponse{
		UserID:  userID,
		Average: round2(average),
		Graded:  graded,
	}, nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
