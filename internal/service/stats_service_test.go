package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aulaweb/aula-go-api/internal/repository"
)

type stubStatsRepo struct {
	courseRows     []repository.CourseScoreRow
	complianceRows []repository.ActivityComplianceRow
	average        float64
	graded         int64
}

func (s *stubStatsRepo) AverageScoreByCourse(ctx context.Context) ([]repository.CourseScoreRow, error) {
	return s.courseRows, nil
}

func (s *stubStatsRepo) ActivityCompliance(ctx context.Context, courseID uint) ([]repository.ActivityComplianceRow, error) {
	return s.complianceRows, nil
}

func (s *stubStatsRepo) GlobalAverage(ctx context.Context, userID uint) (float64, int64, error) {
	return s.average, s.graded, nil
}

func TestAverageScoreByCourseRoundsToTwoDecimals(t *testing.T) {
	repo := &stubStatsRepo{courseRows: []repository.CourseScoreRow{
		{CourseID: 1, Title: "Go", Average: 83.3333},
	}}
	svc := NewStatsService(repo, zerolog.Nop())

	rows, err := svc.AverageScoreByCourse(context.Background())
	require.NoError(t, err)
	require.Equal(t, 83.33, rows[0].Average)
}

func TestGlobalAverageRounds(t *testing.T) {
	repo := &stubStatsRepo{average: 66.666, graded: 3}
	svc := NewStatsService(repo, zerolog.Nop())

	response, err := svc.GlobalAverage(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 66.67, response.Average)
	require.Equal(t, int64(3), response.Graded)
	require.Equal(t, uint(7), response.UserID)
}
