package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aulaweb/aula-go-api/internal/models"
)

func statsTestModels() []interface{} {
	return []interface{}{
		&models.Course{},
		&models.Module{},
		&models.Activity{},
		&models.Submission{},
		&models.ActivityGrade{},
		&models.UserProgress{},
	}
}

func TestAverageScoreByCourseSpansUsers(t *testing.T) {
	db := setupTestDB(t, statsTestModels()...)
	repo := NewStatsRepository(db)
	gradeRepo := NewGradeRepository(db)
	activity := seedActivity(t, db, 1)

	_, err := gradeRepo.GradeActivity(context.Background(), 7, activity.ID, 80, nil, time.Now())
	require.NoError(t, err)
	_, err = gradeRepo.GradeActivity(context.Background(), 8, activity.ID, 60, nil, time.Now())
	require.NoError(t, err)

	rows, err := repo.AverageScoreByCourse(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.InDelta(t, 70.0, rows[0].Average, 0.001)
}

func TestActivityComplianceCountsAttempts(t *testing.T) {
	db := setupTestDB(t, statsTestModels()...)
	repo := NewStatsRepository(db)
	subRepo := NewSubmissionRepository(db)
	activity := seedActivity(t, db, 5)

	chain, err := NewActivityRepository(db).ResolveChain(context.Background(), activity.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := subRepo.CreateAttempt(context.Background(), activity.ID, 7, time.Now(), false)
		require.NoError(t, err)
	}
	_, err = subRepo.CreateAttempt(context.Background(), activity.ID, 8, time.Now(), false)
	require.NoError(t, err)

	rows, err := repo.ActivityCompliance(context.Background(), chain.CourseID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 3, rows[0].Submissions)
}

func TestGlobalAverageUngraded(t *testing.T) {
	db := setupTestDB(t, statsTestModels()...)
	repo := NewStatsRepository(db)

	average, graded, err := repo.GlobalAverage(context.Background(), 7)
	require.NoError(t, err)
	require.Zero(t, average)
	require.Zero(t, graded)
}
