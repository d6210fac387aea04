package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aulaweb/aula-go-api/internal/models"
)

func gradeTestModels() []interface{} {
	return []interface{}{
		&models.Course{},
		&models.Module{},
		&models.Activity{},
		&models.ActivityGrade{},
		&models.UserProgress{},
	}
}

func TestGradeActivityWritesGradeAndProgressTogether(t *testing.T) {
	db := setupTestDB(t, gradeTestModels()...)
	repo := NewGradeRepository(db)
	activity := seedActivity(t, db, 1)

	grader := uint(42)
	gradedAt := time.Now()
	result, err := repo.GradeActivity(context.Background(), 7, activity.ID, 85, &grader, gradedAt)
	require.NoError(t, err)
	require.Equal(t, activity.ID, result.Chain.ActivityID)
	require.Equal(t, float64(85), result.Grade.Score)
	require.Equal(t, models.ProgressStatusCompleted, result.Progress.Status)
	require.NotNil(t, result.Progress.CompletedAt)

	var progressRows int64
	require.NoError(t, db.Model(&models.UserProgress{}).Count(&progressRows).Error)
	require.Equal(t, int64(1), progressRows)
}

func TestGradeActivityRegradeOverwritesInsteadOfDuplicating(t *testing.T) {
	db := setupTestDB(t, gradeTestModels()...)
	repo := NewGradeRepository(db)
	activity := seedActivity(t, db, 1)

	_, err := repo.GradeActivity(context.Background(), 7, activity.ID, 60, nil, time.Now())
	require.NoError(t, err)

	first, err := repo.GetByUserAndActivity(context.Background(), 7, activity.ID)
	require.NoError(t, err)
	firstCompleted := firstProgressCompletedAt(t, db)

	result, err := repo.GradeActivity(context.Background(), 7, activity.ID, 90, nil, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, float64(90), result.Grade.Score)
	require.Equal(t, first.ID, result.Grade.ID, "regrade keeps the same ledger row")

	var gradeRows int64
	require.NoError(t, db.Model(&models.ActivityGrade{}).Count(&gradeRows).Error)
	require.Equal(t, int64(1), gradeRows)

	// CompletedAt records the first completion and survives regrades.
	require.Equal(t, firstCompleted.Unix(), firstProgressCompletedAt(t, db).Unix())
}

func TestGradeActivityOrphanedChainWritesNothing(t *testing.T) {
	db := setupTestDB(t, gradeTestModels()...)
	repo := NewGradeRepository(db)

	// An activity whose module row is missing cannot be resolved to a course.
	orphan := models.Activity{ModuleID: 999, Title: "Orphan"}
	require.NoError(t, db.Create(&orphan).Error)

	_, err := repo.GradeActivity(context.Background(), 7, orphan.ID, 85, nil, time.Now())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var gradeRows, progressRows int64
	require.NoError(t, db.Model(&models.ActivityGrade{}).Count(&gradeRows).Error)
	require.NoError(t, db.Model(&models.UserProgress{}).Count(&progressRows).Error)
	require.Zero(t, gradeRows)
	require.Zero(t, progressRows)
}

func TestCourseAveragesGroupsAcrossCourses(t *testing.T) {
	db := setupTestDB(t, gradeTestModels()...)
	repo := NewGradeRepository(db)

	first := seedActivity(t, db, 1)
	second := seedActivity(t, db, 1)

	_, err := repo.GradeActivity(context.Background(), 7, first.ID, 80, nil, time.Now())
	require.NoError(t, err)
	_, err = repo.GradeActivity(context.Background(), 7, second.ID, 60, nil, time.Now())
	require.NoError(t, err)

	averages, err := repo.CourseAverages(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, averages, 2)
	require.Equal(t, float64(80), averages[0].Average)
	require.Equal(t, 1, averages[0].Graded)
}

func firstProgressCompletedAt(t *testing.T, db *gorm.DB) time.Time {
	t.Helper()
	var progress models.UserProgress
	require.NoError(t, db.First(&progress).Error)
	require.NotNil(t, progress.CompletedAt)
	return *progress.CompletedAt
}
