package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aulaweb/aula-go-api/internal/models"
)

// GradeResult carries everything written by a grade transaction.
type GradeResult struct {
	Chain    ActivityChain
	Grade    models.ActivityGrade
	Progress models.UserProgress
}

// CourseAverage is a per-course aggregate of one user's grades.
type CourseAverage struct {
	CourseID uint
	Average  float64
	Graded   int
}

// GradeRepository defines data operations for the grade ledger.
type GradeRepository interface {
	GradeActivity(ctx context.Context, userID, activityID uint, score float64, gradedBy *uint, gradedAt time.Time) (GradeResult, error)
	GetByUserAndActivity(ctx context.Context, userID, activityID uint) (models.ActivityGrade, error)
	CourseAverages(ctx context.Context, userID uint) ([]CourseAverage, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository instantiates the repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

// GradeActivity writes the grade row and its progress counterpart in one
// transaction. A broken activity -> module -> course chain aborts before any
// write, so a failed grade leaves no partial state behind.
func (r *gradeRepository) GradeActivity(ctx context.Context, userID, activityID uint, score float64, gradedBy *uint, gradedAt time.Time) (GradeResult, error) {
	var result GradeResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chain, err := resolveChain(tx, activityID)
		if err != nil {
			return err
		}
		result.Chain = chain

		grade := models.ActivityGrade{
			UserID:     userID,
			ActivityID: activityID,
			Score:      score,
			GradedAt:   gradedAt,
			GradedBy:   gradedBy,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "activity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "graded_at", "graded_by"}),
		}).Create(&grade).Error; err != nil {
			return err
		}

		if err := tx.
			Where("user_id = ?", userID).
			Where("activity_id = ?", activityID).
			Take(&result.Grade).Error; err != nil {
			return err
		}

		progress, err := upsertProgress(tx, models.UserProgress{
			UserID:     userID,
			CourseID:   chain.CourseID,
			ModuleID:   &chain.ModuleID,
			ActivityID: &chain.ActivityID,
			Status:     models.ProgressStatusCompleted,
			Score:      &score,
		}, gradedAt)
		if err != nil {
			return err
		}
		result.Progress = progress

		return nil
	})
	if err != nil {
		return GradeResult{}, err
	}

	return result, nil
}

func (r *gradeRepository) GetByUserAndActivity(ctx context.Context, userID, activityID uint) (models.ActivityGrade, error) {
	var grade models.ActivityGrade
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("activity_id = ?", activityID).
		Take(&grade).Error; err != nil {
		return models.ActivityGrade{}, err
	}

	return grade, nil
}

func (r *gradeRepository) CourseAverages(ctx context.Context, userID uint) ([]CourseAverage, error) {
	var rows []CourseAverage
	err := r.db.WithContext(ctx).Raw(`
		SELECT m.course_id AS course_id,
		       AVG(ag.score) AS average,
		       COUNT(ag.id) AS graded
		FROM activity_grades ag
		JOIN activities a ON a.id = ag.activity_id
		JOIN modules m ON m.id = a.module_id
		WHERE ag.user_id = ?
		GROUP BY m.course_id
		ORDER BY m.course_id`, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}
