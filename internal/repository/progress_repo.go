package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aulaweb/aula-go-api/internal/models"
)

// ModuleAggregate is the raw per-module rollup of one user's grades inside a
// course. Averages come back unrounded; presentation rounding happens in the
// progress service.
type ModuleAggregate struct {
	ModuleID         uint
	Average          float64
	TotalActivities  int
	GradedActivities int
}

// ProgressRepository defines data operations for progress rows and their
// derived summaries.
type ProgressRepository interface {
	ListByUserAndCourse(ctx context.Context, userID, courseID uint) ([]models.UserProgress, error)
	Upsert(ctx context.Context, progress models.UserProgress, accessedAt time.Time) (models.UserProgress, error)
	ListEnrollments(ctx context.Context) ([]models.UserProgress, error)
	ModuleAggregates(ctx context.Context, userID, courseID uint) ([]ModuleAggregate, error)
	ReplaceSummaries(ctx context.Context, userID, courseID uint, moduleID *uint, rows []models.ProgressSummary) error
	ListSummaries(ctx context.Context, userID, courseID uint) ([]models.ProgressSummary, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository instantiates the repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) ListByUserAndCourse(ctx context.Context, userID, courseID uint) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *progressRepository) Upsert(ctx context.Context, progress models.UserProgress, accessedAt time.Time) (models.UserProgress, error) {
	var stored models.UserProgress
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		stored, txErr = upsertProgress(tx, progress, accessedAt)
		return txErr
	})
	if err != nil {
		return models.UserProgress{}, err
	}

	return stored, nil
}

// upsertProgress creates or updates the progress row for the exact
// (user, course, module, activity) scope. CompletedAt is written on the first
// transition into completed and left alone afterwards.
func upsertProgress(tx *gorm.DB, progress models.UserProgress, accessedAt time.Time) (models.UserProgress, error) {
	query := tx.Model(&models.UserProgress{}).
		Where("user_id = ?", progress.UserID).
		Where("course_id = ?", progress.CourseID)
	if progress.ModuleID != nil {
		query = query.Where("module_id = ?", *progress.ModuleID)
	} else {
		query = query.Where("module_id IS NULL")
	}
	if progress.ActivityID != nil {
		query = query.Where("activity_id = ?", *progress.ActivityID)
	} else {
		query = query.Where("activity_id IS NULL")
	}

	var existing models.UserProgress
	err := query.Take(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"status":        progress.Status,
			"score":         progress.Score,
			"last_accessed": accessedAt,
		}
		if progress.Status == models.ProgressStatusCompleted && existing.CompletedAt == nil {
			updates["completed_at"] = accessedAt
		}
		if err := tx.Model(&models.UserProgress{}).
			Where("id = ?", existing.ID).
			Updates(updates).Error; err != nil {
			return models.UserProgress{}, err
		}
		if err := tx.First(&existing, existing.ID).Error; err != nil {
			return models.UserProgress{}, err
		}
		return existing, nil
	case err == gorm.ErrRecordNotFound:
		if progress.Status == "" {
			progress.Status = models.ProgressStatusNotStarted
		}
		progress.LastAccessed = accessedAt
		if progress.Status == models.ProgressStatusCompleted {
			completed := accessedAt
			progress.CompletedAt = &completed
		}
		if err := tx.Create(&progress).Error; err != nil {
			return models.UserProgress{}, err
		}
		return progress, nil
	default:
		return models.UserProgress{}, err
	}
}

// ListEnrollments returns the course-level rollup rows, which double as
// enrollment records.
func (r *progressRepository) ListEnrollments(ctx context.Context) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	if err := r.db.WithContext(ctx).
		Where("module_id IS NULL").
		Where("activity_id IS NULL").
		Order("user_id ASC, course_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

// ModuleAggregates rolls up grades per module, counting every activity in the
// module but averaging only the graded ones.
func (r *progressRepository) ModuleAggregates(ctx context.Context, userID, courseID uint) ([]ModuleAggregate, error) {
	var rows []ModuleAggregate
	err := r.db.WithContext(ctx).Raw(`
		SELECT m.id AS module_id,
		       COALESCE(AVG(ag.score), 0) AS average,
		       COUNT(a.id) AS total_activities,
		       COUNT(ag.score) AS graded_activities
		FROM modules m
		LEFT JOIN activities a ON a.module_id = m.id
		LEFT JOIN activity_grades ag ON ag.activity_id = a.id AND ag.user_id = ?
		WHERE m.course_id = ?
		GROUP BY m.id
		ORDER BY m.id`, userID, courseID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// ReplaceSummaries swaps the summary rows for the scope in one transaction.
// The progress service is the only caller; nothing else writes summaries.
func (r *progressRepository) ReplaceSummaries(ctx context.Context, userID, courseID uint, moduleID *uint, rows []models.ProgressSummary) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.
			Where("user_id = ?", userID).
			Where("course_id = ?", courseID)
		if moduleID != nil {
			query = query.Where("module_id = ? OR module_id IS NULL", *moduleID)
		}
		if err := query.Delete(&models.ProgressSummary{}).Error; err != nil {
			return err
		}

		if len(rows) == 0 {
			return nil
		}

		return tx.Create(&rows).Error
	})
}

func (r *progressRepository) ListSummaries(ctx context.Context, userID, courseID uint) ([]models.ProgressSummary, error) {
	var rows []models.ProgressSummary
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("course_id = ?", courseID).
		Order("module_id IS NULL DESC, module_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}
