package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aulaweb/aula-go-api/internal/models"
)

// ActivityPatch enumerates the optional fields of an activity update. Nil
// fields are left untouched.
type ActivityPatch struct {
	Title          *string
	Content        *string
	Deadline       *time.Time
	ClearDeadline  bool
	MaxSubmissions *int
}

// ActivityChain is the resolved activity -> module -> course ownership chain.
type ActivityChain struct {
	ActivityID uint
	ModuleID   uint
	CourseID   uint
}

// ActivityRepository defines data operations for activities.
type ActivityRepository interface {
	ListByModule(ctx context.Context, moduleID uint) ([]models.Activity, error)
	GetByID(ctx context.Context, id uint) (models.Activity, error)
	ResolveChain(ctx context.Context, activityID uint) (ActivityChain, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, id uint, patch ActivityPatch) (models.Activity, error)
	Delete(ctx context.Context, id uint) error
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository instantiates the repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) ListByModule(ctx context.Context, moduleID uint) ([]models.Activity, error) {
	var activities []models.Activity
	if err := r.db.WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order("created_at ASC").
		Find(&activities).Error; err != nil {
		return nil, err
	}

	return activities, nil
}

func (r *activityRepository) GetByID(ctx context.Context, id uint) (models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		return models.Activity{}, err
	}

	return activity, nil
}

// ResolveChain joins through modules so a dangling module reference surfaces
// as gorm.ErrRecordNotFound instead of a grade against an orphaned activity.
func (r *activityRepository) ResolveChain(ctx context.Context, activityID uint) (ActivityChain, error) {
	return resolveChain(r.db.WithContext(ctx), activityID)
}

func resolveChain(tx *gorm.DB, activityID uint) (ActivityChain, error) {
	var chain ActivityChain
	err := tx.Table("activities").
		Select("activities.id AS activity_id, activities.module_id AS module_id, modules.course_id AS course_id").
		Joins("JOIN modules ON modules.id = activities.module_id").
		Where("activities.id = ?", activityID).
		Take(&chain).Error
	if err != nil {
		return ActivityChain{}, err
	}

	return chain, nil
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *activityRepository) Update(ctx context.Context, id uint, patch ActivityPatch) (models.Activity, error) {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.ClearDeadline {
		updates["deadline"] = nil
	} else if patch.Deadline != nil {
		updates["deadline"] = *patch.Deadline
	}
	if patch.MaxSubmissions != nil {
		updates["max_submissions"] = *patch.MaxSubmissions
	}

	if len(updates) > 0 {
		result := r.db.WithContext(ctx).Model(&models.Activity{}).
			Where("id = ?", id).
			Updates(updates)
		if result.Error != nil {
			return models.Activity{}, result.Error
		}
		if result.RowsAffected == 0 {
			return models.Activity{}, gorm.ErrRecordNotFound
		}
	}

	return r.GetByID(ctx, id)
}

func (r *activityRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Activity{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
