package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aulaweb/aula-go-api/internal/models"
)

// ErrAttemptLimitReached signals the attempt cap for (user, activity) is hit.
var ErrAttemptLimitReached = errors.New("attempt limit reached")

// SubmissionRepository defines data operations for submission attempts.
type SubmissionRepository interface {
	ListByActivityAndUser(ctx context.Context, activityID, userID uint) ([]models.Submission, error)
	ListByActivity(ctx context.Context, activityID uint) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetFinal(ctx context.Context, activityID, userID uint) (models.Submission, error)
	CountAttempts(ctx context.Context, activityID, userID uint) (int64, error)
	CreateAttempt(ctx context.Context, activityID, userID uint, submittedAt time.Time, firstAttemptFinal bool) (models.Submission, error)
	DeleteAttempt(ctx context.Context, submissionID uint) error
	MarkFinal(ctx context.Context, submissionID, activityID, userID uint) error
	UpdateFeedback(ctx context.Context, submissionID uint, feedback string, gradedAt time.Time) error
	UpdateScore(ctx context.Context, submissionID uint, score float64, gradedAt time.Time) error
	AttachFile(ctx context.Context, file *models.SubmissionFile) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) ListByActivityAndUser(ctx context.Context, activityID, userID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Files").
		Where("activity_id = ?", activityID).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListByActivity(ctx context.Context, activityID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Files").
		Where("activity_id = ?", activityID).
		Order("submitted_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).Preload("Files").First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetFinal(ctx context.Context, activityID, userID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Files").
		Where("activity_id = ?", activityID).
		Where("user_id = ?", userID).
		Where("is_final = ?", true).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) CountAttempts(ctx context.Context, activityID, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("activity_id = ?", activityID).
		Where("user_id = ?", userID).
		Count(&count).Error

	return count, err
}

// CreateAttempt serializes the check-then-insert on a row lock of the parent
// activity, so two concurrent attempts for the same pair cannot both pass the
// cap check. The composite unique index on (activity_id, user_id,
// attempt_number) backs this up; a duplicate-key error triggers one retry.
func (r *submissionRepository) CreateAttempt(ctx context.Context, activityID, userID uint, submittedAt time.Time, firstAttemptFinal bool) (models.Submission, error) {
	submission, err := r.createAttempt(ctx, activityID, userID, submittedAt, firstAttemptFinal)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		submission, err = r.createAttempt(ctx, activityID, userID, submittedAt, firstAttemptFinal)
	}

	return submission, err
}

func (r *submissionRepository) createAttempt(ctx context.Context, activityID, userID uint, submittedAt time.Time, firstAttemptFinal bool) (models.Submission, error) {
	var submission models.Submission

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// sqlite has no row locks; there the unique index alone enforces the cap.
		locked := tx
		if tx.Dialector.Name() == "postgres" {
			locked = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var activity models.Activity
		if err := locked.First(&activity, activityID).Error; err != nil {
			return err
		}

		var attempts int64
		if err := tx.Model(&models.Submission{}).
			Where("activity_id = ?", activityID).
			Where("user_id = ?", userID).
			Count(&attempts).Error; err != nil {
			return err
		}

		if attempts >= int64(activity.AttemptLimit()) {
			return ErrAttemptLimitReached
		}

		var finals int64
		if err := tx.Model(&models.Submission{}).
			Where("activity_id = ?", activityID).
			Where("user_id = ?", userID).
			Where("is_final = ?", true).
			Count(&finals).Error; err != nil {
			return err
		}

		submission = models.Submission{
			ActivityID:    activityID,
			UserID:        userID,
			AttemptNumber: int(attempts) + 1,
			SubmittedAt:   submittedAt,
			IsFinal:       firstAttemptFinal && finals == 0,
		}

		return tx.Create(&submission).Error
	})
	if err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// DeleteAttempt removes an attempt and its file records, freeing the cap slot
// the attempt consumed.
func (r *submissionRepository) DeleteAttempt(ctx context.Context, submissionID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", submissionID).
			Delete(&models.SubmissionFile{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Submission{}, submissionID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}

// MarkFinal demotes every attempt of the pair and promotes the target in one
// transaction, keeping the single-final invariant observable at all times.
func (r *submissionRepository) MarkFinal(ctx context.Context, submissionID, activityID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission models.Submission
		if err := tx.
			Where("id = ?", submissionID).
			Where("activity_id = ?", activityID).
			Where("user_id = ?", userID).
			First(&submission).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Submission{}).
			Where("activity_id = ?", activityID).
			Where("user_id = ?", userID).
			Update("is_final", false).Error; err != nil {
			return err
		}

		return tx.Model(&models.Submission{}).
			Where("id = ?", submissionID).
			Update("is_final", true).Error
	})
}

func (r *submissionRepository) UpdateFeedback(ctx context.Context, submissionID uint, feedback string, gradedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ?", submissionID).
		Updates(map[string]interface{}{"feedback": feedback, "graded_at": gradedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *submissionRepository) UpdateScore(ctx context.Context, submissionID uint, score float64, gradedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ?", submissionID).
		Updates(map[string]interface{}{"score": score, "graded_at": gradedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *submissionRepository) AttachFile(ctx context.Context, file *models.SubmissionFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}
