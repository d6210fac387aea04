package models

import "time"

// ActivityGrade is the authoritative score for a (user, activity) pair.
// Grading the same pair twice overwrites score and timestamp, never
// duplicates; the unique index carries the upsert.
type ActivityGrade struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_activity_grades_user_activity" json:"user_id"`
	ActivityID uint      `gorm:"not null;uniqueIndex:idx_activity_grades_user_activity" json:"activity_id"`
	Score      float64   `gorm:"not null" json:"score"`
	GradedAt   time.Time `gorm:"not null" json:"graded_at"`
	GradedBy   *uint     `json:"graded_by"`
}
