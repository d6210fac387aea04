package models

import "time"

const (
	// ProgressStatusNotStarted marks a progress row created before any work happened.
	ProgressStatusNotStarted = "not-started"
	// ProgressStatusInProgress marks a row with recorded activity but no completion.
	ProgressStatusInProgress = "in-progress"
	// ProgressStatusCompleted marks a row completed via grading or explicit marking.
	ProgressStatusCompleted = "completed"
)

// UserProgress tracks one user's state for a course, module, or activity.
// Rows with nil ModuleID and ActivityID are course-level rollups and double
// as enrollment records. CompletedAt is set on the first transition into
// completed and never reset by later regrades.
type UserProgress struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index:idx_user_progress_scope" json:"user_id"`
	CourseID     uint       `gorm:"not null;index:idx_user_progress_scope" json:"course_id"`
	ModuleID     *uint      `gorm:"index:idx_user_progress_scope" json:"module_id"`
	ActivityID   *uint      `gorm:"index:idx_user_progress_scope" json:"activity_id"`
	Status       string     `gorm:"size:32;not null;default:not-started" json:"status"`
	Score        *float64   `json:"score"`
	LastAccessed time.Time  `json:"last_accessed"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsCompleted reports whether the row has reached the terminal status.
func (p UserProgress) IsCompleted() bool {
	return p.Status == ProgressStatusCompleted
}

// ProgressSummary is a derived aggregate, one row per (user, course) plus one
// per (user, course, module). The progress service is its only writer.
type ProgressSummary struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index:idx_progress_summary_scope" json:"user_id"`
	CourseID         uint      `gorm:"not null;index:idx_progress_summary_scope" json:"course_id"`
	ModuleID         *uint     `gorm:"index:idx_progress_summary_scope" json:"module_id"`
	AverageScore     float64   `gorm:"not null;default:0" json:"average_score"`
	TotalActivities  int       `gorm:"not null;default:0" json:"total_activities"`
	GradedActivities int       `gorm:"not null;default:0" json:"graded_activities"`
	UpdatedAt        time.Time `json:"updated_at"`
}
