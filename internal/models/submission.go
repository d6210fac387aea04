package models

import "time"

// Submission is one recorded attempt for an activity by a user. Attempt
// numbers are dense and 1-based per (user, activity); the composite unique
// index backs the serialized check-and-insert in the submission service.
type Submission struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	ActivityID    uint             `gorm:"not null;uniqueIndex:idx_submissions_attempt" json:"activity_id"`
	UserID        uint             `gorm:"not null;uniqueIndex:idx_submissions_attempt" json:"user_id"`
	AttemptNumber int              `gorm:"not null;uniqueIndex:idx_submissions_attempt" json:"attempt_number"`
	Score         *float64         `json:"score"`
	Feedback      *string          `gorm:"type:text" json:"feedback"`
	GradedAt      *time.Time       `json:"graded_at"`
	SubmittedAt   time.Time        `gorm:"not null" json:"submitted_at"`
	IsFinal       bool             `gorm:"not null;default:false" json:"is_final"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Activity      Activity         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Files         []SubmissionFile `json:"files,omitempty"`
}

// SubmissionFile references an artifact stored in the blob store. Only the
// path string is persisted; the bytes live on the filesystem.
type SubmissionFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	Path         string    `gorm:"size:512;not null" json:"path"`
	MimeType     string    `gorm:"size:128" json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}
