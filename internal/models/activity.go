package models

import "time"

// Activity is an assignable unit of work inside a module. MaxSubmissions
// caps the number of attempts a user may record; lowering it later does not
// invalidate attempts that already exist.
type Activity struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ModuleID       uint       `gorm:"not null;index" json:"module_id"`
	Title          string     `gorm:"size:255;not null" json:"title"`
	Content        string     `gorm:"type:text" json:"content"`
	Deadline       *time.Time `json:"deadline"`
	MaxSubmissions int        `gorm:"not null;default:1" json:"max_submissions"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Module         Module     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// AttemptLimit returns the effective attempt cap, defaulting to one.
func (a Activity) AttemptLimit() int {
	if a.MaxSubmissions <= 0 {
		return 1
	}
	return a.MaxSubmissions
}
