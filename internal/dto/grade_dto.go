package dto

import (
	"time"

	"github.com/aulaweb/aula-go-api/internal/models"
)

// GradeRequest carries the score a teacher assigns to a user's activity.
type GradeRequest struct {
	Score float64 `json:"score" validate:"gte=0,lte=100"`
}

// GradeResponse is returned after a grade write, with the refreshed averages
// so graders see the effect immediately.
type GradeResponse struct {
	UserID     uint                   `json:"user_id"`
	ActivityID uint                   `json:"activity_id"`
	Score      float64                `json:"score"`
	GradedAt   time.Time              `json:"graded_at"`
	Averages   CourseAveragesResponse `json:"averages"`
}

// ScoreResponse reports a user's score for an activity. Graded is false and
// Score nil for the ungraded case; that is not an error.
type ScoreResponse struct {
	UserID     uint       `json:"user_id"`
	ActivityID uint       `json:"activity_id"`
	Score      *float64   `json:"score"`
	Graded     bool       `json:"graded"`
	GradedAt   *time.Time `json:"graded_at"`
}

// NewScoreResponse converts a grade model into the score DTO.
func NewScoreResponse(userID, activityID uint, grade *models.ActivityGrade) ScoreResponse {
	response := ScoreResponse{
		UserID:     userID,
		ActivityID: activityID,
	}
	if grade != nil {
		score := grade.Score
		gradedAt := grade.GradedAt
		response.Score = &score
		response.Graded = true
		response.GradedAt = &gradedAt
	}

	return response
}
