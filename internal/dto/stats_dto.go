package dto

// CourseScoreResponse aggregates grades for a course across all users.
type CourseScoreResponse struct {
	CourseID uint    `json:"course_id"`
	Title    string  `json:"title"`
	Average  float64 `json:"average"`
}

// ActivityComplianceResponse counts attempts recorded per activity.
type ActivityComplianceResponse struct {
	ActivityID  uint   `json:"activity_id"`
	Title       string `json:"title"`
	Submissions int    `json:"submissions"`
}

// GlobalAverageResponse reports a user's mean score across every graded
// activity, regardless of course.
type GlobalAverageResponse struct {
	UserID  uint    `json:"user_id"`
	Average float64 `json:"average"`
	Graded  int64   `json:"graded"`
}
