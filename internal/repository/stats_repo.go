package repository

import (
	"context"

	"gorm.io/gorm"
)

// CourseScoreRow aggregates grades across all users of a course.
type CourseScoreRow struct {
	CourseID uint
	Title    string
	Average  float64
}

// ActivityComplianceRow counts recorded attempts per activity.
type ActivityComplianceRow struct {
	ActivityID  uint
	Title       string
	Submissions int
}

// StatsRepository exposes the read-only aggregate queries behind the
// statistics endpoints.
type StatsRepository interface {
	AverageScoreByCourse(ctx context.Context) ([]CourseScoreRow, error)
	ActivityCompliance(ctx context.Context, courseID uint) ([]ActivityComplianceRow, error)
	GlobalAverage(ctx context.Context, userID uint) (float64, int64, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository instantiates the repository.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) AverageScoreByCourse(ctx context.Context) ([]CourseScoreRow, error) {
	var rows []CourseScoreRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.id AS course_id,
		       c.title AS title,
		       AVG(ag.score) AS average
		FROM courses c
		JOIN modules m ON m.course_id = c.id
		JOIN activities a ON a.module_id = m.id
		JOIN activity_grades ag ON ag.activity_id = a.id
		GROUP BY c.id, c.title
		ORDER BY c.id`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *statsRepository) ActivityCompliance(ctx context.Context, courseID uint) ([]ActivityComplianceRow, error) {
	var rows []ActivityComplianceRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT a.id AS activity_id,
		       a.title AS title,
		       COUNT(s.id) AS submissions
		FROM activities a
		JOIN modules m ON m.id = a.module_id
		LEFT JOIN submissions s ON s.activity_id = a.id
		WHERE m.course_id = ?
		GROUP BY a.id, a.title
		ORDER BY a.id`, courseID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *statsRepository) GlobalAverage(ctx context.Context, userID uint) (float64, int64, error) {
	var row struct {
		Average float64
		Graded  int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(AVG(score), 0) AS average,
		       COUNT(id) AS graded
		FROM activity_grades
		WHERE user_id = ?`, userID).Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}

	return row.Average, row.Graded, nil
}
