package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aulaweb/aula-go-api/internal/config"
	"github.com/aulaweb/aula-go-api/internal/handler"
	"github.com/aulaweb/aula-go-api/internal/models"
	"github.com/aulaweb/aula-go-api/internal/repository"
	"github.com/aulaweb/aula-go-api/internal/router"
	"github.com/aulaweb/aula-go-api/internal/service"
)

type testUploader struct{}

func (s *testUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return name, nil
}

// headerAuth stands in for the JWT middleware: identity comes from headers so
// tests can impersonate arbitrary users and roles.
func headerAuth(c *fiber.Ctx) error {
	if user := c.Get("X-Test-User"); user != "" {
		var id uint
		_, _ = fmt.Sscanf(user, "%d", &id)
		c.Locals("user_id", id)
	}
	if role := c.Get("X-Test-Role"); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

func setupLedgerApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Course{},
		&models.Module{},
		&models.Activity{},
		&models.Submission{},
		&models.SubmissionFile{},
		&models.ActivityGrade{},
		&models.UserProgress{},
		&models.ProgressSummary{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	courseRepo := repository.NewCourseRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	catalogService := service.NewCatalogService(courseRepo, activityRepo, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, service.SubmissionPolicy{FirstAttemptFinal: true}, validate, &testUploader{}, logger)
	progressService := service.NewProgressService(progressRepo, validate, nil, time.Minute, logger)
	gradingService := service.NewGradingService(gradeRepo, progressService, validate, nil, "", logger)
	statsService := service.NewStatsService(statsRepo, logger)

	app := fiber.New()
	cfg := config.Config{AppName: "Aula API Test", AppEnv: "test"}
	router.Register(app, cfg, router.Dependencies{
		CatalogHandler:    handler.NewCatalogHandler(catalogService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		GradeHandler:      handler.NewGradeHandler(gradingService, logger),
		ProgressHandler:   handler.NewProgressHandler(progressService, logger),
		StatsHandler:      handler.NewStatsHandler(statsService, logger),
		JWTMiddleware:     headerAuth,
	})

	return app, db
}

func seedLedgerActivity(t *testing.T, db *gorm.DB, maxSubmissions int) models.Activity {
	t.Helper()

	course := models.Course{Title: "Go Fundamentals"}
	require.NoError(t, db.Create(&course).Error)
	module := models.Module{CourseID: course.ID, Title: "Basics"}
	require.NoError(t, db.Create(&module).Error)
	activity := models.Activity{ModuleID: module.ID, Title: "Exercise", MaxSubmissions: maxSubmissions}
	require.NoError(t, db.Create(&activity).Error)

	return activity
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}, userID, role string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	if target != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, target))
	}
}

func TestRecordAttemptEndpointEnforcesCap(t *testing.T) {
	app, db := setupLedgerApp(t)
	activity := seedLedgerActivity(t, db, 1)

	path := fmt.Sprintf("/api/v1/activities/%d/submissions", activity.ID)

	resp := doRequest(t, app, http.MethodPost, path, nil, "7", "student")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var submission struct {
		AttemptNumber int  `json:"attempt_number"`
		IsFinal       bool `json:"is_final"`
	}
	decodeData(t, resp, &submission)
	require.Equal(t, 1, submission.AttemptNumber)
	require.True(t, submission.IsFinal)

	resp = doRequest(t, app, http.MethodPost, path, nil, "7", "student")
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRecordAttemptWithFileUpload(t *testing.T) {
	app, db := setupLedgerApp(t)
	activity := seedLedgerActivity(t, db, 1)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "solution.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("package main"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/activities/%d/submissions", activity.ID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Test-User", "7")
	req.Header.Set("X-Test-Role", "student")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var submission struct {
		Files []struct {
			FileName string `json:"file_name"`
			MimeType string `json:"mime_type"`
		} `json:"files"`
	}
	decodeData(t, resp, &submission)
	require.Len(t, submission.Files, 1)
	require.Equal(t, "solution.txt", submission.Files[0].FileName)
}

func TestMarkFinalEndpointAllowsOwner(t *testing.T) {
	app, db := setupLedgerApp(t)
	activity := seedLedgerActivity(t, db, 2)

	path := fmt.Sprintf("/api/v1/activities/%d/submissions", activity.ID)

	resp := doRequest(t, app, http.MethodPost, path, nil, "7", "student")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodPost, path, nil, "7", "student")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var second struct {
		ID      uint `json:"id"`
		IsFinal bool `json:"is_final"`
	}
	decodeData(t, resp, &second)
	require.False(t, second.IsFinal)

	finalPath := fmt.Sprintf("/api/v1/submissions/%d/final", second.ID)
	payload := map[string]uint{"activity_id": activity.ID, "user_id": 7}
	resp = doRequest(t, app, http.MethodPatch, finalPath, payload, "7", "student")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var promoted struct {
		IsFinal bool `json:"is_final"`
	}
	decodeData(t, resp, &promoted)
	require.True(t, promoted.IsFinal)
}

func TestFeedbackEndpointStaysStaffOnly(t *testing.T) {
	app, db := setupLedgerApp(t)
	activity := seedLedgerActivity(t, db, 1)

	resp := doRequest(t, app, http.MethodPost, fmt.Sprintf("/api/v1/activities/%d/submissions", activity.ID), nil, "7", "student")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var submission struct {
		ID uint `json:"id"`
	}
	decodeData(t, resp, &submission)

	path := fmt.Sprintf("/api/v1/submissions/%d/feedback", submission.ID)
	payload := map[string]string{"feedback": "rework the error handling"}

	resp = doRequest(t, app, http.MethodPatch, path, payload, "7", "student")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodPatch, path, payload, "42", "teacher")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestCatalogWritesStayStaffOnly(t *testing.T) {
	app, _ := setupLedgerApp(t)

	payload := map[string]string{"title": "Distributed Systems"}

	resp := doRequest(t, app, http.MethodPost, "/api/v1/courses", payload, "7", "student")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodPost, "/api/v1/courses", payload, "42", "teacher")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// The course list on the same prefix stays open to students.
	resp = doRequest(t, app, http.MethodGet, "/api/v1/courses", nil, "7", "student")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestGradeEndpointRequiresStaffRole(t *testing.T) {
	app, db := setupLedgerApp(t)
	activity := seedLedgerActivity(t, db, 1)

	path := fmt.Sprintf("/api/v1/activities/%d/grades/7", activity.ID)

	resp := doRequest(t, app, http.MethodPut, path, map[string]float64{"score": 85}, "7", "student")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPut, path, map[string]float64{"score": 85}, "42", "teacher")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var grade struct {
		Score    float64 `json:"score"`
		Averages struct {
			CourseAverage float64 `json:"course_average"`
		} `json:"averages"`
	}
	decodeData(t, resp, &grade)
	require.Equal(t, float64(85), grade.Score)
	require.Equal(t, float64(85), grade.Averages.CourseAverage)
}

func TestScoreEndpointUngradedAndGraded(t *testing.T) {
	app, db := setupLedgerApp(t)
	activity := seedLedgerActivity(t, db, 1)

	path := fmt.Sprintf("/api/v1/activities/%d/grades/7", activity.ID)

	resp := doRequest(t, app, http.MethodGet, path, nil, "7", "student")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var score struct {
		Graded bool     `json:"graded"`
		Score  *float64 `json:"score"`
	}
	decodeData(t, resp, &score)
	require.False(t, score.Graded)
	require.Nil(t, score.Score)

	resp = doRequest(t, app, http.MethodPut, path, map[string]float64{"score": 90}, "42", "teacher")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodGet, path, nil, "7", "student")
	decodeData(t, resp, &score)
	require.True(t, score.Graded)
	require.NotNil(t, score.Score)
	require.Equal(t, float64(90), *score.Score)
}

func TestScoreEndpointStudentsCannotReadOthers(t *testing.T) {
	app, db := setupLedgerApp(t)
	activity := seedLedgerActivity(t, db, 1)

	path := fmt.Sprintf("/api/v1/activities/%d/grades/7", activity.ID)
	resp := doRequest(t, app, http.MethodGet, path, nil, "8", "student")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestCourseSummaryReflectsGrades(t *testing.T) {
	app, db := setupLedgerApp(t)
	activity := seedLedgerActivity(t, db, 1)

	var module models.Module
	require.NoError(t, db.First(&module, activity.ModuleID).Error)

	gradePath := fmt.Sprintf("/api/v1/activities/%d/grades/7", activity.ID)
	resp := doRequest(t, app, http.MethodPut, gradePath, map[string]float64{"score": 85}, "42", "teacher")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	summaryPath := fmt.Sprintf("/api/v1/courses/%d/summary", module.CourseID)
	resp = doRequest(t, app, http.MethodGet, summaryPath, nil, "7", "student")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary struct {
		Course *struct {
			AverageScore     float64 `json:"average_score"`
			GradedActivities int     `json:"graded_activities"`
		} `json:"course"`
		Modules []struct {
			AverageScore float64 `json:"average_score"`
		} `json:"modules"`
	}
	decodeData(t, resp, &summary)
	require.NotNil(t, summary.Course)
	require.Equal(t, float64(85), summary.Course.AverageScore)
	require.Equal(t, 1, summary.Course.GradedActivities)
	require.Len(t, summary.Modules, 1)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupLedgerApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/v1/health", nil, "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
