package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aulaweb/aula-go-api/internal/dto"
	"github.com/aulaweb/aula-go-api/internal/models"
	"github.com/aulaweb/aula-go-api/internal/repository"
)

type stubSubmissionRepo struct {
	createErr error
	markErr   error
	getErr    error

	created          models.Submission
	lastFirstAttempt bool
	deleteCalls      int
	lastDeleted      uint
}

func (s *stubSubmissionRepo) ListByActivityAndUser(ctx context.Context, activityID, userID uint) ([]models.Submission, error) {
	return []models.Submission{s.created}, nil
}

func (s *stubSubmissionRepo) ListByActivity(ctx context.Context, activityID uint) ([]models.Submission, error) {
	return []models.Submission{s.created}, nil
}

func (s *stubSubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	if s.getErr != nil {
		return models.Submission{}, s.getErr
	}
	return s.created, nil
}

func (s *stubSubmissionRepo) GetFinal(ctx context.Context, activityID, userID uint) (models.Submission, error) {
	if s.getErr != nil {
		return models.Submission{}, s.getErr
	}
	return s.created, nil
}

func (s *stubSubmissionRepo) CountAttempts(ctx context.Context, activityID, userID uint) (int64, error) {
	return 0, nil
}

func (s *stubSubmissionRepo) CreateAttempt(ctx context.Context, activityID, userID uint, submittedAt time.Time, firstAttemptFinal bool) (models.Submission, error) {
	if s.createErr != nil {
		return models.Submission{}, s.createErr
	}
	s.lastFirstAttempt = firstAttemptFinal
	s.created = models.Submission{
		ID:            1,
		ActivityID:    activityID,
		UserID:        userID,
		AttemptNumber: 1,
		SubmittedAt:   submittedAt,
		IsFinal:       firstAttemptFinal,
	}
	return s.created, nil
}

func (s *stubSubmissionRepo) DeleteAttempt(ctx context.Context, submissionID uint) error {
	s.deleteCalls++
	s.lastDeleted = submissionID
	return nil
}

func (s *stubSubmissionRepo) MarkFinal(ctx context.Context, submissionID, activityID, userID uint) error {
	return s.markErr
}

func (s *stubSubmissionRepo) UpdateFeedback(ctx context.Context, submissionID uint, feedback string, gradedAt time.Time) error {
	return s.markErr
}

func (s *stubSubmissionRepo) UpdateScore(ctx context.Context, submissionID uint, score float64, gradedAt time.Time) error {
	return nil
}

func (s *stubSubmissionRepo) AttachFile(ctx context.Context, file *models.SubmissionFile) error {
	return nil
}

func newSubmissionServiceForTest(t *testing.T, repo repository.SubmissionRepository, policy SubmissionPolicy) SubmissionService {
	t.Helper()
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewSubmissionService(repo, policy, validate, nil, zerolog.Nop())
}

func TestRecordAttemptAppliesFirstAttemptFinalPolicy(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newSubmissionServiceForTest(t, repo, SubmissionPolicy{FirstAttemptFinal: true})

	response, err := svc.RecordAttempt(context.Background(), 5, 7, nil)
	require.NoError(t, err)
	require.True(t, repo.lastFirstAttempt)
	require.True(t, response.IsFinal)
	require.Equal(t, 1, response.AttemptNumber)
}

func TestRecordAttemptTranslatesLimitError(t *testing.T) {
	repo := &stubSubmissionRepo{createErr: repository.ErrAttemptLimitReached}
	svc := newSubmissionServiceForTest(t, repo, SubmissionPolicy{})

	_, err := svc.RecordAttempt(context.Background(), 5, 7, nil)
	require.ErrorIs(t, err, ErrAttemptLimitExceeded)
}

func TestRecordAttemptTranslatesMissingActivity(t *testing.T) {
	repo := &stubSubmissionRepo{createErr: gorm.ErrRecordNotFound}
	svc := newSubmissionServiceForTest(t, repo, SubmissionPolicy{})

	_, err := svc.RecordAttempt(context.Background(), 999, 7, nil)
	require.ErrorIs(t, err, ErrActivityNotFound)
}

type failingUploader struct{}

func (failingUploader) Upload(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func multipartFile(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["file"][0]
}

func TestRecordAttemptRollsBackWhenUploadFails(t *testing.T) {
	repo := &stubSubmissionRepo{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewSubmissionService(repo, SubmissionPolicy{}, validate, failingUploader{}, zerolog.Nop())

	file := multipartFile(t, "notes.txt", []byte("plain text notes"))
	_, err := svc.RecordAttempt(context.Background(), 5, 7, file)
	require.Error(t, err)
	require.Equal(t, 1, repo.deleteCalls, "a failed attachment must free the cap slot")
	require.Equal(t, repo.created.ID, repo.lastDeleted)
}

func TestRecordAttemptRollsBackUnsupportedFileType(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newSubmissionServiceForTest(t, repo, SubmissionPolicy{})

	file := multipartFile(t, "payload.bin", []byte{0x00, 0xff, 0x13, 0x37})
	_, err := svc.RecordAttempt(context.Background(), 5, 7, file)
	require.ErrorIs(t, err, ErrUnsupportedFileType)
	require.Equal(t, 1, repo.deleteCalls)
}

func TestMarkFinalValidatesPayload(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newSubmissionServiceForTest(t, repo, SubmissionPolicy{})

	_, err := svc.MarkFinal(context.Background(), 1, dto.MarkFinalRequest{})
	require.Error(t, err)
}

func TestMarkFinalTranslatesMissingSubmission(t *testing.T) {
	repo := &stubSubmissionRepo{markErr: gorm.ErrRecordNotFound}
	svc := newSubmissionServiceForTest(t, repo, SubmissionPolicy{})

	_, err := svc.MarkFinal(context.Background(), 1, dto.MarkFinalRequest{ActivityID: 5, UserID: 7})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestGetFinalTranslatesMissingSubmission(t *testing.T) {
	repo := &stubSubmissionRepo{getErr: gorm.ErrRecordNotFound}
	svc := newSubmissionServiceForTest(t, repo, SubmissionPolicy{})

	_, err := svc.GetFinal(context.Background(), 5, 7)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestUpdateFeedbackRequiresContent(t *testing.T) {
	repo := &stubSubmissionRepo{}
	svc := newSubmissionServiceForTest(t, repo, SubmissionPolicy{})

	err := svc.UpdateFeedback(context.Background(), 1, dto.FeedbackUpdateRequest{})
	require.Error(t, err)

	err = svc.UpdateFeedback(context.Background(), 1, dto.FeedbackUpdateRequest{Feedback: "well done"})
	require.NoError(t, err)
}
