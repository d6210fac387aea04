package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/aulaweb/aula-go-api/internal/dto"
	"github.com/aulaweb/aula-go-api/internal/models"
	"github.com/aulaweb/aula-go-api/internal/observability"
	"github.com/aulaweb/aula-go-api/internal/repository"
)

// ErrSubmissionNotFound indicates a submission could not be found for the
// requested (user, activity) pair.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAttemptLimitExceeded indicates the user has exhausted the activity's
// attempt cap. Client-correctable; never retried.
var ErrAttemptLimitExceeded = errors.New("maximum number of submissions reached")

// ErrUnsupportedFileType indicates the submitted artifact is not on the
// accepted content type list.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// SubmissionService orchestrates the attempt ledger: recording attempts,
// promoting finals, and attaching submitted artifacts.
type SubmissionService interface {
	RecordAttempt(ctx context.Context, activityID, userID uint, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	MarkFinal(ctx context.Context, submissionID uint, payload dto.MarkFinalRequest) (dto.SubmissionResponse, error)
	ListAttempts(ctx context.Context, activityID, userID uint) ([]dto.SubmissionResponse, error)
	ListByActivity(ctx context.Context, activityID uint) ([]dto.SubmissionResponse, error)
	GetFinal(ctx context.Context, activityID, userID uint) (dto.SubmissionResponse, error)
	UpdateFeedback(ctx context.Context, submissionID uint, payload dto.FeedbackUpdateRequest) error
}

// SubmissionPolicy captures product decisions around the attempt ledger.
// FirstAttemptFinal preserves the historic behavior where a user's first
// attempt is automatically the one that counts.
type SubmissionPolicy struct {
	FirstAttemptFinal bool
}

type submissionService struct {
	submissions repository.SubmissionRepository
	policy      SubmissionPolicy
	validator   *validator.Validate
	storage     FileStorage
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.SubmissionRepository, policy SubmissionPolicy, validate *validator.Validate, storage FileStorage, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		policy:      policy,
		validator:   validate,
		storage:     storage,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) RecordAttempt(ctx context.Context, activityID, userID uint, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.CreateAttempt(ctx, activityID, userID, s.now(), s.policy.FirstAttemptFinal)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAttemptLimitReached):
			observability.SubmissionAttempts().WithLabelValues("rejected").Inc()
			return dto.SubmissionResponse{}, ErrAttemptLimitExceeded
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.SubmissionResponse{}, ErrActivityNotFound
		default:
			return dto.SubmissionResponse{}, err
		}
	}

	if file != nil {
		if err := s.attachFile(ctx, &submission, file); err != nil {
			// The attempt must not consume a cap slot when its artifact was
			// never stored, so the row is rolled back.
			if delErr := s.submissions.DeleteAttempt(ctx, submission.ID); delErr != nil {
				s.logger.Error().Err(delErr).
					Uint("submission_id", submission.ID).
					Msg("failed to roll back attempt after attachment failure")
			}
			observability.SubmissionAttempts().WithLabelValues("failed").Inc()
			s.logger.Warn().Err(err).
				Uint("activity_id", activityID).
				Uint("user_id", userID).
				Msg("attempt rolled back, attachment failed")
			return dto.SubmissionResponse{}, err
		}
	}

	observability.SubmissionAttempts().WithLabelValues("accepted").Inc()
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("activity_id", activityID).
		Uint("user_id", userID).
		Int("attempt", submission.AttemptNumber).
		Bool("is_final", submission.IsFinal).
		Msg("attempt recorded")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) attachFile(ctx context.Context, submission *models.Submission, file *multipart.FileHeader) error {
	mime, err := detectFileType(file)
	if err != nil {
		return err
	}

	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	storedName := fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(file.Filename)))
	path, err := s.storage.Upload(ctx, storedName, reader)
	if err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}

	record := models.SubmissionFile{
		SubmissionID: submission.ID,
		FileName:     file.Filename,
		Path:         path,
		MimeType:     mime,
		SizeBytes:    file.Size,
	}
	if err := s.submissions.AttachFile(ctx, &record); err != nil {
		return err
	}

	submission.Files = append(submission.Files, record)
	return nil
}

func (s *submissionService) MarkFinal(ctx context.Context, submissionID uint, payload dto.MarkFinalRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.submissions.MarkFinal(ctx, submissionID, payload.ActivityID, payload.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	updated, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submissionID).Msg("submission marked final")

	return dto.NewSubmissionResponse(updated), nil
}

func (s *submissionService) ListAttempts(ctx context.Context, activityID, userID uint) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.ListByActivityAndUser(ctx, activityID, userID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) ListByActivity(ctx context.Context, activityID uint) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) GetFinal(ctx context.Context, activityID, userID uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetFinal(ctx, activityID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) UpdateFeedback(ctx context.Context, submissionID uint, payload dto.FeedbackUpdateRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	if err := s.submissions.UpdateFeedback(ctx, submissionID, payload.Feedback, s.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	return nil
}

func detectFileType(file *multipart.FileHeader) (string, error) {
	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "application/zip", "application/x-zip-compressed", "text/plain"}
	for _, a := range allowed {
		if mime.Is(a) {
			return mime.String(), nil
		}
	}
	if strings.HasPrefix(mime.String(), "image/") {
		return mime.String(), nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, mime.String())
}
