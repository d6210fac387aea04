package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/aulaweb/aula-go-api/internal/dto"
	"github.com/aulaweb/aula-go-api/internal/service"
	"github.com/aulaweb/aula-go-api/internal/utils"
)

// SubmissionHandler manages the attempt ledger endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// RegisterActivityRoutes attaches the attempt routes nested under an activity.
// The rate limiter is applied to attempt creation only, so reads are never
// throttled.
func (h *SubmissionHandler) RegisterActivityRoutes(router fiber.Router, limit fiber.Handler) {
	router.Post("/:activityId/submissions", limit, h.create)
	router.Get("/:activityId/submissions", h.list)
	router.Get("/:activityId/submissions/final", h.getFinal)
}

// RegisterSubmissionRoutes attaches the routes addressed by submission id.
func (h *SubmissionHandler) RegisterSubmissionRoutes(router fiber.Router) {
	router.Patch("/:id/final", h.markFinal)
}

// RegisterModerationRoutes attaches the grader-only routes behind the given
// role guard.
func (h *SubmissionHandler) RegisterModerationRoutes(router fiber.Router, guard fiber.Handler) {
	router.Patch("/:id/feedback", guard, h.updateFeedback)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	// The artifact is optional; an attempt without a file is still an attempt.
	file, err := c.FormFile("file")
	if err != nil {
		file = nil
	}

	submission, err := h.service.RecordAttempt(c.UserContext(), activityID, userID, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt recorded", submission)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	// Staff may inspect any user's attempts; students only their own.
	targetUser := userIDFromContext(c)
	if isStaff(userRoleFromContext(c)) {
		if queried, err := parseQueryUint(c, "user_id"); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		} else if queried != nil {
			targetUser = *queried
		} else {
			submissions, err := h.service.ListByActivity(c.UserContext(), activityID)
			if err != nil {
				return h.handleError(c, err)
			}
			return utils.SendSuccess(c, "submissions retrieved", submissions)
		}
	}

	submissions, err := h.service.ListAttempts(c.UserContext(), activityID, targetUser)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) getFinal(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	targetUser := userIDFromContext(c)
	if isStaff(userRoleFromContext(c)) {
		if queried, err := parseQueryUint(c, "user_id"); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		} else if queried != nil {
			targetUser = *queried
		}
	}

	submission, err := h.service.GetFinal(c.UserContext(), activityID, targetUser)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "final submission retrieved", submission)
}

func (h *SubmissionHandler) markFinal(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MarkFinalRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if !isStaff(userRoleFromContext(c)) && payload.UserID != userIDFromContext(c) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	submission, err := h.service.MarkFinal(c.UserContext(), submissionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission marked final", submission)
}

func (h *SubmissionHandler) updateFeedback(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.FeedbackUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.UpdateFeedback(c.UserContext(), submissionID, payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "feedback updated", nil)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrActivityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "activity not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrAttemptLimitExceeded):
		return utils.SendError(c, fiber.StatusConflict, "maximum number of submissions reached")
	case errors.Is(err, service.ErrUnsupportedFileType):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
