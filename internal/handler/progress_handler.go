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

// ProgressHandler exposes progress rows and their derived summaries.
type ProgressHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewProgressHandler builds a progress handler instance.
func NewProgressHandler(service service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger.With().Str("component", "progress_handler").Logger(),
	}
}

// RegisterCourseRoutes attaches the progress routes nested under a course.
func (h *ProgressHandler) RegisterCourseRoutes(router fiber.Router) {
	router.Get("/:courseId/averages", h.averages)
	router.Get("/:courseId/summary", h.summary)
	router.Get("/:courseId/progress", h.fullProgress)
	router.Post("/:courseId/progress", h.updateProgress)
}

// RegisterEnrollmentRoutes attaches the enrollment listing; the caller guards
// it with the staff role middleware.
func (h *ProgressHandler) RegisterEnrollmentRoutes(router fiber.Router) {
	router.Get("", h.listEnrollments)
}

func (h *ProgressHandler) resolveTargetUser(c *fiber.Ctx) (uint, error) {
	targetUser := userIDFromContext(c)
	if isStaff(userRoleFromContext(c)) {
		queried, err := parseQueryUint(c, "user_id")
		if err != nil {
			return 0, err
		}
		if queried != nil {
			targetUser = *queried
		}
	}
	return targetUser, nil
}

func (h *ProgressHandler) averages(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID, err := h.resolveTargetUser(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	averages, err := h.service.CalculateAverages(c.UserContext(), userID, courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "averages calculated", averages)
}

func (h *ProgressHandler) summary(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID, err := h.resolveTargetUser(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.service.GetCourseSummary(c.UserContext(), userID, courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "summary retrieved", summary)
}

func (h *ProgressHandler) fullProgress(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID, err := h.resolveTargetUser(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	progress, err := h.service.GetFullProgress(c.UserContext(), userID, courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "progress retrieved", progress)
}

func (h *ProgressHandler) updateProgress(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	moduleID, err := parseQueryUint(c, "module_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	activityID, err := parseQueryUint(c, "activity_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ProgressUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.service.UpdateProgress(c.UserContext(), userID, courseID, moduleID, activityID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "progress updated", progress)
}

func (h *ProgressHandler) listEnrollments(c *fiber.Ctx) error {
	enrollments, err := h.service.ListEnrollments(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "enrollments retrieved", enrollments)
}

func (h *ProgressHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	}

	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
