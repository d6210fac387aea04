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

// GradeHandler manages the grade ledger endpoints.
type GradeHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradeHandler builds a grade handler instance.
func NewGradeHandler(service service.GradingService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// RegisterWriteRoutes attaches the grading write route behind the given role
// guard. The guard goes on the route itself so the score reads sharing the
// prefix stay open to students.
func (h *GradeHandler) RegisterWriteRoutes(router fiber.Router, guard fiber.Handler) {
	router.Put("/:activityId/grades/:userId", guard, h.grade)
}

// RegisterReadRoutes attaches the score read route.
func (h *GradeHandler) RegisterReadRoutes(router fiber.Router) {
	router.Get("/:activityId/grades/:userId", h.getScore)
}

func (h *GradeHandler) grade(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	grade, err := h.service.GradeActivity(c.UserContext(), userID, activityID, payload, gradeActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "activity graded", grade)
}

func (h *GradeHandler) getScore(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if !isStaff(userRoleFromContext(c)) && userID != userIDFromContext(c) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	score, err := h.service.GetScore(c.UserContext(), userID, activityID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "score retrieved", score)
}

func (h *GradeHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrActivityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "activity not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
