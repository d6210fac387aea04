package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/aulaweb/aula-go-api/internal/service"
	"github.com/aulaweb/aula-go-api/internal/utils"
)

// StatsHandler exposes the reporting endpoints.
type StatsHandler struct {
	service service.StatsService
	logger  zerolog.Logger
}

// NewStatsHandler builds a stats handler instance.
func NewStatsHandler(service service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register attaches the reporting routes; the caller guards them with the
// staff role middleware.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/courses", h.averageByCourse)
	router.Get("/courses/:courseId/compliance", h.activityCompliance)
	router.Get("/users/:userId/average", h.globalAverage)
}

func (h *StatsHandler) averageByCourse(c *fiber.Ctx) error {
	scores, err := h.service.AverageScoreByCourse(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course averages retrieved", scores)
}

func (h *StatsHandler) activityCompliance(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	compliance, err := h.service.ActivityCompliance(c.UserContext(), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "activity compliance retrieved", compliance)
}

func (h *StatsHandler) globalAverage(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	average, err := h.service.GlobalAverage(c.UserContext(), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "global average retrieved", average)
}

func (h *StatsHandler) handleError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
