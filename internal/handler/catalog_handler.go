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

// CatalogHandler manages the course, module and activity endpoints.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler builds a catalog handler instance.
func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// RegisterCourseRoutes attaches the course read routes.
func (h *CatalogHandler) RegisterCourseRoutes(router fiber.Router) {
	router.Get("", h.listCourses)
	router.Get("/:courseId", h.getCourse)
	router.Get("/:courseId/modules", h.listModules)
}

// RegisterCourseWriteRoutes attaches the course write routes behind the given
// role guard. The guard goes on each route, not on the group, so it cannot
// leak onto read routes sharing the prefix.
func (h *CatalogHandler) RegisterCourseWriteRoutes(router fiber.Router, guard fiber.Handler) {
	router.Post("", guard, h.createCourse)
	router.Post("/:courseId/modules", guard, h.createModule)
}

// RegisterModuleRoutes attaches the activity routes nested under a module.
func (h *CatalogHandler) RegisterModuleRoutes(router fiber.Router) {
	router.Get("/:moduleId/activities", h.listActivities)
}

// RegisterModuleWriteRoutes attaches the activity creation route behind the
// given role guard.
func (h *CatalogHandler) RegisterModuleWriteRoutes(router fiber.Router, guard fiber.Handler) {
	router.Post("/:moduleId/activities", guard, h.createActivity)
}

// RegisterActivityRoutes attaches the activity read route.
func (h *CatalogHandler) RegisterActivityRoutes(router fiber.Router) {
	router.Get("/:activityId", h.getActivity)
}

// RegisterActivityWriteRoutes attaches the activity mutation routes behind the
// given role guard.
func (h *CatalogHandler) RegisterActivityWriteRoutes(router fiber.Router, guard fiber.Handler) {
	router.Patch("/:activityId", guard, h.updateActivity)
	router.Delete("/:activityId", guard, h.deleteActivity)
}

func (h *CatalogHandler) listCourses(c *fiber.Ctx) error {
	courses, err := h.service.ListCourses(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "courses retrieved", courses)
}

func (h *CatalogHandler) getCourse(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	course, err := h.service.GetCourse(c.UserContext(), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "course retrieved", course)
}

func (h *CatalogHandler) createCourse(c *fiber.Ctx) error {
	var payload dto.CourseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	course, err := h.service.CreateCourse(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course created", course)
}

func (h *CatalogHandler) listModules(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	modules, err := h.service.ListModules(c.UserContext(), courseID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "modules retrieved", modules)
}

func (h *CatalogHandler) createModule(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ModuleCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	module, err := h.service.CreateModule(c.UserContext(), courseID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "module created", module)
}

func (h *CatalogHandler) listActivities(c *fiber.Ctx) error {
	moduleID, err := parseUintParam(c, "moduleId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	activities, err := h.service.ListActivities(c.UserContext(), moduleID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "activities retrieved", activities)
}

func (h *CatalogHandler) getActivity(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	activity, err := h.service.GetActivity(c.UserContext(), activityID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "activity retrieved", activity)
}

func (h *CatalogHandler) createActivity(c *fiber.Ctx) error {
	moduleID, err := parseUintParam(c, "moduleId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ActivityCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	activity, err := h.service.CreateActivity(c.UserContext(), moduleID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity created", activity)
}

func (h *CatalogHandler) updateActivity(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ActivityUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	activity, err := h.service.UpdateActivity(c.UserContext(), activityID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "activity updated", activity)
}

func (h *CatalogHandler) deleteActivity(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteActivity(c.UserContext(), activityID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "activity deleted", nil)
}

func (h *CatalogHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrActivityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "activity not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
