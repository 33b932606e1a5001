package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-course-api/internal/service"
	"github.com/noah-isme/gema-course-api/internal/utils"
)

// CourseProgressHandler serves a learner's lesson progress for a course.
type CourseProgressHandler struct {
	service service.CourseProgressService
	logger  zerolog.Logger
}

// NewCourseProgressHandler constructs the handler.
func NewCourseProgressHandler(service service.CourseProgressService, logger zerolog.Logger) *CourseProgressHandler {
	return &CourseProgressHandler{
		service: service,
		logger:  logger.With().Str("component", "course_progress_handler").Logger(),
	}
}

// Register binds the progress routes under a courses group.
func (h *CourseProgressHandler) Register(router fiber.Router) {
	router.Get("/progress", h.list)
	router.Get("/:courseID/progress", h.get)
	router.Post("/:courseID/progress/refresh", h.refresh)
}

func (h *CourseProgressHandler) get(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	courseID, err := parseIDParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	progress, cacheHit, err := h.service.GetProgress(requestContext(c), userID, courseID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load course progress")
	}

	return utils.OK(c, progress, "course progress retrieved", fiber.Map{
		"cache_hit":    cacheHit,
		"recalculated": progress.Recalculated,
	})
}

func (h *CourseProgressHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	summaries, err := h.service.ListProgress(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list course progress")
	}

	return utils.OK(c, summaries, "course progress overview", fiber.Map{"courses": len(summaries)})
}

func (h *CourseProgressHandler) refresh(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	courseID, err := parseIDParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	progress, err := h.service.Refresh(requestContext(c), userID, courseID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to refresh course progress")
	}

	requestLogger(h.logger, c).Info().
		Uint("user_id", userID).
		Uint("course_id", courseID).
		Int("newly_unlocked", len(progress.NewlyUnlocked)).
		Msg("course progress refreshed")

	return utils.OK(c, progress, "course progress refreshed", fiber.Map{
		"cache_hit":    false,
		"recalculated": true,
	})
}
