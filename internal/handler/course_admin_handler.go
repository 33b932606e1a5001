package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/service"
	"github.com/noah-isme/gema-course-api/internal/utils"
)

// CourseAdminHandler exposes course structure management to staff.
type CourseAdminHandler struct {
	service  service.CourseStructureService
	activity service.ActivityService
	logger   zerolog.Logger
}

// NewCourseAdminHandler constructs the handler. The activity route is only
// registered when activity is non-nil.
func NewCourseAdminHandler(service service.CourseStructureService, activity service.ActivityService, logger zerolog.Logger) *CourseAdminHandler {
	return &CourseAdminHandler{
		service:  service,
		activity: activity,
		logger:   logger.With().Str("component", "course_admin_handler").Logger(),
	}
}

// Register binds the admin routes under a courses group.
func (h *CourseAdminHandler) Register(router fiber.Router) {
	course := router.Group("/:courseID")
	course.Post("/lessons", h.createLesson)
	course.Patch("/lessons/:lessonID", h.updateLesson)
	course.Delete("/lessons/:lessonID", h.deleteLesson)
	course.Post("/lessons/:lessonID/problems", h.addProblem)
	course.Post("/lessons/:lessonID/quizzes", h.addQuiz)
	course.Post("/prerequisites", h.addPrerequisite)
	course.Delete("/prerequisites/:prerequisiteID", h.removePrerequisite)
	course.Post("/enrollments", h.enroll)
	if h.activity != nil {
		course.Get("/activity", h.listActivity)
	}
}

func (h *CourseAdminHandler) createLesson(c *fiber.Ctx) error {
	courseID, err := parseIDParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LessonCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	lesson, err := h.service.CreateLesson(requestContext(c), courseID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create lesson")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "lesson created", lesson)
}

func (h *CourseAdminHandler) updateLesson(c *fiber.Ctx) error {
	courseID, lessonID, err := h.lessonParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LessonUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	lesson, err := h.service.UpdateLesson(requestContext(c), courseID, lessonID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update lesson")
	}

	return utils.SendSuccess(c, "lesson updated", lesson)
}

func (h *CourseAdminHandler) deleteLesson(c *fiber.Ctx) error {
	courseID, lessonID, err := h.lessonParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteLesson(requestContext(c), courseID, lessonID); err != nil {
		return respondError(c, h.logger, err, "failed to delete lesson")
	}

	return utils.SendSuccess(c, "lesson deleted", nil)
}

func (h *CourseAdminHandler) addProblem(c *fiber.Ctx) error {
	courseID, lessonID, err := h.lessonParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LessonProblemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.AddLessonProblem(requestContext(c), courseID, lessonID, payload); err != nil {
		return respondError(c, h.logger, err, "failed to link problem")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "problem linked", nil)
}

func (h *CourseAdminHandler) addQuiz(c *fiber.Ctx) error {
	courseID, lessonID, err := h.lessonParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LessonQuizRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.AddLessonQuiz(requestContext(c), courseID, lessonID, payload); err != nil {
		return respondError(c, h.logger, err, "failed to link quiz")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz linked", nil)
}

func (h *CourseAdminHandler) addPrerequisite(c *fiber.Ctx) error {
	courseID, err := parseIDParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PrerequisiteCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	edge, err := h.service.AddPrerequisite(requestContext(c), courseID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to add prerequisite")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "prerequisite added", edge)
}

func (h *CourseAdminHandler) removePrerequisite(c *fiber.Ctx) error {
	courseID, err := parseIDParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	prerequisiteID, err := parseIDParam(c, "prerequisiteID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.RemovePrerequisite(requestContext(c), courseID, prerequisiteID); err != nil {
		return respondError(c, h.logger, err, "failed to remove prerequisite")
	}

	return utils.SendSuccess(c, "prerequisite removed", nil)
}

func (h *CourseAdminHandler) enroll(c *fiber.Ctx) error {
	courseID, err := parseIDParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.EnrollmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	enrollment, err := h.service.Enroll(requestContext(c), courseID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to enroll user")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user enrolled", enrollment)
}

func (h *CourseAdminHandler) listActivity(c *fiber.Ctx) error {
	courseID, err := parseIDParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	result, err := h.activity.List(requestContext(c), courseID, dto.ActivityListRequest{
		Page:     page,
		PageSize: pageSize,
		Action:   c.Query("action"),
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to list course activity")
	}

	return utils.OK(c, result.Items, "course activity retrieved", result.Pagination)
}

func (h *CourseAdminHandler) lessonParams(c *fiber.Ctx) (uint, uint, error) {
	courseID, err := parseIDParam(c, "courseID")
	if err != nil {
		return 0, 0, err
	}
	lessonID, err := parseIDParam(c, "lessonID")
	if err != nil {
		return 0, 0, err
	}
	return courseID, lessonID, nil
}
