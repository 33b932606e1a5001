package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/service"
	"github.com/noah-isme/gema-course-api/internal/utils"
)

// JudgeHandler receives graded results from the judge and quiz services.
type JudgeHandler struct {
	service service.GradeIngestService
	logger  zerolog.Logger
}

// NewJudgeHandler constructs the handler.
func NewJudgeHandler(service service.GradeIngestService, logger zerolog.Logger) *JudgeHandler {
	return &JudgeHandler{
		service: service,
		logger:  logger.With().Str("component", "judge_handler").Logger(),
	}
}

// Register binds the ingestion routes.
func (h *JudgeHandler) Register(router fiber.Router) {
	router.Post("/submissions", h.recordSubmission)
	router.Post("/quiz-attempts", h.recordQuizAttempt)
}

func (h *JudgeHandler) recordSubmission(c *fiber.Ctx) error {
	var payload dto.JudgeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.RecordSubmission(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to record submission")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "submission recorded", result)
}

func (h *JudgeHandler) recordQuizAttempt(c *fiber.Ctx) error {
	var payload dto.QuizAttemptRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.RecordQuizAttempt(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to record quiz attempt")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "quiz attempt recorded", result)
}
