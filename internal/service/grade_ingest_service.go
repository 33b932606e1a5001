package service

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/progress"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

// GradeIngestService records graded results reported by the judge and quiz
// runner, then marks the affected lesson grades dirty.
type GradeIngestService interface {
	RecordSubmission(ctx context.Context, payload dto.JudgeSubmissionRequest) (dto.GradeIngestResponse, error)
	RecordQuizAttempt(ctx context.Context, payload dto.QuizAttemptRequest) (dto.GradeIngestResponse, error)
}

type gradeIngestService struct {
	grades    repository.GradeRepository
	trigger   RecalculationTrigger
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewGradeIngestService constructs the ingestion service.
func NewGradeIngestService(grades repository.GradeRepository, trigger RecalculationTrigger, validate *validator.Validate, logger zerolog.Logger) GradeIngestService {
	return &gradeIngestService{
		grades:    grades,
		trigger:   trigger,
		validator: validate,
		logger:    logger.With().Str("component", "grade_ingest_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-course-api/internal/service/grade_ingest"),
	}
}

func (s *gradeIngestService) RecordSubmission(ctx context.Context, payload dto.JudgeSubmissionRequest) (dto.GradeIngestResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grades.record_submission", trace.WithAttributes(
		attribute.Int64("grades.user_id", int64(payload.UserID)),
		attribute.String("grades.problem_code", payload.ProblemCode),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradeIngestResponse{}, err
	}

	submission := models.ProblemSubmission{
		UserID:      payload.UserID,
		ProblemCode: payload.ProblemCode,
		Points:      payload.Points,
		TotalPoints: payload.TotalPoints,
	}
	submission.Status = submissionStatus(submission.Ratio())
	if err := s.grades.CreateSubmission(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_create_failed")
		return dto.GradeIngestResponse{}, err
	}

	refs, err := s.grades.EnrolledLessonsForProblem(ctx, payload.UserID, payload.ProblemCode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lesson_lookup_failed")
		return dto.GradeIngestResponse{}, err
	}

	flagged, err := s.markLessons(ctx, payload.UserID, refs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark_dirty_failed")
		return dto.GradeIngestResponse{}, err
	}

	return dto.GradeIngestResponse{
		RecordID:       submission.ID,
		Percentage:     progress.ClampPercentage(submission.Ratio() * 100),
		LessonsChecked: len(refs),
		FlaggedCourses: flagged,
	}, nil
}

func (s *gradeIngestService) RecordQuizAttempt(ctx context.Context, payload dto.QuizAttemptRequest) (dto.GradeIngestResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grades.record_quiz_attempt", trace.WithAttributes(
		attribute.Int64("grades.user_id", int64(payload.UserID)),
		attribute.Int64("grades.quiz_id", int64(payload.QuizID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradeIngestResponse{}, err
	}

	attempt := models.QuizAttempt{
		UserID:   payload.UserID,
		QuizID:   payload.QuizID,
		Score:    payload.Score,
		MaxScore: payload.MaxScore,
	}
	if err := s.grades.CreateQuizAttempt(ctx, &attempt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt_create_failed")
		return dto.GradeIngestResponse{}, err
	}

	refs, err := s.grades.EnrolledLessonsForQuiz(ctx, payload.UserID, payload.QuizID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lesson_lookup_failed")
		return dto.GradeIngestResponse{}, err
	}

	flagged, err := s.markLessons(ctx, payload.UserID, refs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark_dirty_failed")
		return dto.GradeIngestResponse{}, err
	}

	return dto.GradeIngestResponse{
		RecordID:       attempt.ID,
		Percentage:     progress.ClampPercentage(attempt.Ratio() * 100),
		LessonsChecked: len(refs),
		FlaggedCourses: flagged,
	}, nil
}

func (s *gradeIngestService) markLessons(ctx context.Context, userID uint, refs []repository.LessonRef) ([]uint, error) {
	courses := make(map[uint]struct{})
	for _, ref := range refs {
		changed, err := s.trigger.MarkLessonGradeDirty(ctx, userID, ref.LessonID)
		if err != nil {
			return nil, err
		}
		if changed {
			courses[ref.CourseID] = struct{}{}
		}
	}

	flagged := make([]uint, 0, len(courses))
	for courseID := range courses {
		flagged = append(flagged, courseID)
	}
	sort.Slice(flagged, func(i, j int) bool { return flagged[i] < flagged[j] })

	if len(flagged) > 0 {
		s.logger.Debug().Uint("user_id", userID).Interface("courses", flagged).Msg("graded result flagged enrollments")
	}
	return flagged, nil
}

func submissionStatus(ratio float64) string {
	switch {
	case ratio >= 1:
		return models.SubmissionStatusAccepted
	case ratio > 0:
		return models.SubmissionStatusPartial
	default:
		return models.SubmissionStatusRejected
	}
}
