package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/observability"
	"github.com/noah-isme/gema-course-api/internal/progress"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

// LessonUnlockService recomputes which lessons of a course a user can open.
type LessonUnlockService interface {
	UpdateLessonUnlockStates(ctx context.Context, userID, courseID uint) (dto.LessonUnlockResult, error)
}

// UnlockNotifier is told about lessons that just became reachable.
type UnlockNotifier interface {
	LessonsUnlocked(ctx context.Context, userID, courseID uint, lessons []models.Lesson) error
}

type lessonUnlockService struct {
	courses       repository.CourseRepository
	prerequisites repository.PrerequisiteRepository
	progress      repository.LessonProgressRepository
	grades        GradeSource
	notifier      UnlockNotifier
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewLessonUnlockService constructs the unlock service. notifier may be nil.
func NewLessonUnlockService(courses repository.CourseRepository, prerequisites repository.PrerequisiteRepository, progressRepo repository.LessonProgressRepository, grades GradeSource, notifier UnlockNotifier, logger zerolog.Logger) LessonUnlockService {
	return &lessonUnlockService{
		courses:       courses,
		prerequisites: prerequisites,
		progress:      progressRepo,
		grades:        grades,
		notifier:      notifier,
		logger:        logger.With().Str("component", "lesson_unlock_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/gema-course-api/internal/service/lesson_unlock"),
	}
}

func (s *lessonUnlockService) UpdateLessonUnlockStates(ctx context.Context, userID, courseID uint) (dto.LessonUnlockResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "progress.update_unlock_states", trace.WithAttributes(
		attribute.Int64("progress.user_id", int64(userID)),
		attribute.Int64("progress.course_id", int64(courseID)),
	))
	defer span.End()
	defer func() {
		observability.ProgressRecalculationLatency().Observe(time.Since(start).Seconds())
	}()

	lessons, err := s.courses.ListLessons(ctx, courseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lessons_lookup_failed")
		return dto.LessonUnlockResult{}, err
	}

	edges, err := s.prerequisites.ListByCourse(ctx, courseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prerequisites_lookup_failed")
		return dto.LessonUnlockResult{}, err
	}

	grades, err := s.grades.CalculateUserLessonGrades(ctx, userID, lessons)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_calculation_failed")
		return dto.LessonUnlockResult{}, err
	}

	graph := progress.BuildGraph(lessonOrders(lessons), toEdges(edges))
	computed := progress.Propagate(graph, grades)

	lessonIDs := make([]uint, 0, len(lessons))
	for _, lesson := range lessons {
		lessonIDs = append(lessonIDs, lesson.ID)
	}
	prior, err := s.progress.ListForUser(ctx, userID, lessonIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "progress_lookup_failed")
		return dto.LessonUnlockResult{}, err
	}

	result := dto.LessonUnlockResult{
		NewlyUnlocked: make([]uint, 0),
		LockStatus:    make(map[uint]bool, len(lessons)),
	}
	records := make([]models.LessonProgress, 0, len(lessons))
	unlockedLessons := make([]models.Lesson, 0)

	for _, lesson := range lessons {
		unlocked := computed.IsUnlocked(lesson.Order)

		// A missing record means the lesson was never attempted: reachable only
		// when it has no prerequisites.
		wasUnlocked := !graph.HasPrerequisites(lesson.Order)
		if record, ok := prior[lesson.ID]; ok {
			wasUnlocked = record.IsUnlocked
		}
		if unlocked && !wasUnlocked {
			result.NewlyUnlocked = append(result.NewlyUnlocked, lesson.ID)
			unlockedLessons = append(unlockedLessons, lesson)
		}

		result.LockStatus[lesson.ID] = !unlocked
		records = append(records, models.LessonProgress{
			UserID:     userID,
			LessonID:   lesson.ID,
			Percentage: computed.Grades[lesson.Order],
			IsUnlocked: unlocked,
		})
	}

	if err := s.progress.UpsertMany(ctx, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "progress_upsert_failed")
		return dto.LessonUnlockResult{}, err
	}

	span.SetAttributes(
		attribute.Int("progress.lessons", len(lessons)),
		attribute.Int("progress.newly_unlocked", len(result.NewlyUnlocked)),
	)
	observability.LessonsUnlocked().Add(float64(len(result.NewlyUnlocked)))

	if len(unlockedLessons) > 0 && s.notifier != nil {
		if err := s.notifier.LessonsUnlocked(ctx, userID, courseID, unlockedLessons); err != nil {
			s.logger.Warn().Err(err).Uint("user_id", userID).Uint("course_id", courseID).Msg("failed to notify unlocked lessons")
		}
	}

	s.logger.Debug().
		Uint("user_id", userID).
		Uint("course_id", courseID).
		Int("lessons", len(lessons)).
		Int("newly_unlocked", len(result.NewlyUnlocked)).
		Msg("lesson unlock states updated")

	return result, nil
}

func lessonOrders(lessons []models.Lesson) []int {
	orders := make([]int, 0, len(lessons))
	for _, lesson := range lessons {
		orders = append(orders, lesson.Order)
	}
	return orders
}

func toEdges(rows []models.LessonPrerequisite) []progress.Edge {
	edges := make([]progress.Edge, 0, len(rows))
	for _, row := range rows {
		edges = append(edges, progress.Edge{
			SourceOrder:        row.SourceOrder,
			TargetOrder:        row.TargetOrder,
			RequiredPercentage: row.RequiredPercentage,
		})
	}
	return edges
}
