package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-course-api/internal/cache"
	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/observability"
	"github.com/noah-isme/gema-course-api/internal/progress"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

// ErrNotEnrolled indicates the user has no enrollment for the course.
var ErrNotEnrolled = errors.New("user is not enrolled in course")

// ErrLessonNotFound indicates the lesson cannot be located.
var ErrLessonNotFound = errors.New("lesson not found")

const (
	triggerLazy   = "lazy"
	triggerForced = "forced"
)

// RecalculationTrigger marks enrollments whose lesson progress is stale and
// recomputes them when their progress is next read.
type RecalculationTrigger interface {
	MarkLessonGradeDirty(ctx context.Context, userID, lessonID uint) (bool, error)
	MarkCourseStructureDirty(ctx context.Context, courseID uint) error
	InvalidateCourseViews(ctx context.Context, courseID uint)
	EnsureFresh(ctx context.Context, userID, courseID uint, force bool) (dto.LessonUnlockResult, bool, error)
}

type recalculationTrigger struct {
	courses       repository.CourseRepository
	prerequisites repository.PrerequisiteRepository
	enrollments   repository.EnrollmentRepository
	progress      repository.LessonProgressRepository
	grades        GradeSource
	unlocks       LessonUnlockService
	cache         *cache.Client
	logger        zerolog.Logger
}

// NewRecalculationTrigger constructs the trigger. progressCache may be nil.
func NewRecalculationTrigger(courses repository.CourseRepository, prerequisites repository.PrerequisiteRepository, enrollments repository.EnrollmentRepository, progressRepo repository.LessonProgressRepository, grades GradeSource, unlocks LessonUnlockService, progressCache *cache.Client, logger zerolog.Logger) RecalculationTrigger {
	return &recalculationTrigger{
		courses:       courses,
		prerequisites: prerequisites,
		enrollments:   enrollments,
		progress:      progressRepo,
		grades:        grades,
		unlocks:       unlocks,
		cache:         progressCache,
		logger:        logger.With().Str("component", "recalculation_trigger").Logger(),
	}
}

// MarkLessonGradeDirty refreshes the stored percentage of one lesson and flags
// the enrollment when it moved. It reports whether the flag was set.
func (t *recalculationTrigger) MarkLessonGradeDirty(ctx context.Context, userID, lessonID uint) (bool, error) {
	lesson, err := t.courses.FindLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrLessonNotFound
		}
		return false, err
	}

	grades, err := t.grades.CalculateUserLessonGrades(ctx, userID, []models.Lesson{lesson})
	if err != nil {
		return false, err
	}
	current := progress.ClampPercentage(grades[lesson.Order])

	existing, err := t.progress.ListForUser(ctx, userID, []uint{lesson.ID})
	if err != nil {
		return false, err
	}

	record, found := existing[lesson.ID]
	if found && !progress.PercentageChanged(record.Percentage, current) {
		return false, nil
	}
	if !found {
		if !progress.PercentageChanged(0, current) {
			return false, nil
		}
		unlocked, err := t.defaultUnlocked(ctx, lesson)
		if err != nil {
			return false, err
		}
		record = models.LessonProgress{UserID: userID, LessonID: lesson.ID, IsUnlocked: unlocked}
	}

	record.Percentage = current
	if err := t.progress.UpsertPercentage(ctx, record); err != nil {
		return false, err
	}

	if err := t.enrollments.SetNeedsRecalculation(ctx, userID, lesson.CourseID, true); err != nil {
		return false, err
	}
	observability.ProgressFlags().WithLabelValues("grade").Inc()
	t.invalidate(ctx, lesson.CourseID, []uint{userID})

	t.logger.Debug().
		Uint("user_id", userID).
		Uint("lesson_id", lesson.ID).
		Float64("percentage", current).
		Msg("lesson grade changed")

	return true, nil
}

// MarkCourseStructureDirty flags every enrollment of the course.
func (t *recalculationTrigger) MarkCourseStructureDirty(ctx context.Context, courseID uint) error {
	userIDs, err := t.enrollments.FlagCourse(ctx, courseID)
	if err != nil {
		return err
	}
	observability.ProgressFlags().WithLabelValues("structure").Add(float64(len(userIDs)))
	t.invalidate(ctx, courseID, userIDs)

	t.logger.Info().Uint("course_id", courseID).Int("enrollments", len(userIDs)).Msg("course structure changed")
	return nil
}

// InvalidateCourseViews drops the cached progress views of every learner in
// the course without flagging their enrollments. Used for edits that change
// how lessons are displayed but not how they unlock.
func (t *recalculationTrigger) InvalidateCourseViews(ctx context.Context, courseID uint) {
	if t.cache == nil {
		return
	}
	userIDs, err := t.enrollments.ListUserIDs(ctx, courseID)
	if err != nil {
		t.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to list enrollments for cache invalidation")
		return
	}
	t.invalidate(ctx, courseID, userIDs)
}

// EnsureFresh runs the unlock recalculation when the enrollment is flagged, or
// unconditionally when force is set, and clears the flag afterwards.
func (t *recalculationTrigger) EnsureFresh(ctx context.Context, userID, courseID uint, force bool) (dto.LessonUnlockResult, bool, error) {
	enrollment, err := t.enrollments.Get(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonUnlockResult{}, false, ErrNotEnrolled
		}
		return dto.LessonUnlockResult{}, false, err
	}

	if !force && !enrollment.NeedsProgressRecalculation {
		return dto.LessonUnlockResult{}, false, nil
	}

	result, err := t.unlocks.UpdateLessonUnlockStates(ctx, userID, courseID)
	if err != nil {
		return dto.LessonUnlockResult{}, false, err
	}

	if err := t.enrollments.SetNeedsRecalculation(ctx, userID, courseID, false); err != nil {
		return dto.LessonUnlockResult{}, false, err
	}

	trigger := triggerLazy
	if force {
		trigger = triggerForced
	}
	observability.ProgressRecalculations().WithLabelValues(trigger).Inc()

	return result, true, nil
}

func (t *recalculationTrigger) defaultUnlocked(ctx context.Context, lesson models.Lesson) (bool, error) {
	lessons, err := t.courses.ListLessons(ctx, lesson.CourseID)
	if err != nil {
		return false, err
	}
	edges, err := t.prerequisites.ListByCourse(ctx, lesson.CourseID)
	if err != nil {
		return false, err
	}
	graph := progress.BuildGraph(lessonOrders(lessons), toEdges(edges))
	return !graph.HasPrerequisites(lesson.Order), nil
}

func (t *recalculationTrigger) invalidate(ctx context.Context, courseID uint, userIDs []uint) {
	if t.cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		keys = append(keys, progressCacheKey(t.cache, courseID, userID))
	}
	if err := t.cache.InvalidateMany(ctx, keys); err != nil {
		t.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate progress cache")
	}
}

func progressCacheKey(c *cache.Client, courseID, userID uint) string {
	return c.Key("course", strconv.FormatUint(uint64(courseID), 10), "user", strconv.FormatUint(uint64(userID), 10))
}
