package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-course-api/internal/cache"
	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/observability"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

// ErrCourseNotFound indicates the course cannot be located.
var ErrCourseNotFound = errors.New("course not found")

// CourseProgressService serves a learner's lesson progress for a course,
// recomputing it first when it has been marked stale.
type CourseProgressService interface {
	GetProgress(ctx context.Context, userID, courseID uint) (dto.CourseProgressResponse, bool, error)
	Refresh(ctx context.Context, userID, courseID uint) (dto.CourseProgressResponse, error)
	ListProgress(ctx context.Context, userID uint) ([]dto.CourseProgressSummary, error)
}

type courseProgressService struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	progress    repository.LessonProgressRepository
	trigger     RecalculationTrigger
	cache       *cache.Client
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCourseProgressService constructs the progress view service. progressCache may be nil.
func NewCourseProgressService(courses repository.CourseRepository, enrollments repository.EnrollmentRepository, progressRepo repository.LessonProgressRepository, trigger RecalculationTrigger, progressCache *cache.Client, logger zerolog.Logger) CourseProgressService {
	return &courseProgressService{
		courses:     courses,
		enrollments: enrollments,
		progress:    progressRepo,
		trigger:     trigger,
		cache:       progressCache,
		logger:      logger.With().Str("component", "course_progress_service").Logger(),
		now:         time.Now,
	}
}

// GetProgress returns the progress view and whether it came from cache. A
// cached view is only served while the enrollment is not flagged, so a flag
// set after a view was stored still forces the next read to recompute.
func (s *courseProgressService) GetProgress(ctx context.Context, userID, courseID uint) (dto.CourseProgressResponse, bool, error) {
	key := progressCacheKey(s.cache, courseID, userID)

	var cached dto.CourseProgressResponse
	switch err := s.cache.Get(ctx, key, &cached); {
	case err == nil:
		enrollment, err := s.enrollment(ctx, userID, courseID)
		if err != nil {
			return dto.CourseProgressResponse{}, false, err
		}
		if !enrollment.NeedsProgressRecalculation {
			observability.ProgressCacheRequests().WithLabelValues("hit").Inc()
			return cached, true, nil
		}
		observability.ProgressCacheRequests().WithLabelValues("stale").Inc()
	case errors.Is(err, cache.ErrMiss):
		observability.ProgressCacheRequests().WithLabelValues("miss").Inc()
	default:
		observability.ProgressCacheRequests().WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Msg("failed to read progress cache")
	}

	result, recalculated, err := s.trigger.EnsureFresh(ctx, userID, courseID, false)
	if err != nil {
		return dto.CourseProgressResponse{}, false, err
	}

	response, err := s.build(ctx, userID, courseID)
	if err != nil {
		return dto.CourseProgressResponse{}, false, err
	}
	response.Recalculated = recalculated
	response.NewlyUnlocked = nonNilIDs(result.NewlyUnlocked)

	s.store(ctx, key, response)
	return response, false, nil
}

// Refresh recomputes the unlock states regardless of the enrollment flag.
func (s *courseProgressService) Refresh(ctx context.Context, userID, courseID uint) (dto.CourseProgressResponse, error) {
	result, _, err := s.trigger.EnsureFresh(ctx, userID, courseID, true)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	response, err := s.build(ctx, userID, courseID)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}
	response.Recalculated = true
	response.NewlyUnlocked = nonNilIDs(result.NewlyUnlocked)

	s.store(ctx, progressCacheKey(s.cache, courseID, userID), response)
	return response, nil
}

// ListProgress summarises every course the user is enrolled in. Cached views
// are fetched in one round trip; the rest go through GetProgress.
func (s *courseProgressService) ListProgress(ctx context.Context, userID uint) ([]dto.CourseProgressSummary, error) {
	enrollments, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(enrollments))
	for _, enrollment := range enrollments {
		keys = append(keys, progressCacheKey(s.cache, enrollment.CourseID, userID))
	}
	cached, err := s.cache.GetMany(ctx, keys)
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to read progress cache")
		cached = nil
	}

	summaries := make([]dto.CourseProgressSummary, 0, len(enrollments))
	for i, enrollment := range enrollments {
		courseID := enrollment.CourseID
		if raw, ok := cached[keys[i]]; ok && !enrollment.NeedsProgressRecalculation {
			var view dto.CourseProgressResponse
			if err := json.Unmarshal(raw, &view); err == nil {
				observability.ProgressCacheRequests().WithLabelValues("hit").Inc()
				summaries = append(summaries, dto.NewCourseProgressSummary(view, true))
				continue
			}
			s.logger.Warn().Uint("course_id", courseID).Msg("discarding undecodable progress cache entry")
		}

		view, _, err := s.GetProgress(ctx, userID, courseID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, dto.NewCourseProgressSummary(view, false))
	}
	return summaries, nil
}

func (s *courseProgressService) enrollment(ctx context.Context, userID, courseID uint) (models.CourseEnrollment, error) {
	enrollment, err := s.enrollments.Get(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseEnrollment{}, ErrNotEnrolled
		}
		return models.CourseEnrollment{}, err
	}
	return enrollment, nil
}

func (s *courseProgressService) build(ctx context.Context, userID, courseID uint) (dto.CourseProgressResponse, error) {
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseProgressResponse{}, ErrCourseNotFound
		}
		return dto.CourseProgressResponse{}, err
	}

	lessons, err := s.courses.ListLessons(ctx, courseID)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	lessonIDs := make([]uint, 0, len(lessons))
	for _, lesson := range lessons {
		lessonIDs = append(lessonIDs, lesson.ID)
	}
	records, err := s.progress.ListForUser(ctx, userID, lessonIDs)
	if err != nil {
		return dto.CourseProgressResponse{}, err
	}

	items := make([]dto.LessonProgressItem, 0, len(lessons))
	var earned, total float64
	for _, lesson := range lessons {
		item := dto.LessonProgressItem{
			LessonID: lesson.ID,
			Order:    lesson.Order,
			Title:    lesson.Title,
			Points:   lesson.Points,
		}
		if record, ok := records[lesson.ID]; ok {
			item.Percentage = record.Percentage
			item.Locked = !record.IsUnlocked
		}
		earned += float64(lesson.Points) * item.Percentage
		total += float64(lesson.Points)
		items = append(items, item)
	}

	response := dto.CourseProgressResponse{
		CourseID:      course.ID,
		CourseTitle:   course.Title,
		Lessons:       items,
		NewlyUnlocked: []uint{},
		GeneratedAt:   s.now().UTC(),
	}
	if total > 0 {
		response.Percentage = earned / total
	}
	return response, nil
}

// store caches the view without the one-shot recalculation details.
func (s *courseProgressService) store(ctx context.Context, key string, response dto.CourseProgressResponse) {
	response.NewlyUnlocked = []uint{}
	response.Recalculated = false
	if err := s.cache.Set(ctx, key, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store progress cache")
	}
}

func nonNilIDs(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}
