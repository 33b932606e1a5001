package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/progress"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

var (
	// ErrInvalidLesson indicates the lesson payload is unusable.
	ErrInvalidLesson = errors.New("invalid lesson")
	// ErrLessonOrderTaken indicates another lesson of the course already uses the order.
	ErrLessonOrderTaken = errors.New("lesson order already used in course")
	// ErrPrerequisiteNotFound indicates the prerequisite edge cannot be located.
	ErrPrerequisiteNotFound = errors.New("prerequisite not found")
	// ErrInvalidPrerequisite indicates the edge endpoints are unusable.
	ErrInvalidPrerequisite = errors.New("invalid prerequisite")
	// ErrPrerequisiteExists indicates the edge is already present.
	ErrPrerequisiteExists = errors.New("prerequisite already exists")
	// ErrPrerequisiteCycle indicates the edge would make lessons unreachable.
	ErrPrerequisiteCycle = errors.New("prerequisite would create a cycle")
	// ErrLessonContentExists indicates the problem or quiz is already linked to the lesson.
	ErrLessonContentExists = errors.New("content already linked to lesson")
)

// CourseStructureService manages lessons, their graded content and prerequisite
// edges. Changes that affect grading or the prerequisite graph flag every
// enrollment of the course for recalculation.
type CourseStructureService interface {
	CreateLesson(ctx context.Context, courseID uint, payload dto.LessonCreateRequest) (dto.LessonResponse, error)
	UpdateLesson(ctx context.Context, courseID, lessonID uint, payload dto.LessonUpdateRequest) (dto.LessonResponse, error)
	DeleteLesson(ctx context.Context, courseID, lessonID uint) error
	AddLessonProblem(ctx context.Context, courseID, lessonID uint, payload dto.LessonProblemRequest) error
	AddLessonQuiz(ctx context.Context, courseID, lessonID uint, payload dto.LessonQuizRequest) error
	AddPrerequisite(ctx context.Context, courseID uint, payload dto.PrerequisiteCreateRequest) (dto.PrerequisiteResponse, error)
	RemovePrerequisite(ctx context.Context, courseID, prerequisiteID uint) error
	Enroll(ctx context.Context, courseID uint, payload dto.EnrollmentRequest) (dto.EnrollmentResponse, error)
}

type courseStructureService struct {
	courses       repository.CourseRepository
	prerequisites repository.PrerequisiteRepository
	enrollments   repository.EnrollmentRepository
	trigger       RecalculationTrigger
	activity      ActivityRecorder
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
}

// NewCourseStructureService constructs the course structure service. activity may be nil.
func NewCourseStructureService(courses repository.CourseRepository, prerequisites repository.PrerequisiteRepository, enrollments repository.EnrollmentRepository, trigger RecalculationTrigger, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) CourseStructureService {
	return &courseStructureService{
		courses:       courses,
		prerequisites: prerequisites,
		enrollments:   enrollments,
		trigger:       trigger,
		activity:      activity,
		validator:     validate,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "course_structure_service").Logger(),
	}
}

func (s *courseStructureService) CreateLesson(ctx context.Context, courseID uint, payload dto.LessonCreateRequest) (dto.LessonResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LessonResponse{}, err
	}

	lessons, err := s.lessonsOf(ctx, courseID)
	if err != nil {
		return dto.LessonResponse{}, err
	}
	if orderTaken(lessons, payload.Order, 0) {
		return dto.LessonResponse{}, ErrLessonOrderTaken
	}

	lesson := models.Lesson{
		CourseID:    courseID,
		Order:       payload.Order,
		Title:       s.clean(payload.Title),
		Description: s.clean(payload.Description),
		Points:      payload.Points,
	}
	if lesson.Title == "" {
		return dto.LessonResponse{}, fmt.Errorf("%w: title empty after sanitization", ErrInvalidLesson)
	}

	if err := s.courses.CreateLesson(ctx, &lesson); err != nil {
		return dto.LessonResponse{}, err
	}

	if err := s.trigger.MarkCourseStructureDirty(ctx, courseID); err != nil {
		return dto.LessonResponse{}, err
	}

	s.record(ctx, ActivityEntry{
		CourseID:   courseID,
		Action:     models.ActivityLessonCreated,
		EntityType: "lesson",
		EntityID:   lesson.ID,
		Metadata:   map[string]interface{}{"order": lesson.Order, "points": lesson.Points},
	})

	return dto.NewLessonResponse(lesson), nil
}

// UpdateLesson only flags enrollments when the lesson weight changes; title,
// description and order edits leave computed progress untouched.
func (s *courseStructureService) UpdateLesson(ctx context.Context, courseID, lessonID uint, payload dto.LessonUpdateRequest) (dto.LessonResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LessonResponse{}, err
	}

	lesson, err := s.lesson(ctx, courseID, lessonID)
	if err != nil {
		return dto.LessonResponse{}, err
	}

	if payload.Order != nil && *payload.Order != lesson.Order {
		lessons, err := s.courses.ListLessons(ctx, courseID)
		if err != nil {
			return dto.LessonResponse{}, err
		}
		if orderTaken(lessons, *payload.Order, lesson.ID) {
			return dto.LessonResponse{}, ErrLessonOrderTaken
		}
		lesson.Order = *payload.Order
	}
	if payload.Title != nil {
		title := s.clean(*payload.Title)
		if title == "" {
			return dto.LessonResponse{}, fmt.Errorf("%w: title empty after sanitization", ErrInvalidLesson)
		}
		lesson.Title = title
	}
	if payload.Description != nil {
		lesson.Description = s.clean(*payload.Description)
	}

	pointsChanged := payload.Points != nil && *payload.Points != lesson.Points
	if pointsChanged {
		lesson.Points = *payload.Points
	}

	if err := s.courses.UpdateLesson(ctx, &lesson); err != nil {
		return dto.LessonResponse{}, err
	}

	if pointsChanged {
		if err := s.trigger.MarkCourseStructureDirty(ctx, courseID); err != nil {
			return dto.LessonResponse{}, err
		}
	} else {
		s.trigger.InvalidateCourseViews(ctx, courseID)
	}

	s.record(ctx, ActivityEntry{
		CourseID:   courseID,
		Action:     models.ActivityLessonUpdated,
		EntityType: "lesson",
		EntityID:   lesson.ID,
		Metadata:   map[string]interface{}{"order": lesson.Order, "points_changed": pointsChanged},
	})

	return dto.NewLessonResponse(lesson), nil
}

func (s *courseStructureService) DeleteLesson(ctx context.Context, courseID, lessonID uint) error {
	lesson, err := s.lesson(ctx, courseID, lessonID)
	if err != nil {
		return err
	}

	if err := s.courses.DeleteLesson(ctx, lesson); err != nil {
		return err
	}

	if err := s.trigger.MarkCourseStructureDirty(ctx, courseID); err != nil {
		return err
	}

	s.record(ctx, ActivityEntry{
		CourseID:   courseID,
		Action:     models.ActivityLessonDeleted,
		EntityType: "lesson",
		EntityID:   lesson.ID,
		Metadata:   map[string]interface{}{"order": lesson.Order},
	})
	return nil
}

func (s *courseStructureService) AddLessonProblem(ctx context.Context, courseID, lessonID uint, payload dto.LessonProblemRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	lesson, err := s.lesson(ctx, courseID, lessonID)
	if err != nil {
		return err
	}

	link := models.LessonProblem{
		LessonID:    lesson.ID,
		ProblemCode: strings.TrimSpace(payload.ProblemCode),
		Points:      defaultWeight(payload.Points),
	}
	for _, existing := range lesson.Problems {
		if existing.ProblemCode == link.ProblemCode {
			return ErrLessonContentExists
		}
	}
	if err := s.courses.AddLessonProblem(ctx, &link); err != nil {
		return duplicateContent(err)
	}

	if err := s.trigger.MarkCourseStructureDirty(ctx, courseID); err != nil {
		return err
	}

	s.record(ctx, ActivityEntry{
		CourseID:   courseID,
		Action:     models.ActivityProblemLinked,
		EntityType: "lesson",
		EntityID:   lesson.ID,
		Metadata:   map[string]interface{}{"problem_code": link.ProblemCode, "points": link.Points},
	})
	return nil
}

func (s *courseStructureService) AddLessonQuiz(ctx context.Context, courseID, lessonID uint, payload dto.LessonQuizRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	lesson, err := s.lesson(ctx, courseID, lessonID)
	if err != nil {
		return err
	}

	link := models.LessonQuiz{
		LessonID: lesson.ID,
		QuizID:   payload.QuizID,
		Points:   defaultWeight(payload.Points),
	}
	for _, existing := range lesson.Quizzes {
		if existing.QuizID == link.QuizID {
			return ErrLessonContentExists
		}
	}
	if err := s.courses.AddLessonQuiz(ctx, &link); err != nil {
		return duplicateContent(err)
	}

	if err := s.trigger.MarkCourseStructureDirty(ctx, courseID); err != nil {
		return err
	}

	s.record(ctx, ActivityEntry{
		CourseID:   courseID,
		Action:     models.ActivityQuizLinked,
		EntityType: "lesson",
		EntityID:   lesson.ID,
		Metadata:   map[string]interface{}{"quiz_id": link.QuizID, "points": link.Points},
	})
	return nil
}

// AddPrerequisite validates the edge against the current lessons and rejects
// edges that would close a cycle.
func (s *courseStructureService) AddPrerequisite(ctx context.Context, courseID uint, payload dto.PrerequisiteCreateRequest) (dto.PrerequisiteResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PrerequisiteResponse{}, err
	}
	if payload.SourceOrder >= payload.TargetOrder {
		return dto.PrerequisiteResponse{}, fmt.Errorf("%w: source lesson must come before target lesson", ErrInvalidPrerequisite)
	}

	lessons, err := s.lessonsOf(ctx, courseID)
	if err != nil {
		return dto.PrerequisiteResponse{}, err
	}
	orders := lessonOrders(lessons)
	if !containsOrder(orders, payload.SourceOrder) || !containsOrder(orders, payload.TargetOrder) {
		return dto.PrerequisiteResponse{}, fmt.Errorf("%w: lesson order not found in course", ErrInvalidPrerequisite)
	}

	existing, err := s.prerequisites.ListByCourse(ctx, courseID)
	if err != nil {
		return dto.PrerequisiteResponse{}, err
	}
	for _, edge := range existing {
		if edge.SourceOrder == payload.SourceOrder && edge.TargetOrder == payload.TargetOrder {
			return dto.PrerequisiteResponse{}, ErrPrerequisiteExists
		}
	}

	// Only the lessons this edge newly blocks count; a cycle already in the
	// course must not stop unrelated edges.
	current := toEdges(existing)
	before := progress.FindCycle(orders, current)
	candidate := append(current, progress.Edge{
		SourceOrder:        payload.SourceOrder,
		TargetOrder:        payload.TargetOrder,
		RequiredPercentage: payload.RequiredPercentage,
	})
	if blocked := newlyBlocked(before, progress.FindCycle(orders, candidate)); len(blocked) > 0 {
		return dto.PrerequisiteResponse{}, fmt.Errorf("%w: lessons %v", ErrPrerequisiteCycle, blocked)
	}

	edge := models.LessonPrerequisite{
		CourseID:           courseID,
		SourceOrder:        payload.SourceOrder,
		TargetOrder:        payload.TargetOrder,
		RequiredPercentage: payload.RequiredPercentage,
	}
	if err := s.prerequisites.Create(ctx, &edge); err != nil {
		return dto.PrerequisiteResponse{}, err
	}

	if err := s.trigger.MarkCourseStructureDirty(ctx, courseID); err != nil {
		return dto.PrerequisiteResponse{}, err
	}

	s.record(ctx, ActivityEntry{
		CourseID:   courseID,
		Action:     models.ActivityPrerequisiteAdded,
		EntityType: "prerequisite",
		EntityID:   edge.ID,
		Metadata: map[string]interface{}{
			"source_order":        edge.SourceOrder,
			"target_order":        edge.TargetOrder,
			"required_percentage": edge.RequiredPercentage,
		},
	})

	return dto.NewPrerequisiteResponse(edge), nil
}

func (s *courseStructureService) RemovePrerequisite(ctx context.Context, courseID, prerequisiteID uint) error {
	if err := s.prerequisites.Delete(ctx, courseID, prerequisiteID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPrerequisiteNotFound
		}
		return err
	}

	if err := s.trigger.MarkCourseStructureDirty(ctx, courseID); err != nil {
		return err
	}

	s.record(ctx, ActivityEntry{
		CourseID:   courseID,
		Action:     models.ActivityPrerequisiteRemoved,
		EntityType: "prerequisite",
		EntityID:   prerequisiteID,
	})
	return nil
}

func (s *courseStructureService) Enroll(ctx context.Context, courseID uint, payload dto.EnrollmentRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	if _, err := s.course(ctx, courseID); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	enrollment, err := s.enrollments.Enroll(ctx, payload.UserID, courseID)
	if err != nil {
		return dto.EnrollmentResponse{}, err
	}

	s.logger.Info().Uint("user_id", payload.UserID).Uint("course_id", courseID).Msg("user enrolled")
	s.record(ctx, ActivityEntry{
		CourseID:   courseID,
		Action:     models.ActivityUserEnrolled,
		EntityType: "enrollment",
		EntityID:   enrollment.ID,
		Metadata:   map[string]interface{}{"user_id": payload.UserID},
	})

	return dto.EnrollmentResponse{
		UserID:                     enrollment.UserID,
		CourseID:                   enrollment.CourseID,
		NeedsProgressRecalculation: enrollment.NeedsProgressRecalculation,
	}, nil
}

func (s *courseStructureService) course(ctx context.Context, courseID uint) (models.Course, error) {
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}
	return course, nil
}

func (s *courseStructureService) lessonsOf(ctx context.Context, courseID uint) ([]models.Lesson, error) {
	if _, err := s.course(ctx, courseID); err != nil {
		return nil, err
	}
	return s.courses.ListLessons(ctx, courseID)
}

func (s *courseStructureService) lesson(ctx context.Context, courseID, lessonID uint) (models.Lesson, error) {
	lesson, err := s.courses.GetLesson(ctx, courseID, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Lesson{}, ErrLessonNotFound
		}
		return models.Lesson{}, err
	}
	return lesson, nil
}

// record stores an audit entry; failures are logged and never fail the change.
func (s *courseStructureService) record(ctx context.Context, entry ActivityEntry) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", entry.Action).Uint("course_id", entry.CourseID).Msg("failed to record course activity")
	}
}

func (s *courseStructureService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func orderTaken(lessons []models.Lesson, order int, exceptID uint) bool {
	for _, lesson := range lessons {
		if lesson.Order == order && lesson.ID != exceptID {
			return true
		}
	}
	return false
}

func containsOrder(orders []int, order int) bool {
	for _, candidate := range orders {
		if candidate == order {
			return true
		}
	}
	return false
}

func newlyBlocked(before, after []int) []int {
	var added []int
	for _, order := range after {
		if !containsOrder(before, order) {
			added = append(added, order)
		}
	}
	return added
}

func duplicateContent(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrLessonContentExists
	}
	return err
}

func defaultWeight(points int) int {
	if points <= 0 {
		return 1
	}
	return points
}
