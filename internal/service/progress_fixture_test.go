package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-course-api/internal/cache"
	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[uint][]uint
}

func (n *recordingNotifier) LessonsUnlocked(_ context.Context, userID, _ uint, lessons []models.Lesson) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.calls == nil {
		n.calls = make(map[uint][]uint)
	}
	for _, lesson := range lessons {
		n.calls[userID] = append(n.calls[userID], lesson.ID)
	}
	return nil
}

type progressFixture struct {
	db          *gorm.DB
	mini        *miniredis.Miniredis
	cache       *cache.Client
	courses     repository.CourseRepository
	progress    repository.LessonProgressRepository
	enrollments repository.EnrollmentRepository
	notifier    *recordingNotifier
	unlocks     LessonUnlockService
	trigger     RecalculationTrigger
	views       CourseProgressService
	structure   CourseStructureService
	activity    ActivityService
	ingest      GradeIngestService
	course      models.Course
	lessons     map[int]models.Lesson
}

func newProgressFixture(t *testing.T) *progressFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	progressCache := cache.New(redis.NewClient(&redis.Options{Addr: mini.Addr()}), "progress:v1", time.Minute)

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())

	f := &progressFixture{
		db:          db,
		mini:        mini,
		cache:       progressCache,
		courses:     repository.NewCourseRepository(db),
		progress:    repository.NewLessonProgressRepository(db),
		enrollments: repository.NewEnrollmentRepository(db),
		notifier:    &recordingNotifier{},
		lessons:     make(map[int]models.Lesson),
	}
	prerequisites := repository.NewPrerequisiteRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	grades := NewGradeSource(gradeRepo)

	f.unlocks = NewLessonUnlockService(f.courses, prerequisites, f.progress, grades, f.notifier, logger)
	f.trigger = NewRecalculationTrigger(f.courses, prerequisites, f.enrollments, f.progress, grades, f.unlocks, progressCache, logger)
	f.views = NewCourseProgressService(f.courses, f.enrollments, f.progress, f.trigger, progressCache, logger)
	f.activity = NewActivityService(repository.NewActivityLogRepository(db), logger)
	f.structure = NewCourseStructureService(f.courses, prerequisites, f.enrollments, f.trigger, f.activity, validate, logger)
	f.ingest = NewGradeIngestService(gradeRepo, f.trigger, validate, logger)

	f.course = models.Course{Slug: "algorithms", Title: "Algorithms"}
	require.NoError(t, f.courses.CreateCourse(context.Background(), &f.course))
	return f
}

// addLesson creates a lesson worth 100 points graded by a single problem named p<order>.
func (f *progressFixture) addLesson(t *testing.T, order int) models.Lesson {
	t.Helper()
	lesson := models.Lesson{CourseID: f.course.ID, Order: order, Title: fmt.Sprintf("Lesson %d", order), Points: 100}
	require.NoError(t, f.db.Create(&lesson).Error)
	require.NoError(t, f.db.Create(&models.LessonProblem{LessonID: lesson.ID, ProblemCode: problemCode(order), Points: 1}).Error)
	f.lessons[order] = lesson
	return lesson
}

func (f *progressFixture) addEdge(t *testing.T, source, target int, required float64) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.LessonPrerequisite{
		CourseID:           f.course.ID,
		SourceOrder:        source,
		TargetOrder:        target,
		RequiredPercentage: required,
	}).Error)
}

func (f *progressFixture) enroll(t *testing.T, userID uint) {
	t.Helper()
	_, err := f.enrollments.Enroll(context.Background(), userID, f.course.ID)
	require.NoError(t, err)
}

// grade stores a judged submission for the lesson's problem out of 100 points.
func (f *progressFixture) grade(t *testing.T, userID uint, order int, points float64) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.ProblemSubmission{
		UserID:      userID,
		ProblemCode: problemCode(order),
		Points:      points,
		TotalPoints: 100,
		Status:      submissionStatus(points / 100),
	}).Error)
}

func (f *progressFixture) needsRecalculation(t *testing.T, userID uint) bool {
	t.Helper()
	enrollment, err := f.enrollments.Get(context.Background(), userID, f.course.ID)
	require.NoError(t, err)
	return enrollment.NeedsProgressRecalculation
}

func (f *progressFixture) records(t *testing.T, userID uint) map[uint]models.LessonProgress {
	t.Helper()
	ids := make([]uint, 0, len(f.lessons))
	for _, lesson := range f.lessons {
		ids = append(ids, lesson.ID)
	}
	rows, err := f.progress.ListForUser(context.Background(), userID, ids)
	require.NoError(t, err)
	return rows
}

func (f *progressFixture) locked(t *testing.T, userID uint, order int) bool {
	t.Helper()
	record, ok := f.records(t, userID)[f.lessons[order].ID]
	require.True(t, ok, "missing progress for lesson %d", order)
	return !record.IsUnlocked
}

func problemCode(order int) string {
	return fmt.Sprintf("p%d", order)
}

func (f *progressFixture) ingestLessonGrade(ctx context.Context, userID uint, order int) (bool, error) {
	return f.trigger.MarkLessonGradeDirty(ctx, userID, f.lessons[order].ID)
}
