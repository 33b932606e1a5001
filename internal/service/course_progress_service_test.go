package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
)

func TestGetProgressRecomputesThenServesFromCache(t *testing.T) {
	f := newProgressFixture(t)
	for order := 1; order <= 3; order++ {
		f.addLesson(t, order)
	}
	f.addEdge(t, 1, 2, 70)
	f.addEdge(t, 2, 3, 70)
	f.enroll(t, 1)
	f.grade(t, 1, 1, 80)
	ctx := context.Background()

	view, cached, err := f.views.GetProgress(ctx, 1, f.course.ID)
	require.NoError(t, err)
	require.False(t, cached)
	require.True(t, view.Recalculated)
	require.Equal(t, []uint{f.lessons[2].ID}, view.NewlyUnlocked)
	require.Equal(t, "Algorithms", view.CourseTitle)
	require.Len(t, view.Lessons, 3)
	require.Equal(t, 1, view.Lessons[0].Order)
	require.False(t, view.Lessons[1].Locked)
	require.True(t, view.Lessons[2].Locked)
	require.InDelta(t, 80.0/3, view.Percentage, 0.001)

	key := fmt.Sprintf("progress:v1:course:%d:user:1", f.course.ID)
	require.True(t, f.mini.Exists(key))

	again, cached, err := f.views.GetProgress(ctx, 1, f.course.ID)
	require.NoError(t, err)
	require.True(t, cached)
	require.False(t, again.Recalculated)
	require.Empty(t, again.NewlyUnlocked)
	require.Equal(t, view.Lessons, again.Lessons)
}

func TestGetProgressDropsCacheWhenGradeChanges(t *testing.T) {
	f := newProgressFixture(t)
	f.addLesson(t, 1)
	f.addLesson(t, 2)
	f.addEdge(t, 1, 2, 70)
	f.enroll(t, 1)
	ctx := context.Background()

	view, _, err := f.views.GetProgress(ctx, 1, f.course.ID)
	require.NoError(t, err)
	require.True(t, view.Lessons[1].Locked)

	f.grade(t, 1, 1, 100)
	_, err = f.ingestLessonGrade(ctx, 1, 1)
	require.NoError(t, err)
	require.False(t, f.mini.Exists(fmt.Sprintf("progress:v1:course:%d:user:1", f.course.ID)))

	view, cached, err := f.views.GetProgress(ctx, 1, f.course.ID)
	require.NoError(t, err)
	require.False(t, cached)
	require.False(t, view.Lessons[1].Locked)
	require.InDelta(t, 50, view.Percentage, 0.001)
}

// racingTrigger lets a grade land between the recalculation and the cache write.
type racingTrigger struct {
	RecalculationTrigger
	afterFresh func()
}

func (r *racingTrigger) EnsureFresh(ctx context.Context, userID, courseID uint, force bool) (dto.LessonUnlockResult, bool, error) {
	result, recalculated, err := r.RecalculationTrigger.EnsureFresh(ctx, userID, courseID, force)
	if r.afterFresh != nil {
		hook := r.afterFresh
		r.afterFresh = nil
		hook()
	}
	return result, recalculated, err
}

func TestGetProgressIgnoresViewCachedBeforeConcurrentGrade(t *testing.T) {
	f := newProgressFixture(t)
	f.addLesson(t, 1)
	f.addLesson(t, 2)
	f.addEdge(t, 1, 2, 70)
	f.enroll(t, 1)
	ctx := context.Background()

	racing := &racingTrigger{RecalculationTrigger: f.trigger}
	racing.afterFresh = func() {
		f.grade(t, 1, 1, 100)
		_, err := f.ingestLessonGrade(ctx, 1, 1)
		require.NoError(t, err)
	}
	views := NewCourseProgressService(f.courses, f.enrollments, f.progress, racing, f.cache, zerolog.Nop())

	view, cached, err := views.GetProgress(ctx, 1, f.course.ID)
	require.NoError(t, err)
	require.False(t, cached)
	require.True(t, view.Lessons[1].Locked)
	require.True(t, f.mini.Exists(fmt.Sprintf("progress:v1:course:%d:user:1", f.course.ID)))
	require.True(t, f.needsRecalculation(t, 1))

	view, cached, err = views.GetProgress(ctx, 1, f.course.ID)
	require.NoError(t, err)
	require.False(t, cached)
	require.True(t, view.Recalculated)
	require.False(t, view.Lessons[1].Locked)
	require.Equal(t, []uint{f.lessons[2].ID}, view.NewlyUnlocked)
}

func TestRefreshForcesRecalculation(t *testing.T) {
	f := newProgressFixture(t)
	f.addLesson(t, 1)
	f.enroll(t, 1)
	ctx := context.Background()

	_, _, err := f.views.GetProgress(ctx, 1, f.course.ID)
	require.NoError(t, err)

	view, err := f.views.Refresh(ctx, 1, f.course.ID)
	require.NoError(t, err)
	require.True(t, view.Recalculated)
	require.NotNil(t, view.NewlyUnlocked)
}

func TestGetProgressWithoutEnrollment(t *testing.T) {
	f := newProgressFixture(t)
	f.addLesson(t, 1)

	_, _, err := f.views.GetProgress(context.Background(), 1, f.course.ID)
	require.ErrorIs(t, err, ErrNotEnrolled)
}

func TestGetProgressWithoutCache(t *testing.T) {
	f := newProgressFixture(t)
	f.addLesson(t, 1)
	f.enroll(t, 1)
	views := NewCourseProgressService(f.courses, f.enrollments, f.progress, f.trigger, nil, zerolog.Nop())

	_, cached, err := views.GetProgress(context.Background(), 1, f.course.ID)
	require.NoError(t, err)
	require.False(t, cached)

	_, cached, err = views.GetProgress(context.Background(), 1, f.course.ID)
	require.NoError(t, err)
	require.False(t, cached)
}

func TestListProgressMixesCachedAndFreshViews(t *testing.T) {
	f := newProgressFixture(t)
	f.addLesson(t, 1)
	f.addLesson(t, 2)
	f.addEdge(t, 1, 2, 70)
	f.enroll(t, 1)
	ctx := context.Background()

	_, _, err := f.views.GetProgress(ctx, 1, f.course.ID)
	require.NoError(t, err)

	other := models.Course{Slug: "graphs", Title: "Graphs"}
	require.NoError(t, f.courses.CreateCourse(ctx, &other))
	require.NoError(t, f.db.Create(&models.Lesson{CourseID: other.ID, Order: 1, Title: "BFS", Points: 10}).Error)
	_, err = f.enrollments.Enroll(ctx, 1, other.ID)
	require.NoError(t, err)

	summaries, err := f.views.ListProgress(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	require.Equal(t, f.course.ID, summaries[0].CourseID)
	require.True(t, summaries[0].CacheHit)
	require.Equal(t, 2, summaries[0].TotalLessons)
	require.Equal(t, 1, summaries[0].UnlockedLessons)

	require.Equal(t, other.ID, summaries[1].CourseID)
	require.False(t, summaries[1].CacheHit)
	require.Equal(t, "Graphs", summaries[1].CourseTitle)
	require.Equal(t, 1, summaries[1].UnlockedLessons)
	enrollment, err := f.enrollments.Get(ctx, 1, other.ID)
	require.NoError(t, err)
	require.False(t, enrollment.NeedsProgressRecalculation)
}

func TestListProgressWithoutEnrollments(t *testing.T) {
	f := newProgressFixture(t)

	summaries, err := f.views.ListProgress(context.Background(), 9)
	require.NoError(t, err)
	require.Empty(t, summaries)
}
