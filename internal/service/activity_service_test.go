package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, ActivityEntry) error {
	return errors.New("audit store down")
}

func TestStructureChangesAreAudited(t *testing.T) {
	f := newProgressFixture(t)
	f.addLesson(t, 1)
	f.addLesson(t, 2)
	ctx := ContextWithActor(context.Background(), ActivityActor{ID: 42, Role: "Teacher"})

	edge, err := f.structure.AddPrerequisite(ctx, f.course.ID, dto.PrerequisiteCreateRequest{SourceOrder: 1, TargetOrder: 2, RequiredPercentage: 70})
	require.NoError(t, err)
	require.NoError(t, f.structure.RemovePrerequisite(ctx, f.course.ID, edge.ID))

	result, err := f.activity.List(context.Background(), f.course.ID, dto.ActivityListRequest{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.Equal(t, int64(2), result.Pagination.TotalItems)
	require.Equal(t, 20, result.Pagination.PageSize)

	actions := []string{result.Items[0].Action, result.Items[1].Action}
	require.ElementsMatch(t, []string{models.ActivityPrerequisiteAdded, models.ActivityPrerequisiteRemoved}, actions)
	for _, item := range result.Items {
		require.Equal(t, uint(42), item.ActorID)
		require.Equal(t, "teacher", item.ActorRole)
		require.Equal(t, "prerequisite", item.EntityType)
		require.NotNil(t, item.EntityID)
		require.Equal(t, edge.ID, *item.EntityID)
	}
}

func TestActivityListFiltersAndPaginates(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	for order := 1; order <= 3; order++ {
		_, err := f.structure.CreateLesson(ctx, f.course.ID, dto.LessonCreateRequest{Order: order, Title: "Lesson"})
		require.NoError(t, err)
	}
	_, err := f.structure.Enroll(ctx, f.course.ID, dto.EnrollmentRequest{UserID: 7})
	require.NoError(t, err)

	created, err := f.activity.List(ctx, f.course.ID, dto.ActivityListRequest{Action: models.ActivityLessonCreated, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, created.Items, 1)
	require.Equal(t, int64(3), created.Pagination.TotalItems)
	require.Equal(t, 2, created.Pagination.TotalPages)

	enrolled, err := f.activity.List(ctx, f.course.ID, dto.ActivityListRequest{Action: models.ActivityUserEnrolled})
	require.NoError(t, err)
	require.Len(t, enrolled.Items, 1)
	require.Equal(t, "system", enrolled.Items[0].ActorRole)
	require.EqualValues(t, 7, enrolled.Items[0].Metadata["user_id"])

	other, err := f.activity.List(ctx, f.course.ID+1, dto.ActivityListRequest{})
	require.NoError(t, err)
	require.Empty(t, other.Items)
}

func TestAuditFailureDoesNotFailStructureChange(t *testing.T) {
	f := newProgressFixture(t)
	structure := NewCourseStructureService(
		f.courses,
		repository.NewPrerequisiteRepository(f.db),
		f.enrollments,
		f.trigger,
		failingRecorder{},
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)

	lesson, err := structure.CreateLesson(context.Background(), f.course.ID, dto.LessonCreateRequest{Order: 1, Title: "Intro"})
	require.NoError(t, err)
	require.NotZero(t, lesson.ID)
}
