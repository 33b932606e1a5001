package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
)

func TestRecordSubmissionFlagsEnrolledCourses(t *testing.T) {
	f := newProgressFixture(t)
	f.addLesson(t, 1)
	f.addLesson(t, 2)
	f.addEdge(t, 1, 2, 70)
	f.enroll(t, 3)
	ctx := context.Background()
	_, _, err := f.trigger.EnsureFresh(ctx, 3, f.course.ID, false)
	require.NoError(t, err)

	resp, err := f.ingest.RecordSubmission(ctx, dto.JudgeSubmissionRequest{
		UserID:      3,
		ProblemCode: problemCode(1),
		Points:      80,
		TotalPoints: 100,
	})
	require.NoError(t, err)
	require.NotZero(t, resp.RecordID)
	require.InDelta(t, 80.0, resp.Percentage, 0.001)
	require.Equal(t, 1, resp.LessonsChecked)
	require.Equal(t, []uint{f.course.ID}, resp.FlaggedCourses)
	require.True(t, f.needsRecalculation(t, 3))

	var stored models.ProblemSubmission
	require.NoError(t, f.db.First(&stored, resp.RecordID).Error)
	require.Equal(t, models.SubmissionStatusPartial, stored.Status)

	view, _, err := f.views.GetProgress(ctx, 3, f.course.ID)
	require.NoError(t, err)
	require.False(t, view.Lessons[1].Locked)
}

func TestRecordSubmissionWithoutEnrollmentOnlyStores(t *testing.T) {
	f := newProgressFixture(t)
	f.addLesson(t, 1)

	resp, err := f.ingest.RecordSubmission(context.Background(), dto.JudgeSubmissionRequest{
		UserID:      11,
		ProblemCode: problemCode(1),
		Points:      100,
		TotalPoints: 100,
	})
	require.NoError(t, err)
	require.NotZero(t, resp.RecordID)
	require.Zero(t, resp.LessonsChecked)
	require.Empty(t, resp.FlaggedCourses)
}

func TestRecordSubmissionWorseResultDoesNotFlag(t *testing.T) {
	f := newProgressFixture(t)
	f.addLesson(t, 1)
	f.enroll(t, 3)
	ctx := context.Background()

	_, err := f.ingest.RecordSubmission(ctx, dto.JudgeSubmissionRequest{UserID: 3, ProblemCode: problemCode(1), Points: 90, TotalPoints: 100})
	require.NoError(t, err)
	_, _, err = f.trigger.EnsureFresh(ctx, 3, f.course.ID, false)
	require.NoError(t, err)

	resp, err := f.ingest.RecordSubmission(ctx, dto.JudgeSubmissionRequest{UserID: 3, ProblemCode: problemCode(1), Points: 10, TotalPoints: 100})
	require.NoError(t, err)
	require.Empty(t, resp.FlaggedCourses)
	require.False(t, f.needsRecalculation(t, 3))
}

func TestRecordSubmissionValidation(t *testing.T) {
	f := newProgressFixture(t)

	_, err := f.ingest.RecordSubmission(context.Background(), dto.JudgeSubmissionRequest{
		UserID:      1,
		ProblemCode: "p1",
		Points:      120,
		TotalPoints: 100,
	})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestRecordQuizAttemptCombinesWithProblems(t *testing.T) {
	f := newProgressFixture(t)
	lesson := f.addLesson(t, 1)
	f.addLesson(t, 2)
	f.addEdge(t, 1, 2, 60)
	require.NoError(t, f.db.Create(&models.LessonQuiz{LessonID: lesson.ID, QuizID: 5, Points: 3}).Error)
	f.enroll(t, 3)
	ctx := context.Background()

	f.grade(t, 3, 1, 20)
	resp, err := f.ingest.RecordQuizAttempt(ctx, dto.QuizAttemptRequest{UserID: 3, QuizID: 5, Score: 8, MaxScore: 10})
	require.NoError(t, err)
	require.InDelta(t, 80.0, resp.Percentage, 0.001)
	require.Equal(t, []uint{f.course.ID}, resp.FlaggedCourses)

	// (1*0.2 + 3*0.8) / 4 = 65%
	view, _, err := f.views.GetProgress(ctx, 3, f.course.ID)
	require.NoError(t, err)
	require.InDelta(t, 65, view.Lessons[0].Percentage, 0.001)
	require.False(t, view.Lessons[1].Locked)
}
