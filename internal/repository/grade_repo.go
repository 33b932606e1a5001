package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-course-api/internal/models"
)

// LessonRef points at a lesson of a course the user is enrolled in.
type LessonRef struct {
	CourseID uint
	LessonID uint
}

// GradeRepository exposes judged results and the lessons they feed into.
type GradeRepository interface {
	CreateSubmission(ctx context.Context, submission *models.ProblemSubmission) error
	CreateQuizAttempt(ctx context.Context, attempt *models.QuizAttempt) error
	BestProblemRatios(ctx context.Context, userID uint, problemCodes []string) (map[string]float64, error)
	BestQuizRatios(ctx context.Context, userID uint, quizIDs []uint) (map[uint]float64, error)
	EnrolledLessonsForProblem(ctx context.Context, userID uint, problemCode string) ([]LessonRef, error)
	EnrolledLessonsForQuiz(ctx context.Context, userID uint, quizID uint) ([]LessonRef, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository constructs a repository backed by GORM.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) CreateSubmission(ctx context.Context, submission *models.ProblemSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *gradeRepository) CreateQuizAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *gradeRepository) BestProblemRatios(ctx context.Context, userID uint, problemCodes []string) (map[string]float64, error) {
	result := make(map[string]float64, len(problemCodes))
	if len(problemCodes) == 0 {
		return result, nil
	}

	var rows []struct {
		ProblemCode string
		Ratio       float64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ProblemSubmission{}).
		Select("problem_code, MAX(CASE WHEN total_points > 0 THEN points * 1.0 / total_points ELSE 0 END) AS ratio").
		Where("user_id = ? AND problem_code IN ?", userID, problemCodes).
		Group("problem_code").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ProblemCode] = row.Ratio
	}
	return result, nil
}

func (r *gradeRepository) BestQuizRatios(ctx context.Context, userID uint, quizIDs []uint) (map[uint]float64, error) {
	result := make(map[uint]float64, len(quizIDs))
	if len(quizIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		QuizID uint
		Ratio  float64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Select("quiz_id, MAX(CASE WHEN max_score > 0 THEN score * 1.0 / max_score ELSE 0 END) AS ratio").
		Where("user_id = ? AND quiz_id IN ?", userID, quizIDs).
		Group("quiz_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.QuizID] = row.Ratio
	}
	return result, nil
}

func (r *gradeRepository) EnrolledLessonsForProblem(ctx context.Context, userID uint, problemCode string) ([]LessonRef, error) {
	var refs []LessonRef
	if err := r.db.WithContext(ctx).
		Table("lesson_problems").
		Select("lessons.course_id AS course_id, lessons.id AS lesson_id").
		Joins("JOIN lessons ON lessons.id = lesson_problems.lesson_id").
		Joins("JOIN course_enrollments ON course_enrollments.course_id = lessons.course_id AND course_enrollments.user_id = ?", userID).
		Where("lesson_problems.problem_code = ?", problemCode).
		Order("lessons.course_id ASC, lessons.lesson_order ASC").
		Scan(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *gradeRepository) EnrolledLessonsForQuiz(ctx context.Context, userID uint, quizID uint) ([]LessonRef, error) {
	var refs []LessonRef
	if err := r.db.WithContext(ctx).
		Table("lesson_quizzes").
		Select("lessons.course_id AS course_id, lessons.id AS lesson_id").
		Joins("JOIN lessons ON lessons.id = lesson_quizzes.lesson_id").
		Joins("JOIN course_enrollments ON course_enrollments.course_id = lessons.course_id AND course_enrollments.user_id = ?", userID).
		Where("lesson_quizzes.quiz_id = ?", quizID).
		Order("lessons.course_id ASC, lessons.lesson_order ASC").
		Scan(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}
