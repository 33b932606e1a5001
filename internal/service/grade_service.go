package service

import (
	"context"

	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/progress"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

// GradeSource computes a user's percentage for lessons from their best judged
// results. Lessons must be loaded with their problems and quizzes.
type GradeSource interface {
	CalculateUserLessonGrades(ctx context.Context, userID uint, lessons []models.Lesson) (map[int]float64, error)
}

type gradeSource struct {
	grades repository.GradeRepository
}

// NewGradeSource constructs a grade source backed by stored submissions and quiz attempts.
func NewGradeSource(grades repository.GradeRepository) GradeSource {
	return &gradeSource{grades: grades}
}

func (g *gradeSource) CalculateUserLessonGrades(ctx context.Context, userID uint, lessons []models.Lesson) (map[int]float64, error) {
	result := make(map[int]float64, len(lessons))
	if len(lessons) == 0 {
		return result, nil
	}

	codes := make([]string, 0)
	quizIDs := make([]uint, 0)
	for _, lesson := range lessons {
		for _, problem := range lesson.Problems {
			codes = append(codes, problem.ProblemCode)
		}
		for _, quiz := range lesson.Quizzes {
			quizIDs = append(quizIDs, quiz.QuizID)
		}
	}

	problemRatios, err := g.grades.BestProblemRatios(ctx, userID, uniqueStrings(codes))
	if err != nil {
		return nil, err
	}
	quizRatios, err := g.grades.BestQuizRatios(ctx, userID, uniqueUints(quizIDs))
	if err != nil {
		return nil, err
	}

	for _, lesson := range lessons {
		items := make([]progress.WeightedItem, 0, len(lesson.Problems)+len(lesson.Quizzes))
		for _, problem := range lesson.Problems {
			items = append(items, progress.WeightedItem{
				Weight:    float64(problem.Points),
				BestRatio: problemRatios[problem.ProblemCode],
			})
		}
		for _, quiz := range lesson.Quizzes {
			items = append(items, progress.WeightedItem{
				Weight:    float64(quiz.Points),
				BestRatio: quizRatios[quiz.QuizID],
			})
		}
		result[lesson.Order] = progress.WeightedPercentage(items)
	}

	return result, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func uniqueUints(values []uint) []uint {
	seen := make(map[uint]struct{}, len(values))
	out := make([]uint, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
