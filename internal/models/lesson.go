package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultLessonPoints is applied to lessons created without an explicit weight.
const DefaultLessonPoints = 1

// Lesson is a gradable unit within a course. Order identifies the lesson inside
// its course and is what prerequisite edges refer to.
type Lesson struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CourseID    uint            `gorm:"not null;uniqueIndex:idx_lesson_course_order" json:"course_id"`
	Order       int             `gorm:"column:lesson_order;not null;uniqueIndex:idx_lesson_course_order" json:"order"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Points      int             `gorm:"not null;default:1" json:"points"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Problems    []LessonProblem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"problems,omitempty"`
	Quizzes     []LessonQuiz    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"quizzes,omitempty"`
}

// BeforeSave normalises lesson weights.
func (l *Lesson) BeforeSave(tx *gorm.DB) error {
	if l.Points <= 0 {
		l.Points = DefaultLessonPoints
	}
	return nil
}

// LessonProblem attaches a judge problem to a lesson with a weight.
type LessonProblem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	LessonID    uint   `gorm:"not null;uniqueIndex:idx_lesson_problem" json:"lesson_id"`
	ProblemCode string `gorm:"size:64;not null;uniqueIndex:idx_lesson_problem;index" json:"problem_code"`
	Points      int    `gorm:"not null;default:1" json:"points"`
}

// LessonQuiz attaches a quiz to a lesson with a weight.
type LessonQuiz struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	LessonID uint `gorm:"not null;uniqueIndex:idx_lesson_quiz" json:"lesson_id"`
	QuizID   uint `gorm:"not null;uniqueIndex:idx_lesson_quiz;index" json:"quiz_id"`
	Points   int  `gorm:"not null;default:1" json:"points"`
}
