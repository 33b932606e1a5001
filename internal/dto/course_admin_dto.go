package dto

import (
	"time"

	"github.com/noah-isme/gema-course-api/internal/models"
)

// LessonCreateRequest is the payload for adding a lesson to a course.
type LessonCreateRequest struct {
	Order       int    `json:"order" validate:"gte=0"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=10000"`
	Points      int    `json:"points" validate:"gte=0,lte=100000"`
}

// LessonUpdateRequest changes selected fields of a lesson.
type LessonUpdateRequest struct {
	Order       *int    `json:"order" validate:"omitempty,gte=0"`
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Points      *int    `json:"points" validate:"omitempty,gte=1,lte=100000"`
}

// LessonProblemRequest links a judge problem to a lesson.
type LessonProblemRequest struct {
	ProblemCode string `json:"problem_code" validate:"required,max=64"`
	Points      int    `json:"points" validate:"gte=0,lte=100000"`
}

// LessonQuizRequest links a quiz to a lesson.
type LessonQuizRequest struct {
	QuizID uint `json:"quiz_id" validate:"required"`
	Points int  `json:"points" validate:"gte=0,lte=100000"`
}

// PrerequisiteCreateRequest adds a prerequisite edge between two lessons.
type PrerequisiteCreateRequest struct {
	SourceOrder        int     `json:"source_order" validate:"gte=0"`
	TargetOrder        int     `json:"target_order" validate:"gte=0,nefield=SourceOrder"`
	RequiredPercentage float64 `json:"required_percentage" validate:"gte=0,lte=100"`
}

// EnrollmentRequest enrolls a user into a course.
type EnrollmentRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// LessonResponse describes a lesson returned to course staff.
type LessonResponse struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"course_id"`
	Order       int       `json:"order"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Points      int       `json:"points"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewLessonResponse converts a lesson model to DTO.
func NewLessonResponse(model models.Lesson) LessonResponse {
	return LessonResponse{
		ID:          model.ID,
		CourseID:    model.CourseID,
		Order:       model.Order,
		Title:       model.Title,
		Description: model.Description,
		Points:      model.Points,
		UpdatedAt:   model.UpdatedAt,
	}
}

// PrerequisiteResponse describes a stored prerequisite edge.
type PrerequisiteResponse struct {
	ID                 uint    `json:"id"`
	CourseID           uint    `json:"course_id"`
	SourceOrder        int     `json:"source_order"`
	TargetOrder        int     `json:"target_order"`
	RequiredPercentage float64 `json:"required_percentage"`
}

// NewPrerequisiteResponse converts a prerequisite model to DTO.
func NewPrerequisiteResponse(model models.LessonPrerequisite) PrerequisiteResponse {
	return PrerequisiteResponse{
		ID:                 model.ID,
		CourseID:           model.CourseID,
		SourceOrder:        model.SourceOrder,
		TargetOrder:        model.TargetOrder,
		RequiredPercentage: model.RequiredPercentage,
	}
}

// EnrollmentResponse describes a course enrollment.
type EnrollmentResponse struct {
	UserID                     uint `json:"user_id"`
	CourseID                   uint `json:"course_id"`
	NeedsProgressRecalculation bool `json:"needs_progress_recalculation"`
}
