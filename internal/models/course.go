package models

import "time"

// Course groups an ordered set of lessons that students enroll into.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"size:160;uniqueIndex" json:"slug"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	IsPublished bool      `gorm:"not null;default:false" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Lessons     []Lesson  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"lessons,omitempty"`
}

// CourseEnrollment links a user to a course and tracks whether the user's lesson
// progress must be recomputed before it is shown again.
type CourseEnrollment struct {
	ID                         uint      `gorm:"primaryKey" json:"id"`
	UserID                     uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID                   uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course;index" json:"course_id"`
	NeedsProgressRecalculation bool      `gorm:"not null" json:"needs_progress_recalculation"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
	Course                     Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
