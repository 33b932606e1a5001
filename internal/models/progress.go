package models

import "time"

// LessonProgress stores the last computed grade and reachability of a lesson for a user.
type LessonProgress struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_progress_user_lesson" json:"user_id"`
	LessonID   uint      `gorm:"not null;uniqueIndex:idx_progress_user_lesson;index" json:"lesson_id"`
	Percentage float64   `gorm:"not null;default:0" json:"percentage"`
	IsUnlocked bool      `gorm:"not null" json:"is_unlocked"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Lesson     Lesson    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
