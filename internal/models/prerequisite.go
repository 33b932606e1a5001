package models

import "time"

// LessonPrerequisite requires the lesson at SourceOrder to reach RequiredPercentage
// before the lesson at TargetOrder unlocks. Orders are not foreign keys: an edge may
// outlive the lessons it names.
type LessonPrerequisite struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	CourseID           uint      `gorm:"not null;uniqueIndex:idx_prerequisite_edge;index" json:"course_id"`
	SourceOrder        int       `gorm:"not null;uniqueIndex:idx_prerequisite_edge" json:"source_order"`
	TargetOrder        int       `gorm:"not null;uniqueIndex:idx_prerequisite_edge" json:"target_order"`
	RequiredPercentage float64   `gorm:"not null;default:70" json:"required_percentage"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
