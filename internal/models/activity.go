package models

import (
	"time"

	"gorm.io/datatypes"
)

// Course activity actions.
const (
	ActivityLessonCreated       = "lesson.created"
	ActivityLessonUpdated       = "lesson.updated"
	ActivityLessonDeleted       = "lesson.deleted"
	ActivityProblemLinked       = "lesson.problem_linked"
	ActivityQuizLinked          = "lesson.quiz_linked"
	ActivityPrerequisiteAdded   = "prerequisite.added"
	ActivityPrerequisiteRemoved = "prerequisite.removed"
	ActivityUserEnrolled        = "enrollment.created"
)

// ActivityLog is an audit entry for a change made to a course by staff.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	CourseID   uint              `gorm:"not null;index" json:"course_id"`
	ActorID    uint              `gorm:"not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
