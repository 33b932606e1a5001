package dto

import "time"

// LessonUnlockResult is the outcome of a full unlock recalculation.
type LessonUnlockResult struct {
	NewlyUnlocked []uint        `json:"newly_unlocked"`
	LockStatus    map[uint]bool `json:"lock_status"`
}

// LessonProgressItem describes one lesson of a course from the learner's view.
type LessonProgressItem struct {
	LessonID   uint    `json:"lesson_id"`
	Order      int     `json:"order"`
	Title      string  `json:"title"`
	Points     int     `json:"points"`
	Percentage float64 `json:"percentage"`
	Locked     bool    `json:"locked"`
}

// CourseProgressResponse is returned by the course progress endpoints.
type CourseProgressResponse struct {
	CourseID      uint                 `json:"course_id"`
	CourseTitle   string               `json:"course_title"`
	Percentage    float64              `json:"percentage"`
	Lessons       []LessonProgressItem `json:"lessons"`
	NewlyUnlocked []uint               `json:"newly_unlocked"`
	Recalculated  bool                 `json:"recalculated"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// CourseProgressSummary is one row of a learner's course overview.
type CourseProgressSummary struct {
	CourseID        uint    `json:"course_id"`
	CourseTitle     string  `json:"course_title"`
	Percentage      float64 `json:"percentage"`
	UnlockedLessons int     `json:"unlocked_lessons"`
	TotalLessons    int     `json:"total_lessons"`
	CacheHit        bool    `json:"cache_hit"`
}

// NewCourseProgressSummary condenses a full progress view.
func NewCourseProgressSummary(progress CourseProgressResponse, cacheHit bool) CourseProgressSummary {
	summary := CourseProgressSummary{
		CourseID:     progress.CourseID,
		CourseTitle:  progress.CourseTitle,
		Percentage:   progress.Percentage,
		TotalLessons: len(progress.Lessons),
		CacheHit:     cacheHit,
	}
	for _, lesson := range progress.Lessons {
		if !lesson.Locked {
			summary.UnlockedLessons++
		}
	}
	return summary
}
