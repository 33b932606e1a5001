package dto

// JudgeSubmissionRequest is posted by the judge once a submission is graded.
type JudgeSubmissionRequest struct {
	UserID      uint    `json:"user_id" validate:"required"`
	ProblemCode string  `json:"problem_code" validate:"required,max=64"`
	Points      float64 `json:"points" validate:"gte=0"`
	TotalPoints float64 `json:"total_points" validate:"gt=0,gtefield=Points"`
}

// QuizAttemptRequest is posted when a quiz attempt is finished.
type QuizAttemptRequest struct {
	UserID   uint    `json:"user_id" validate:"required"`
	QuizID   uint    `json:"quiz_id" validate:"required"`
	Score    float64 `json:"score" validate:"gte=0"`
	MaxScore float64 `json:"max_score" validate:"gt=0,gtefield=Score"`
}

// GradeIngestResponse reports which enrollments were flagged by a graded result.
type GradeIngestResponse struct {
	RecordID       uint    `json:"record_id"`
	Percentage     float64 `json:"percentage"`
	LessonsChecked int     `json:"lessons_checked"`
	FlaggedCourses []uint  `json:"flagged_courses"`
}
