package models

import "time"

const (
	// SubmissionStatusAccepted marks a fully correct judge verdict.
	SubmissionStatusAccepted = "AC"
	// SubmissionStatusPartial marks a verdict that earned some but not all points.
	SubmissionStatusPartial = "PA"
	// SubmissionStatusRejected marks a verdict that earned no points.
	SubmissionStatusRejected = "WA"
)

// ProblemSubmission is a judged submission reported back by the judge service.
type ProblemSubmission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index:idx_submission_user_problem" json:"user_id"`
	ProblemCode string    `gorm:"size:64;not null;index:idx_submission_user_problem" json:"problem_code"`
	Points      float64   `gorm:"not null;default:0" json:"points"`
	TotalPoints float64   `gorm:"not null;default:0" json:"total_points"`
	Status      string    `gorm:"size:8;not null" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ratio returns the fraction of the available points earned.
func (s ProblemSubmission) Ratio() float64 {
	if s.TotalPoints <= 0 {
		return 0
	}
	return s.Points / s.TotalPoints
}

// QuizAttempt is a finished attempt at a quiz.
type QuizAttempt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_attempt_user_quiz" json:"user_id"`
	QuizID    uint      `gorm:"not null;index:idx_attempt_user_quiz" json:"quiz_id"`
	Score     float64   `gorm:"not null;default:0" json:"score"`
	MaxScore  float64   `gorm:"not null;default:0" json:"max_score"`
	CreatedAt time.Time `json:"created_at"`
}

// Ratio returns the fraction of the quiz score achieved.
func (a QuizAttempt) Ratio() float64 {
	if a.MaxScore <= 0 {
		return 0
	}
	return a.Score / a.MaxScore
}
