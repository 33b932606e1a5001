package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Course{},
		&Lesson{},
		&LessonProblem{},
		&LessonQuiz{},
		&LessonPrerequisite{},
		&CourseEnrollment{},
		&LessonProgress{},
		&ProblemSubmission{},
		&QuizAttempt{},
		&Notification{},
		&ActivityLog{},
	}
}
