package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-course-api/internal/models"
)

// CourseRepository exposes persistence helpers for courses, lessons and the
// problems and quizzes graded within each lesson.
type CourseRepository interface {
	GetCourse(ctx context.Context, id uint) (models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	ListLessons(ctx context.Context, courseID uint) ([]models.Lesson, error)
	GetLesson(ctx context.Context, courseID, lessonID uint) (models.Lesson, error)
	FindLesson(ctx context.Context, lessonID uint) (models.Lesson, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	UpdateLesson(ctx context.Context, lesson *models.Lesson) error
	DeleteLesson(ctx context.Context, lesson models.Lesson) error
	AddLessonProblem(ctx context.Context, link *models.LessonProblem) error
	AddLessonQuiz(ctx context.Context, link *models.LessonQuiz) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs a repository backed by GORM.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetCourse(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) ListLessons(ctx context.Context, courseID uint) ([]models.Lesson, error) {
	var lessons []models.Lesson
	if err := r.db.WithContext(ctx).
		Preload("Problems").
		Preload("Quizzes").
		Where("course_id = ?", courseID).
		Order("lesson_order ASC").
		Find(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *courseRepository) GetLesson(ctx context.Context, courseID, lessonID uint) (models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).
		Preload("Problems").
		Preload("Quizzes").
		Where("course_id = ?", courseID).
		First(&lesson, lessonID).Error; err != nil {
		return models.Lesson{}, err
	}
	return lesson, nil
}

func (r *courseRepository) FindLesson(ctx context.Context, lessonID uint) (models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).
		Preload("Problems").
		Preload("Quizzes").
		First(&lesson, lessonID).Error; err != nil {
		return models.Lesson{}, err
	}
	return lesson, nil
}

func (r *courseRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

func (r *courseRepository) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	return r.db.WithContext(ctx).
		Model(lesson).
		Select("lesson_order", "title", "description", "points", "updated_at").
		Updates(lesson).Error
}

// DeleteLesson removes the lesson with its links and progress rows. Prerequisite
// edges naming the lesson's order are kept and become orphaned.
func (r *courseRepository) DeleteLesson(ctx context.Context, lesson models.Lesson) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.LessonProblem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.LessonQuiz{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.LessonProgress{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Lesson{}, lesson.ID).Error
	})
}

func (r *courseRepository) AddLessonProblem(ctx context.Context, link *models.LessonProblem) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *courseRepository) AddLessonQuiz(ctx context.Context, link *models.LessonQuiz) error {
	return r.db.WithContext(ctx).Create(link).Error
}
