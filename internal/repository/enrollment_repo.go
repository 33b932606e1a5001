package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-course-api/internal/models"
)

// EnrollmentRepository stores course enrollments and their recalculation flags.
type EnrollmentRepository interface {
	Enroll(ctx context.Context, userID, courseID uint) (models.CourseEnrollment, error)
	Get(ctx context.Context, userID, courseID uint) (models.CourseEnrollment, error)
	SetNeedsRecalculation(ctx context.Context, userID, courseID uint, value bool) error
	FlagCourse(ctx context.Context, courseID uint) ([]uint, error)
	ListByUser(ctx context.Context, userID uint) ([]models.CourseEnrollment, error)
	ListUserIDs(ctx context.Context, courseID uint) ([]uint, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs a repository backed by GORM.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

// Enroll creates the enrollment flagged for recalculation, or returns the
// existing one untouched.
func (r *enrollmentRepository) Enroll(ctx context.Context, userID, courseID uint) (models.CourseEnrollment, error) {
	enrollment := models.CourseEnrollment{
		UserID:                     userID,
		CourseID:                   courseID,
		NeedsProgressRecalculation: true,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&enrollment).Error; err != nil {
		return models.CourseEnrollment{}, err
	}
	return r.Get(ctx, userID, courseID)
}

func (r *enrollmentRepository) Get(ctx context.Context, userID, courseID uint) (models.CourseEnrollment, error) {
	var enrollment models.CourseEnrollment
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil {
		return models.CourseEnrollment{}, err
	}
	return enrollment, nil
}

func (r *enrollmentRepository) SetNeedsRecalculation(ctx context.Context, userID, courseID uint, value bool) error {
	return r.db.WithContext(ctx).
		Model(&models.CourseEnrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Updates(map[string]interface{}{
			"needs_progress_recalculation": value,
			"updated_at":                   time.Now().UTC(),
		}).Error
}

// FlagCourse marks every enrollment of the course and returns the affected users.
func (r *enrollmentRepository) FlagCourse(ctx context.Context, courseID uint) ([]uint, error) {
	var userIDs []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CourseEnrollment{}).
			Where("course_id = ?", courseID).
			Updates(map[string]interface{}{
				"needs_progress_recalculation": true,
				"updated_at":                   time.Now().UTC(),
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.CourseEnrollment{}).
			Where("course_id = ?", courseID).
			Order("user_id ASC").
			Pluck("user_id", &userIDs).Error
	})
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *enrollmentRepository) ListByUser(ctx context.Context, userID uint) ([]models.CourseEnrollment, error) {
	var enrollments []models.CourseEnrollment
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("course_id ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *enrollmentRepository) ListUserIDs(ctx context.Context, courseID uint) ([]uint, error) {
	var userIDs []uint
	if err := r.db.WithContext(ctx).
		Model(&models.CourseEnrollment{}).
		Where("course_id = ?", courseID).
		Order("user_id ASC").
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, err
	}
	return userIDs, nil
}
