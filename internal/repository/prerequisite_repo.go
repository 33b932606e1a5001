package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-course-api/internal/models"
)

// PrerequisiteRepository persists lesson prerequisite edges.
type PrerequisiteRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.LessonPrerequisite, error)
	Create(ctx context.Context, edge *models.LessonPrerequisite) error
	Delete(ctx context.Context, courseID, id uint) error
}

type prerequisiteRepository struct {
	db *gorm.DB
}

// NewPrerequisiteRepository constructs a repository backed by GORM.
func NewPrerequisiteRepository(db *gorm.DB) PrerequisiteRepository {
	return &prerequisiteRepository{db: db}
}

func (r *prerequisiteRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.LessonPrerequisite, error) {
	var edges []models.LessonPrerequisite
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("source_order ASC, target_order ASC").
		Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *prerequisiteRepository) Create(ctx context.Context, edge *models.LessonPrerequisite) error {
	return r.db.WithContext(ctx).Create(edge).Error
}

func (r *prerequisiteRepository) Delete(ctx context.Context, courseID, id uint) error {
	result := r.db.WithContext(ctx).Where("course_id = ?", courseID).Delete(&models.LessonPrerequisite{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
