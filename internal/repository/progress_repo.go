package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-course-api/internal/models"
)

// LessonProgressRepository reads and upserts per-user lesson progress rows.
type LessonProgressRepository interface {
	ListForUser(ctx context.Context, userID uint, lessonIDs []uint) (map[uint]models.LessonProgress, error)
	UpsertMany(ctx context.Context, records []models.LessonProgress) error
	UpsertPercentage(ctx context.Context, record models.LessonProgress) error
}

type lessonProgressRepository struct {
	db *gorm.DB
}

// NewLessonProgressRepository constructs a repository backed by GORM.
func NewLessonProgressRepository(db *gorm.DB) LessonProgressRepository {
	return &lessonProgressRepository{db: db}
}

func (r *lessonProgressRepository) ListForUser(ctx context.Context, userID uint, lessonIDs []uint) (map[uint]models.LessonProgress, error) {
	result := make(map[uint]models.LessonProgress, len(lessonIDs))
	if len(lessonIDs) == 0 {
		return result, nil
	}

	var rows []models.LessonProgress
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.LessonID] = row
	}
	return result, nil
}

// UpsertMany writes percentage and unlock state for every record in one transaction.
func (r *lessonProgressRepository) UpsertMany(ctx context.Context, records []models.LessonProgress) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"percentage", "is_unlocked", "updated_at"}),
		}).Create(&records).Error
	})
}

// UpsertPercentage stores a new grade. The unlock state is only written when the
// row is created; existing rows keep theirs until the next full recalculation.
func (r *lessonProgressRepository) UpsertPercentage(ctx context.Context, record models.LessonProgress) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"percentage", "updated_at"}),
	}).Create(&record).Error
}
