package db

import (
	"context"

	"github.com/terraincognita07/mealplans/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MirrorRepository struct {
	database *gorm.DB
}

func NewMirrorRepository(database *gorm.DB) *MirrorRepository {
	return &MirrorRepository{database: database}
}

// Upsert inserts the mirror or rewrites the existing row for the same
// original plan in place.
func (repo *MirrorRepository) Upsert(ctx context.Context, mirror *models.MirroredPlan) error {
	return repo.database.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "original_plan_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"client_code",
			"name",
			"content",
			"daily_target_calories",
			"macro_targets",
			"active_days",
			"active_from",
			"active_until",
			"synced_at",
		}),
	}).Create(mirror).Error
}

func (repo *MirrorRepository) DeleteByOriginalID(ctx context.Context, planID uint) error {
	return repo.database.WithContext(ctx).Where("original_plan_id = ?", planID).Delete(&models.MirroredPlan{}).Error
}

func (repo *MirrorRepository) FindByOriginalID(ctx context.Context, planID uint) (models.MirroredPlan, bool, error) {
	mirror := models.MirroredPlan{}
	result := repo.database.WithContext(ctx).Where("original_plan_id = ?", planID).Limit(1).Find(&mirror)
	if result.Error != nil {
		return models.MirroredPlan{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.MirroredPlan{}, false, nil
	}
	return mirror, true, nil
}

func (repo *MirrorRepository) ListByClient(ctx context.Context, clientCode string) ([]models.MirroredPlan, error) {
	mirrors := make([]models.MirroredPlan, 0)
	if err := repo.database.WithContext(ctx).
		Where("client_code = ?", clientCode).
		Order("active_from ASC, id ASC").
		Find(&mirrors).Error; err != nil {
		return nil, err
	}
	return mirrors, nil
}
