package db

import (
	"context"

	"github.com/terraincognita07/mealplans/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationLogRepository struct {
	database *gorm.DB
}

func NewNotificationLogRepository(database *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{database: database}
}

func (repo *NotificationLogRepository) ExistsByDedupeKey(ctx context.Context, dedupeKey string) (bool, error) {
	var matched int64
	if err := repo.database.WithContext(ctx).
		Model(&models.NotificationLog{}).
		Where("dedupe_key = ?", dedupeKey).
		Count(&matched).Error; err != nil {
		return false, err
	}
	return matched > 0, nil
}

// Record stores entry; a second record for the same dedupe key is a no-op.
func (repo *NotificationLogRepository) Record(ctx context.Context, entry *models.NotificationLog) error {
	return repo.database.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(entry).Error
}
