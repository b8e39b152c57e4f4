package db

import (
	"context"
	"time"

	"github.com/terraincognita07/mealplans/internal/models"
	"gorm.io/gorm"
)

const reminderInsertBatchSize = 100

type ReminderRepository struct {
	database *gorm.DB
}

func NewReminderRepository(database *gorm.DB) *ReminderRepository {
	return &ReminderRepository{database: database}
}

func (repo *ReminderRepository) InsertBatch(ctx context.Context, reminders []models.ScheduledReminder) error {
	if len(reminders) == 0 {
		return nil
	}
	return repo.database.WithContext(ctx).CreateInBatches(reminders, reminderInsertBatchSize).Error
}

func (repo *ReminderRepository) DeleteByPlanID(ctx context.Context, planID uint) error {
	return repo.database.WithContext(ctx).Where("plan_id = ?", planID).Delete(&models.ScheduledReminder{}).Error
}

func (repo *ReminderRepository) DeleteByPlanIDs(ctx context.Context, planIDs []uint) error {
	if len(planIDs) == 0 {
		return nil
	}
	return repo.database.WithContext(ctx).Where("plan_id IN ?", planIDs).Delete(&models.ScheduledReminder{}).Error
}

func (repo *ReminderRepository) ListByPlanID(ctx context.Context, planID uint) ([]models.ScheduledReminder, error) {
	reminders := make([]models.ScheduledReminder, 0)
	if err := repo.database.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("week_number ASC").
		Find(&reminders).Error; err != nil {
		return nil, err
	}
	return reminders, nil
}

// ListDue returns pending reminders dated on or before day.
func (repo *ReminderRepository) ListDue(ctx context.Context, day time.Time, limit int) ([]models.ScheduledReminder, error) {
	reminders := make([]models.ScheduledReminder, 0)
	if err := repo.database.WithContext(ctx).
		Where("status = ? AND scheduled_date <= ?", models.ReminderStatusPending, day).
		Order("scheduled_date ASC, week_number ASC").
		Limit(limit).
		Find(&reminders).Error; err != nil {
		return nil, err
	}
	return reminders, nil
}

func (repo *ReminderRepository) MarkSent(ctx context.Context, reminderID string, sentAt time.Time) error {
	return repo.database.WithContext(ctx).
		Model(&models.ScheduledReminder{}).
		Where("id = ? AND status = ?", reminderID, models.ReminderStatusPending).
		Updates(map[string]any{
			"status":  models.ReminderStatusSent,
			"sent_at": sentAt,
		}).Error
}
