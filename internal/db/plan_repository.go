package db

import (
	"context"

	"github.com/terraincognita07/mealplans/internal/models"
	"gorm.io/gorm"
)

type PlanRepository struct {
	database *gorm.DB
}

func NewPlanRepository(database *gorm.DB) *PlanRepository {
	return &PlanRepository{database: database}
}

func (repo *PlanRepository) FindByID(ctx context.Context, planID uint) (models.MealPlan, bool, error) {
	plan := models.MealPlan{}
	result := repo.database.WithContext(ctx).Where("id = ?", planID).Limit(1).Find(&plan)
	if result.Error != nil {
		return models.MealPlan{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.MealPlan{}, false, nil
	}
	return plan, true, nil
}

func (repo *PlanRepository) List(ctx context.Context, filter models.PlanFilter) ([]models.MealPlan, error) {
	query := repo.database.WithContext(ctx).Model(&models.MealPlan{})
	if filter.OwnerID != 0 {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.ClientCode != "" {
		query = query.Where("client_code = ?", filter.ClientCode)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ExcludeID != 0 {
		query = query.Where("id <> ?", filter.ExcludeID)
	}
	if len(filter.ActiveFromOn) > 0 {
		query = query.Where("active_from IN ?", filter.ActiveFromOn)
	}
	if filter.ActiveUntilBefore != nil {
		query = query.Where("active_until IS NOT NULL AND active_until < ?", *filter.ActiveUntilBefore)
	}

	plans := make([]models.MealPlan, 0)
	if err := query.Order("id ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (repo *PlanRepository) Create(ctx context.Context, plan *models.MealPlan) error {
	return repo.database.WithContext(ctx).Create(plan).Error
}

// UpdateContent writes the non-lifecycle columns of plan.
func (repo *PlanRepository) UpdateContent(ctx context.Context, plan *models.MealPlan) error {
	return repo.database.WithContext(ctx).
		Model(plan).
		Select("name", "content", "daily_target_calories", "macro_targets", "updated_at").
		Updates(plan).Error
}

// UpdateLifecycle applies patch only while the row still has expectedStatus.
// It reports false when the row moved on or no longer exists.
func (repo *PlanRepository) UpdateLifecycle(ctx context.Context, planID uint, expectedStatus models.PlanStatus, patch models.LifecyclePatch) (bool, error) {
	updates := map[string]any{
		"status":       patch.Status,
		"active_from":  patch.ActiveFrom,
		"active_until": patch.ActiveUntil,
		"active_days":  encodeActiveDays(patch.ActiveDays),
	}
	result := repo.database.WithContext(ctx).
		Model(&models.MealPlan{}).
		Where("id = ? AND status = ?", planID, expectedStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (repo *PlanRepository) Delete(ctx context.Context, planID uint) (bool, error) {
	result := repo.database.WithContext(ctx).Delete(&models.MealPlan{}, planID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
