package db

import (
	"context"

	"github.com/terraincognita07/mealplans/internal/models"
	"gorm.io/gorm"
)

type DietitianRepository struct {
	database *gorm.DB
}

func NewDietitianRepository(database *gorm.DB) *DietitianRepository {
	return &DietitianRepository{database: database}
}

func (repo *DietitianRepository) FindByID(ctx context.Context, dietitianID uint) (models.Dietitian, bool, error) {
	dietitian := models.Dietitian{}
	result := repo.database.WithContext(ctx).Where("id = ?", dietitianID).Limit(1).Find(&dietitian)
	if result.Error != nil {
		return models.Dietitian{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Dietitian{}, false, nil
	}
	return dietitian, true, nil
}

func (repo *DietitianRepository) FindByNormalizedEmail(ctx context.Context, email string) (models.Dietitian, bool, error) {
	dietitian := models.Dietitian{}
	result := repo.database.WithContext(ctx).Where("lower(trim(email)) = ?", email).Limit(1).Find(&dietitian)
	if result.Error != nil {
		return models.Dietitian{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Dietitian{}, false, nil
	}
	return dietitian, true, nil
}

func (repo *DietitianRepository) Create(ctx context.Context, dietitian *models.Dietitian) error {
	return repo.database.WithContext(ctx).Create(dietitian).Error
}

func (repo *DietitianRepository) UpdatePassword(ctx context.Context, dietitianID uint, passwordHash string, mustChangePassword bool) error {
	return repo.database.WithContext(ctx).Model(&models.Dietitian{}).Where("id = ?", dietitianID).Updates(map[string]any{
		"password_hash":        passwordHash,
		"must_change_password": mustChangePassword,
	}).Error
}
