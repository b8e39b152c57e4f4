package db

import (
	"context"

	"github.com/terraincognita07/mealplans/internal/models"
	"gorm.io/gorm"
)

type ClientRepository struct {
	database *gorm.DB
}

func NewClientRepository(database *gorm.DB) *ClientRepository {
	return &ClientRepository{database: database}
}

func (repo *ClientRepository) FindByCode(ctx context.Context, code string) (models.Client, bool, error) {
	client := models.Client{}
	result := repo.database.WithContext(ctx).Where("code = ?", code).Limit(1).Find(&client)
	if result.Error != nil {
		return models.Client{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Client{}, false, nil
	}
	return client, true, nil
}

func (repo *ClientRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.Client, error) {
	clients := make([]models.Client, 0)
	if err := repo.database.WithContext(ctx).Where("owner_id = ?", ownerID).Order("code ASC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (repo *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	return repo.database.WithContext(ctx).Create(client).Error
}
