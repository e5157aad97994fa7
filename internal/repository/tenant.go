package repository

import (
	"context"

	"github.com/nimbusdeck/edge/internal/models"
	"github.com/nimbusdeck/edge/internal/storage"
	"gorm.io/gorm"
)

type TenantRepository struct {
	db *storage.Postgres
}

func NewTenantRepository(db *storage.Postgres) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(ctx context.Context, cfg *models.TenantConfig) error {
	return r.db.DB.WithContext(ctx).Create(cfg).Error
}

func (r *TenantRepository) FindBySlug(ctx context.Context, slug string) (*models.TenantConfig, error) {
	var cfg models.TenantConfig
	err := r.db.DB.WithContext(ctx).
		Where("slug = ?", slug).
		First(&cfg).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &cfg, err
}

func (r *TenantRepository) FindByID(ctx context.Context, id string) (*models.TenantConfig, error) {
	var cfg models.TenantConfig
	err := r.db.DB.WithContext(ctx).
		Where("project_id = ?", id).
		First(&cfg).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &cfg, err
}

func (r *TenantRepository) List(ctx context.Context) ([]models.TenantConfig, error) {
	var configs []models.TenantConfig
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&configs).Error

	return configs, err
}

func (r *TenantRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.TenantConfig{}).
		Where("project_id = ?", id).
		Updates(updates).Error
}

func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	return r.db.DB.WithContext(ctx).
		Where("project_id = ?", id).
		Delete(&models.TenantConfig{}).Error
}
