package repository

import (
	"context"

	"estimator/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PresetRepository interface {
	Create(ctx context.Context, preset *model.LineItemPreset) error
	Update(ctx context.Context, preset *model.LineItemPreset) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LineItemPreset, error)
	List(ctx context.Context, page, limit int, search, category string) ([]model.LineItemPreset, int64, error)
}

type presetRepository struct {
	db *gorm.DB
}

func NewPresetRepository(db *gorm.DB) PresetRepository {
	return &presetRepository{db: db}
}

func (r *presetRepository) Create(ctx context.Context, preset *model.LineItemPreset) error {
	return GetDB(ctx, r.db).Create(preset).Error
}

func (r *presetRepository) Update(ctx context.Context, preset *model.LineItemPreset) error {
	return GetDB(ctx, r.db).Save(preset).Error
}

func (r *presetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.LineItemPreset{}).Error
}

func (r *presetRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.LineItemPreset, error) {
	var preset model.LineItemPreset
	if err := GetDB(ctx, r.db).First(&preset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &preset, nil
}

func (r *presetRepository) List(ctx context.Context, page, limit int, search, category string) ([]model.LineItemPreset, int64, error) {
	var presets []model.LineItemPreset
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.LineItemPreset{}).Where("is_active = true")
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ? OR item_code ILIKE ?", pattern, pattern, pattern)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&presets).Error; err != nil {
		return nil, 0, err
	}

	return presets, total, nil
}
