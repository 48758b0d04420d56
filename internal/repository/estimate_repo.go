package repository

import (
	"context"

	"estimator/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EstimateListFilter narrows the estimate list query.
type EstimateListFilter struct {
	Status string
	Search string // matches estimate_number or client_name
	Page   int
	Limit  int
}

type EstimateRepository interface {
	Create(ctx context.Context, estimate *model.Estimate) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Estimate, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Estimate, error)
	FindByPublicToken(ctx context.Context, token string) (*model.Estimate, error)
	List(ctx context.Context, filter EstimateListFilter) ([]model.Estimate, int64, error)
	Update(ctx context.Context, estimate *model.Estimate) error
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
	MaxVersion(ctx context.Context, projectID *uuid.UUID, estimateNumber string) (int, error)
	ReplaceLineItems(ctx context.Context, estimateID uuid.UUID, items []model.LineItem) error
	LineItems(ctx context.Context, estimateID uuid.UUID) ([]model.LineItem, error)
}

type estimateRepository struct {
	db *gorm.DB
}

func NewEstimateRepository(db *gorm.DB) EstimateRepository {
	return &estimateRepository{db: db}
}

func (r *estimateRepository) Create(ctx context.Context, estimate *model.Estimate) error {
	return GetDB(ctx, r.db).Create(estimate).Error
}

func (r *estimateRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Estimate, error) {
	var estimate model.Estimate
	if err := GetDB(ctx, r.db).First(&estimate, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &estimate, nil
}

func (r *estimateRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Estimate, error) {
	var estimate model.Estimate
	if err := GetDB(ctx, r.db).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&estimate, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &estimate, nil
}

func (r *estimateRepository) FindByPublicToken(ctx context.Context, token string) (*model.Estimate, error) {
	var estimate model.Estimate
	if err := GetDB(ctx, r.db).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&estimate, "public_token = ?", token).Error; err != nil {
		return nil, err
	}
	return &estimate, nil
}

func (r *estimateRepository) List(ctx context.Context, filter EstimateListFilter) ([]model.Estimate, int64, error) {
	var estimates []model.Estimate
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Estimate{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("estimate_number ILIKE ? OR client_name ILIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&estimates).Error; err != nil {
		return nil, 0, err
	}

	return estimates, total, nil
}

func (r *estimateRepository) Update(ctx context.Context, estimate *model.Estimate) error {
	return GetDB(ctx, r.db).Save(estimate).Error
}

func (r *estimateRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Estimate{}).
		Where("estimate_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MaxVersion returns the highest version among siblings of an estimate: rows
// sharing its project when linked to one, otherwise rows sharing its number.
func (r *estimateRepository) MaxVersion(ctx context.Context, projectID *uuid.UUID, estimateNumber string) (int, error) {
	var max int
	query := GetDB(ctx, r.db).Model(&model.Estimate{})
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	} else {
		query = query.Where("estimate_number = ?", estimateNumber)
	}
	if err := query.Select("COALESCE(MAX(version), 0)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

// ReplaceLineItems swaps the full line-item set of an estimate in one shot.
// Callers wrap this in a transaction together with the totals update.
func (r *estimateRepository) ReplaceLineItems(ctx context.Context, estimateID uuid.UUID, items []model.LineItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("estimate_id = ?", estimateID).Delete(&model.LineItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].EstimateID = estimateID
	}
	return db.Create(&items).Error
}

func (r *estimateRepository) LineItems(ctx context.Context, estimateID uuid.UUID) ([]model.LineItem, error) {
	var items []model.LineItem
	if err := GetDB(ctx, r.db).
		Where("estimate_id = ?", estimateID).
		Order("position ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
