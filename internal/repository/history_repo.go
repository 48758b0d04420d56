package repository

import (
	"context"

	"estimator/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository appends to and reads the estimate audit trail. There is
// deliberately no Update or Delete: history rows are immutable once written.
type HistoryRepository interface {
	Append(ctx context.Context, entry *model.EstimateHistory) error
	ListByEstimate(ctx context.Context, estimateID uuid.UUID) ([]model.EstimateHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *model.EstimateHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *historyRepository) ListByEstimate(ctx context.Context, estimateID uuid.UUID) ([]model.EstimateHistory, error) {
	var entries []model.EstimateHistory
	if err := GetDB(ctx, r.db).
		Preload("Actor").
		Where("estimate_id = ?", estimateID).
		Order("changed_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
