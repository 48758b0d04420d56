package repository

import (
	"context"
	"fmt"

	"estimator/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FinanceListFilter narrows the ledger list query.
type FinanceListFilter struct {
	Type       string
	Source     string
	EstimateID *uuid.UUID
	Page       int
	Limit      int
}

// FinanceSummaryRow is one aggregated period of the income/expense report.
type FinanceSummaryRow struct {
	Period       string  `gorm:"column:period"`
	TotalIncome  float64 `gorm:"column:total_income"`
	TotalExpense float64 `gorm:"column:total_expense"`
	Net          float64 `gorm:"column:net"`
}

type FinanceRepository interface {
	Create(ctx context.Context, entry *model.FinanceEntry) error
	ExistsForPayment(ctx context.Context, paymentID uuid.UUID, entryType string) (bool, error)
	List(ctx context.Context, filter FinanceListFilter) ([]model.FinanceEntry, int64, error)
	Summary(ctx context.Context, groupBy, startDate, endDate string) ([]FinanceSummaryRow, error)
}

type financeRepository struct {
	db *gorm.DB
}

func NewFinanceRepository(db *gorm.DB) FinanceRepository {
	return &financeRepository{db: db}
}

func (r *financeRepository) Create(ctx context.Context, entry *model.FinanceEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

// ExistsForPayment is the idempotency guard for ledger writes: a retried
// confirm or refund finds the entry from the first attempt and skips the
// insert.
func (r *financeRepository) ExistsForPayment(ctx context.Context, paymentID uuid.UUID, entryType string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.FinanceEntry{}).
		Where("payment_id = ? AND type = ?", paymentID, entryType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *financeRepository) List(ctx context.Context, filter FinanceListFilter) ([]model.FinanceEntry, int64, error) {
	var entries []model.FinanceEntry
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.FinanceEntry{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.EstimateID != nil {
		query = query.Where("estimate_id = ?", *filter.EstimateID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *financeRepository) Summary(ctx context.Context, groupBy, startDate, endDate string) ([]FinanceSummaryRow, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC($1, f.created_at), 'YYYY-MM-DD') AS period,
			COALESCE(SUM(CASE WHEN f.type = 'income' THEN f.amount ELSE 0 END), 0) AS total_income,
			COALESCE(SUM(CASE WHEN f.type = 'expense' THEN f.amount ELSE 0 END), 0) AS total_expense,
			COALESCE(SUM(CASE WHEN f.type = 'income' THEN f.amount ELSE -f.amount END), 0) AS net
		FROM finance_entries f
		WHERE f.created_at >= $2::timestamptz
		  AND f.created_at <= $3::timestamptz
		GROUP BY DATE_TRUNC($1, f.created_at)
		ORDER BY period
	`

	var rows []FinanceSummaryRow
	if err := GetDB(ctx, r.db).Raw(query, groupBy, startDate, endDate).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query finance summary: %w", err)
	}
	return rows, nil
}
